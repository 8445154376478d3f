package rating

// ItemState is the authoritative rating of one item together with the two
// surfaces that are allowed to change it.
type ItemState struct {
	trial *Trial
	label string
	index int

	value   Rating
	missing bool
	track   *Track
	none    *NoneZone // nil when none ratings are disallowed
	shadow  *ShadowMarker
}

func newItemState(t *Trial, index int, label string, initial Rating) *ItemState {
	it := &ItemState{trial: t, label: label, index: index, value: initial}
	it.track = &Track{item: it}
	if t.params.AllowNone {
		it.none = &NoneZone{item: it, highlighted: initial.IsNone()}
	}
	return it
}

func (it *ItemState) commit(r Rating) {
	it.value = r
	it.missing = false
	it.trial.recordCommit(it.label, r)
}

func (it *ItemState) Label() string   { return it.label }
func (it *ItemState) Value() Rating   { return it.value }
func (it *ItemState) Missing() bool   { return it.missing }
func (it *ItemState) Track() *Track   { return it.track }
func (it *ItemState) None() *NoneZone { return it.none }

// ItemView is a render snapshot of one item.
type ItemView struct {
	Item            string        `json:"item"`
	Value           Rating        `json:"value"`
	Fill            int           `json:"fill"`
	NoneAvailable   bool          `json:"noneAvailable"`
	NoneHighlighted bool          `json:"noneHighlighted"`
	Missing         bool          `json:"missing"`
	Shadow          *ShadowMarker `json:"shadow,omitempty"`
}

func (it *ItemState) View() ItemView {
	v := ItemView{
		Item:    it.label,
		Value:   it.value,
		Fill:    it.track.fill,
		Missing: it.missing,
	}
	if it.none != nil {
		v.NoneAvailable = true
		v.NoneHighlighted = it.none.highlighted
	}
	if it.shadow != nil {
		s := *it.shadow
		v.Shadow = &s
	}
	return v
}
