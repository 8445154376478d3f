package rating

// Track is one item's continuous rating surface. It keeps the provisional
// fill and candidate; the committed value lives on the owning ItemState.
type Track struct {
	item *ItemState

	fill          int
	candidate     int
	hasCandidate  bool
	justCommitted bool
}

// Enter re-arms provisional tracking and drops the none highlight.
func (t *Track) Enter() {
	t.justCommitted = false
	if t.item.none != nil {
		t.item.none.highlighted = false
	}
}

// Move updates the candidate from a pointer position. Positions that map
// outside 0..100 and moves right after a commit are ignored. It reports
// whether the candidate changed.
func (t *Track) Move(x float64) bool {
	if t.justCommitted {
		return false
	}
	v, ok := t.item.trial.geom.ValueAt(x)
	if !ok {
		return false
	}
	t.candidate, t.hasCandidate = v, true
	t.fill = v
	return true
}

// Click commits the current candidate. With no candidate since the last
// enter it does nothing and returns false.
func (t *Track) Click() bool {
	if !t.hasCandidate {
		return false
	}
	t.justCommitted = true
	t.item.commit(Scaled(t.candidate))
	return true
}

// Leave restores the fill to the committed value.
func (t *Track) Leave() {
	t.justCommitted = false
	t.hasCandidate = false
	t.restore()
}

func (t *Track) restore() {
	v, scaled := t.item.value.Value()
	if !scaled {
		v = 0
	}
	t.fill = v
	if t.item.none != nil && t.item.value.IsNone() {
		t.item.none.highlighted = true
	}
}

// Fill is the visible fill in percent of the track width.
func (t *Track) Fill() int { return t.fill }

// Candidate returns the pending candidate, if any.
func (t *Track) Candidate() (int, bool) { return t.candidate, t.hasCandidate }

func (t *Track) JustCommitted() bool { return t.justCommitted }
