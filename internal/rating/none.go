package rating

// NoneZone is one item's "no rating" surface.
type NoneZone struct {
	item *ItemState

	highlighted bool
}

// Enter previews a none choice: highlight and empty the sibling fill.
func (n *NoneZone) Enter() {
	n.highlighted = true
	n.item.track.fill = 0
}

// Click commits None.
func (n *NoneZone) Click() bool {
	n.highlighted = true
	n.item.commit(NoneRating())
	return true
}

// Leave keeps the highlight only when None is the committed value.
func (n *NoneZone) Leave() {
	if n.item.value.IsNone() {
		n.highlighted = true
		return
	}
	n.highlighted = false
	n.item.track.restore()
}

func (n *NoneZone) Highlighted() bool { return n.highlighted }
