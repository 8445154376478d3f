package rating

import "sync"

// ShadowBook holds the ratings of the most recently finalized trial. It is
// shared by every trial in the process; trials read it when they are laid
// out and replace it when they finalize.
type ShadowBook struct {
	mu      sync.RWMutex
	ratings map[string]Rating
	version uint64
}

func NewShadowBook() *ShadowBook {
	return &ShadowBook{ratings: map[string]Rating{}}
}

// Lookup returns the previous rating of item. Unset entries count as absent.
func (b *ShadowBook) Lookup(item string) (Rating, bool) {
	if b == nil {
		return Unset(), false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.ratings[item]
	if !ok || r.IsUnset() {
		return Unset(), false
	}
	return r, true
}

// Replace swaps in the ratings of a newly finalized trial.
func (b *ShadowBook) Replace(rs Ratings) {
	if b == nil {
		return
	}
	m := rs.Map()
	b.mu.Lock()
	b.ratings = m
	b.version++
	b.mu.Unlock()
}

// Version counts replacements since the book was created.
func (b *ShadowBook) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Snapshot copies the current shadow ratings.
func (b *ShadowBook) Snapshot() map[string]Rating {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Rating, len(b.ratings))
	for k, v := range b.ratings {
		out[k] = v
	}
	return out
}

// ShadowMarker is the advisory display of a previous rating. It never takes
// part in commits.
type ShadowMarker struct {
	Value Rating `json:"value"`
	// OffsetPx is the marker position from the track's left edge; only set
	// for scaled shadows.
	OffsetPx float64 `json:"offsetPx,omitempty"`
	// NonePrevious marks the none surface as previously chosen.
	NonePrevious bool `json:"nonePrevious,omitempty"`
}

func markerFor(r Rating, g Geometry) *ShadowMarker {
	switch {
	case r.IsScaled():
		v, _ := r.Value()
		return &ShadowMarker{Value: r, OffsetPx: g.Offset(v)}
	case r.IsNone():
		return &ShadowMarker{Value: r, NonePrevious: true}
	}
	return nil
}
