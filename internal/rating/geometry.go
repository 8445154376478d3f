package rating

import "math"

// Geometry is the measured position of the rating tracks. All tracks of a
// trial share one geometry.
type Geometry struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

func (g Geometry) valid() bool {
	return g.Width > 0 && !math.IsNaN(g.Width) && !math.IsInf(g.Width, 0) && !math.IsNaN(g.Left)
}

// ValueAt maps a pointer x position to a candidate value, rounding half away
// from zero. ok is false when the position falls outside 0..100.
func (g Geometry) ValueAt(x float64) (v int, ok bool) {
	if !g.valid() {
		return 0, false
	}
	f := math.Round((x - g.Left) / g.Width * 100)
	if f < MinScaled || f > MaxScaled {
		return 0, false
	}
	return int(f), true
}

// Offset converts a scaled value to a pixel offset from the track's left edge.
func (g Geometry) Offset(v int) float64 {
	return float64(v) / 100 * g.Width
}
