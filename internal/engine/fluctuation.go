package engine

// DefaultMaxPercent bounds the per-round price move in either direction.
const DefaultMaxPercent = 5.0

// Float64Source is the subset of *rand.Rand used for price draws.
type Float64Source interface {
	Float64() float64
}

// Fluctuator draws uniform percentage moves in [-MaxPercent, +MaxPercent].
// It is not safe for concurrent use; the market round is its only caller.
type Fluctuator struct {
	MaxPercent float64
	src        Float64Source
}

// NewFluctuator creates a Fluctuator. A non-positive maxPercent falls back
// to DefaultMaxPercent.
func NewFluctuator(src Float64Source, maxPercent float64) *Fluctuator {
	if maxPercent <= 0 {
		maxPercent = DefaultMaxPercent
	}
	return &Fluctuator{MaxPercent: maxPercent, src: src}
}

// Draw returns the next percentage move.
func (f *Fluctuator) Draw() float64 {
	return (f.src.Float64()*2 - 1) * f.MaxPercent
}
