package stage

import (
	"math"

	"github.com/leosat/MMVJ/internal/value"
)

// CurveKind selects the unit-interval response function of a Curve stage.
type CurveKind int

const (
	CurveLinear CurveKind = iota
	CurveQuadratic
	CurveCubic
	CurveSCurve
	CurveSmoothstep
	CurveSmootherstep
	CurveExponential
)

// Curve applies a monotone unit-interval function to the normalized input
// and remaps the result back into the sample's range. Ranges whose default
// sits at the midpoint are treated as symmetric axes: each half is curved
// independently around the center, so a compressive curve stays compressive
// on both sides of neutral.
type Curve struct {
	noFeedback
	stateless

	Kind CurveKind

	// K is the steepness of the centered S-curve, K > 0.
	K float64

	// Base is the base of the exponential curve, Base > 0 and Base != 1.
	Base float64
}

// NewCurve returns a curve stage of the given kind. K and Base are only
// consulted by the kinds that need them.
func NewCurve(kind CurveKind, k, base float64) *Curve {
	return &Curve{Kind: kind, K: k, Base: base}
}

func (c *Curve) Advance(s value.Sample, _ float64) value.Sample {
	if s.Relative {
		return s
	}
	t := s.Range.Normalize(s.Value)
	if s.Range.Default == s.Range.Mid() {
		// Symmetric axis: curve the magnitude of each half about center.
		u := 2*t - 1
		mag := c.apply(math.Abs(u))
		t = (1 + math.Copysign(mag, u)) / 2
	} else {
		t = c.apply(t)
	}
	s.Value = s.Range.Denormalize(t)
	return s
}

// apply evaluates the unit-interval function at t in [0, 1].
func (c *Curve) apply(t float64) float64 {
	switch c.Kind {
	case CurveQuadratic:
		return t * t
	case CurveCubic:
		return t * t * t
	case CurveSmoothstep:
		return t * t * (3 - 2*t)
	case CurveSmootherstep:
		return t * t * t * (t*(t*6-15) + 10)
	case CurveSCurve:
		// Logistic mapping rescaled so the anchors 0, 1/2, 1 are fixed points.
		l := func(x float64) float64 { return 1 / (1 + math.Exp(-c.K*(x-0.5))) }
		l0 := l(0)
		return (l(t) - l0) / (1 - 2*l0)
	case CurveExponential:
		return (math.Pow(c.Base, t) - 1) / (c.Base - 1)
	default:
		return t
	}
}
