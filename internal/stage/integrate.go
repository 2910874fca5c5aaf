package stage

import (
	"math"

	"github.com/leosat/MMVJ/internal/value"
)

// Integrate accumulates relative deltas into an absolute value within its
// output range, saturating at the bounds. An optional leak pulls the
// accumulator back toward the range default with the configured half-life,
// so a nudged throttle drifts home when left alone.
type Integrate struct {
	noFeedback

	rng      value.Range
	halfLife float64 // seconds; <= 0 disables the leak

	cur float64
}

// NewIntegrate returns an integrator over rng. halfLife <= 0 disables the
// leak toward the range default.
func NewIntegrate(rng value.Range, halfLife float64) *Integrate {
	return &Integrate{rng: rng, halfLife: halfLife, cur: rng.Default}
}

func (g *Integrate) Advance(s value.Sample, dt float64) value.Sample {
	if s.Relative {
		g.cur += s.Value
	} else {
		// An absolute sample re-bases the accumulator in our units.
		g.cur = s.Range.Rescale(s.Value, g.rng)
	}
	if g.halfLife > 0 && dt > 0 {
		decay := math.Exp(-math.Ln2 * dt / g.halfLife)
		g.cur = g.rng.Default + (g.cur-g.rng.Default)*decay
	}
	g.cur = g.rng.Clamp(g.cur)
	return value.Abs(g.rng, g.cur)
}

func (g *Integrate) Reset() {
	g.cur = g.rng.Default
}

// MovingAverage emits the arithmetic mean of the last N samples. During
// warm-up it averages what has been seen so far.
type MovingAverage struct {
	noFeedback

	ring  []float64
	idx   int
	count int
	sum   float64
}

// NewMovingAverage returns a moving average over a window of n samples.
func NewMovingAverage(n int) *MovingAverage {
	if n < 1 {
		n = 1
	}
	return &MovingAverage{ring: make([]float64, n)}
}

func (m *MovingAverage) Advance(s value.Sample, _ float64) value.Sample {
	if m.count == len(m.ring) {
		m.sum -= m.ring[m.idx]
	} else {
		m.count++
	}
	m.ring[m.idx] = s.Value
	m.sum += s.Value
	m.idx = (m.idx + 1) % len(m.ring)
	s.Value = m.sum / float64(m.count)
	return s
}

func (m *MovingAverage) Reset() {
	for i := range m.ring {
		m.ring[i] = 0
	}
	m.idx = 0
	m.count = 0
	m.sum = 0
}
