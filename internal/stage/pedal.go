package stage

import (
	"math"

	"github.com/leosat/MMVJ/internal/value"
)

// PedalFilter models a throttle, brake or clutch pedal: the value rises
// quickly toward the driving input and falls back toward zero at a separate
// rate, optionally held at the last peak for a timeout and slowed by the
// instantaneous value of another control (the hold reference).
//
// The filter operates in the normalized unit interval of the input range.
// RiseRate and FallRate are in normalized units per second; math.Inf(1)
// makes the corresponding edge instantaneous.
type PedalFilter struct {
	noFeedback

	RiseRate    float64
	FallRate    float64
	FallTimeout float64

	// HoldSource reads the current normalized value in [0, 1] of the hold
	// reference control; the effective fall rate is FallRate * (1 - hold).
	// A nil HoldSource means no hold reference.
	HoldSource func() float64

	cur       float64
	sinceRise float64
}

// NewPedalFilter returns a pedal filter with the given rates in normalized
// units per second and the hold timeout in seconds.
func NewPedalFilter(riseRate, fallRate, fallTimeout float64) *PedalFilter {
	return &PedalFilter{RiseRate: riseRate, FallRate: fallRate, FallTimeout: fallTimeout}
}

func (p *PedalFilter) Advance(s value.Sample, dt float64) value.Sample {
	in := s.Range.Normalize(s.Range.Clamp(s.Value))
	if s.Relative {
		// Pedals are driven by absolute controls; a delta only nudges the peak.
		in = clampf(p.cur+s.Value/s.Range.Span(), 0, 1)
	}

	switch {
	case in > p.cur:
		if math.IsInf(p.RiseRate, 1) {
			p.cur = in
		} else if p.cur += p.RiseRate * dt; p.cur > in {
			p.cur = in
		}
		p.sinceRise = 0
	case p.sinceRise < p.FallTimeout:
		p.sinceRise += dt
	default:
		p.sinceRise += dt
		hold := 0.0
		if p.HoldSource != nil {
			hold = clampf(p.HoldSource(), 0, 1)
		}
		switch fall := p.FallRate * (1 - hold); {
		case hold >= 1:
			// full hold, the pedal does not fall
		case math.IsInf(fall, 1):
			p.cur = 0
		default:
			if p.cur -= fall * dt; p.cur < 0 {
				p.cur = 0
			}
		}
	}

	s.Relative = false
	s.Value = s.Range.Denormalize(p.cur)
	return s
}

func (p *PedalFilter) Reset() {
	p.cur = 0
	p.sinceRise = 0
}
