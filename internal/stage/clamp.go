package stage

import "github.com/leosat/MMVJ/internal/value"

// Clamp saturates samples at [Lo, Hi] in the units of the incoming range.
// With Override set it also replaces the downstream range, so later stages
// and the output adapter normalize against the clamp window instead of the
// original device span.
type Clamp struct {
	noFeedback
	stateless

	Lo       float64
	Hi       float64
	Override bool
}

// NewClamp returns a clamp stage over [lo, hi].
func NewClamp(lo, hi float64, override bool) *Clamp {
	return &Clamp{Lo: lo, Hi: hi, Override: override}
}

func (c *Clamp) Advance(s value.Sample, _ float64) value.Sample {
	if s.Relative {
		// Deltas saturate at the window width, keeping runaway wheels in check.
		span := c.Hi - c.Lo
		if s.Value > span {
			s.Value = span
		} else if s.Value < -span {
			s.Value = -span
		}
		return s
	}
	if s.Value < c.Lo {
		s.Value = c.Lo
	} else if s.Value > c.Hi {
		s.Value = c.Hi
	}
	if c.Override {
		s.Range = value.Range{Lo: c.Lo, Hi: c.Hi, Default: clampf(s.Range.Default, c.Lo, c.Hi)}
	}
	return s
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Invert reflects absolute samples around the midpoint of their range and
// negates relative deltas.
type Invert struct {
	noFeedback
	stateless
}

// NewInvert returns an inversion stage.
func NewInvert() *Invert {
	return &Invert{}
}

func (i *Invert) Advance(s value.Sample, _ float64) value.Sample {
	if s.Relative {
		s.Value = -s.Value
		return s
	}
	s.Value = 2*s.Range.Mid() - s.Value
	return s
}

// Deadzone zeroes absolute samples within Width of the range default and
// relative deltas smaller than Width, mirroring the "flat" handling evdev
// reports for physical sticks.
type Deadzone struct {
	noFeedback
	stateless

	Width float64
}

// NewDeadzone returns a deadzone stage of the given width in input units.
func NewDeadzone(width float64) *Deadzone {
	return &Deadzone{Width: width}
}

func (d *Deadzone) Advance(s value.Sample, _ float64) value.Sample {
	if s.Relative {
		if s.Value > -d.Width && s.Value < d.Width {
			s.Value = 0
		}
		return s
	}
	if diff := s.Value - s.Range.Default; diff > -d.Width && diff < d.Width {
		s.Value = s.Range.Default
	}
	return s
}
