package stage

import (
	"math"
	"testing"

	"github.com/leosat/MMVJ/internal/value"
)

func TestPedalNeverExceedsInputPeak(t *testing.T) {
	p := NewPedalFilter(5, 2, 0)
	const peak = 0.8
	for i := 0; i < 1000; i++ {
		out := p.Advance(value.Abs(value.Unipolar, peak), 0.002)
		if out.Value > peak+1e-12 {
			t.Fatalf("pedal %v exceeded input peak %v", out.Value, peak)
		}
	}
	// The update rule dithers one fall step below the plateau; it must stay
	// within a tick of the peak.
	out := p.Advance(value.Abs(value.Unipolar, peak), 0.002)
	if math.Abs(out.Value-peak) > 0.01 {
		t.Errorf("pedal settled at %v, want ~%v", out.Value, peak)
	}
}

// With an infinite fall rate the output tracks a dropping input with at most
// one tick of lag.
func TestPedalInfiniteFallTracksInput(t *testing.T) {
	p := NewPedalFilter(math.Inf(1), math.Inf(1), 0)
	out := p.Advance(value.Abs(value.Unipolar, 1), 0.002)
	if out.Value != 1 {
		t.Fatalf("instant rise gave %v, want 1", out.Value)
	}
	out = p.Advance(value.Abs(value.Unipolar, 0), 0.002)
	if out.Value != 0 {
		t.Errorf("instant fall gave %v, want 0", out.Value)
	}
}

// Scenario: rise_rate 5, fall_rate 4, hold reference on the throttle. With
// throttle at 1 the pedal never falls; with throttle at 0 it falls from 1 to
// 0 in 0.25 s.
func TestPedalHoldReferenceScalesFall(t *testing.T) {
	hold := 1.0
	p := NewPedalFilter(5, 4, 0)
	p.HoldSource = func() float64 { return hold }

	// Rise to 1.
	for i := 0; i < 200; i++ {
		p.Advance(value.Abs(value.Unipolar, 1), 0.002)
	}

	// Input steps to 0 while the throttle holds.
	var out value.Sample
	for i := 0; i < 500; i++ {
		out = p.Advance(value.Abs(value.Unipolar, 0), 0.002)
	}
	if out.Value != 1 {
		t.Fatalf("pedal fell to %v with hold factor 1, want 1", out.Value)
	}

	// Throttle released: full fall rate empties the pedal in 1/4 s.
	hold = 0
	steps := int(0.25 / 0.002)
	for i := 0; i < steps; i++ {
		out = p.Advance(value.Abs(value.Unipolar, 0), 0.002)
	}
	if math.Abs(out.Value) > 0.02 {
		t.Errorf("pedal at %v after 0.25 s of full fall, want ~0", out.Value)
	}
}

func TestPedalFallTimeoutHoldsPeak(t *testing.T) {
	p := NewPedalFilter(math.Inf(1), 10, 0.5)
	p.Advance(value.Abs(value.Unipolar, 1), 0.002)

	// For the first half second after the last rise the value holds.
	var out value.Sample
	for i := 0; i < 200; i++ {
		out = p.Advance(value.Abs(value.Unipolar, 0), 0.002)
	}
	if out.Value != 1 {
		t.Fatalf("pedal fell during timeout window: %v", out.Value)
	}

	// Once the timeout lapses the fall begins.
	for i := 0; i < 200; i++ {
		out = p.Advance(value.Abs(value.Unipolar, 0), 0.002)
	}
	if out.Value >= 1 {
		t.Errorf("pedal never started falling after timeout, still %v", out.Value)
	}
}

func TestPedalRiseRateLimitsSlew(t *testing.T) {
	p := NewPedalFilter(2, 1, 0)
	out := p.Advance(value.Abs(value.Unipolar, 1), 0.1)
	if math.Abs(out.Value-0.2) > 1e-9 {
		t.Errorf("after one 100 ms tick at rise rate 2 expected 0.2, got %v", out.Value)
	}
}

func TestPedalResetClearsValue(t *testing.T) {
	p := NewPedalFilter(math.Inf(1), 1, 0)
	p.Advance(value.Abs(value.Unipolar, 1), 0.002)
	p.Reset()
	out := p.Advance(value.Abs(value.Unipolar, 0), 0.002)
	if out.Value != 0 {
		t.Errorf("pedal after reset = %v, want 0", out.Value)
	}
}
