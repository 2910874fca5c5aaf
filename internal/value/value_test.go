package value

import (
	"math"
	"testing"
	"time"
)

func timeZero() time.Time {
	return time.Time{}
}

func TestRangeValid(t *testing.T) {
	cases := []struct {
		r    Range
		want bool
	}{
		{Range{Lo: -1, Hi: 1, Default: 0}, true},
		{Range{Lo: 0, Hi: 127, Default: 127}, true},
		{Range{Lo: 1, Hi: 1, Default: 1}, false},
		{Range{Lo: 2, Hi: 1, Default: 1}, false},
		{Range{Lo: 0, Hi: 1, Default: 2}, false},
	}
	for _, tc := range cases {
		if got := tc.r.Valid(); got != tc.want {
			t.Errorf("Valid(%+v) = %v, want %v", tc.r, got, tc.want)
		}
	}
}

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {
	r := Range{Lo: -200, Hi: 600, Default: 0}
	for _, v := range []float64{-200, -33.5, 0, 599, 600} {
		got := r.Denormalize(r.Normalize(v))
		if math.Abs(got-v) > 1e-9 {
			t.Errorf("round trip %v = %v", v, got)
		}
	}
}

func TestRescaleMapsLinearly(t *testing.T) {
	midi := Range{Lo: 0, Hi: 127, Default: 0}
	if got := midi.Rescale(127, Unipolar); got != 1 {
		t.Errorf("127 in [0,127] -> unipolar = %v, want 1", got)
	}
	if got := midi.Rescale(0, Symmetric); got != -1 {
		t.Errorf("0 in [0,127] -> symmetric = %v, want -1", got)
	}
}

func TestAbsClampsOnConstruction(t *testing.T) {
	s := Abs(Unipolar, 1.5)
	if s.Value != 1 {
		t.Errorf("Abs clamps to range, got %v", s.Value)
	}
	if s.Relative {
		t.Error("Abs produced a relative sample")
	}
}

func TestRelCarriesDeltaUnclamped(t *testing.T) {
	s := Rel(Symmetric, 40)
	if s.Value != 40 || !s.Relative {
		t.Errorf("Rel sample = %+v", s)
	}
}

func TestButtonEventValues(t *testing.T) {
	ev := ButtonEvent(Address{Device: "m", Control: "b"}, timeZero(), true)
	if ev.Kind != KindButton || !ev.Pressed || ev.Sample.Value != 1 {
		t.Errorf("pressed button event = %+v", ev)
	}
	ev = ButtonEvent(Address{Device: "m", Control: "b"}, timeZero(), false)
	if ev.Pressed || ev.Sample.Value != 0 {
		t.Errorf("released button event = %+v", ev)
	}
}
