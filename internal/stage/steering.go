package stage

import (
	"math"

	"github.com/leosat/MMVJ/internal/value"
)

// Steering integrates pointer motion into a steering angle in [-1, 1] and
// continuously pulls it back toward center through autocentering and any
// constant force uploaded by the host. The hand-hold factor trades user
// authority against both pulls with a single knob: at 0 the wheel freely
// obeys autocenter and force feedback, at 1 a rigid grip obeys input only.
//
// Autocentering uses an exponential-decay formulation parameterized by a
// half-life, so the settling behavior is invariant to the update rate.
type Steering struct {
	// Sensitivity converts one unit of input delta into angle units.
	Sensitivity float64

	// AutocenterHalfLife is the time in seconds for an unhindered wheel at
	// rest to halve its offset. A value <= 0 disables autocentering.
	AutocenterHalfLife float64

	// HoldFactor is the hand-hold factor in [0, 1].
	HoldFactor float64

	// FFScale converts the normalized constant-force level into a rate of
	// angle change, in angle units per second at level 1.
	FFScale float64

	// Alpha is the one-pole output smoothing coefficient in (0, 1];
	// 1 disables smoothing.
	Alpha float64

	theta  float64
	smooth float64
	force  float64
}

// NewSteering returns a steering stage with the given parameters. alpha
// values outside (0, 1] are treated as 1 (no smoothing).
func NewSteering(sensitivity, halfLife, holdFactor, ffScale, alpha float64) *Steering {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Steering{
		Sensitivity:        sensitivity,
		AutocenterHalfLife: halfLife,
		HoldFactor:         holdFactor,
		FFScale:            ffScale,
		Alpha:              alpha,
	}
}

func (st *Steering) Advance(s value.Sample, dt float64) value.Sample {
	delta := 0.0
	if s.Relative {
		delta = s.Value
	}

	// 1. Apply input.
	st.theta = clampf(st.theta+st.Sensitivity*delta, -1, 1)

	// 2. Autocenter pull, scaled down by the grip.
	if st.AutocenterHalfLife > 0 && !math.IsInf(st.AutocenterHalfLife, 1) {
		k := math.Ln2 / st.AutocenterHalfLife
		st.theta -= st.theta * (1 - math.Exp(-k*(1-st.HoldFactor)*dt))
	}

	// 3. Force-feedback pull.
	st.theta = clampf(st.theta+st.FFScale*st.force*(1-st.HoldFactor)*dt, -1, 1)

	// 4. One-pole smoothing on the output.
	st.smooth = st.Alpha*st.theta + (1-st.Alpha)*st.smooth

	return value.Abs(value.Symmetric, st.smooth)
}

func (st *Steering) Reset() {
	st.theta = 0
	st.smooth = 0
	st.force = 0
}

// Feedback stores the constant-force level applied on subsequent ticks.
func (st *Steering) Feedback(ff value.ForceFeedback) {
	if ff.Cancel {
		st.force = 0
		return
	}
	st.force = ff.Level
}

// Angle returns the smoothed output angle, for the steering indicator.
func (st *Steering) Angle() float64 {
	return st.smooth
}
