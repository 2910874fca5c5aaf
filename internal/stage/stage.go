// Package stage implements the per-sample transformations a mapping applies
// between an input control and an output control: clamping, inversion,
// integration, response curves, moving average, the pedal filter and the
// physics-based steering model.
//
// Each stage owns its private state and advances at most once per dispatcher
// tick. All time-dependent stages consume the real dt of the tick, with
// per-tick coefficients derived from half-lives and rates, so their behavior
// is invariant to update-rate changes.
package stage

import "github.com/leosat/MMVJ/internal/value"

// Stage is one step of a mapping's transformation pipeline.
//
// Advance consumes the sample produced by the previous stage (or the event
// delivered by the dispatcher for the first stage) together with the tick
// duration in seconds, and returns the transformed sample. Reset discards
// accumulated state. Feedback delivers a force-feedback command; stages
// without a force model ignore it.
type Stage interface {
	Advance(s value.Sample, dt float64) value.Sample
	Reset()
	Feedback(ff value.ForceFeedback)
}

// noFeedback is embedded by stages that ignore force-feedback commands.
type noFeedback struct{}

func (noFeedback) Feedback(value.ForceFeedback) {}

// stateless is embedded by stages without accumulated state.
type stateless struct{}

func (stateless) Reset() {}
