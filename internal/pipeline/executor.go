package pipeline

import "github.com/leosat/MMVJ/internal/value"

// Executor drives one mapping's pipeline. Events arriving between ticks are
// buffered; at the tick boundary they are coalesced into a single sample
// (relative deltas summed, absolute positions last-writer-wins, button edges
// collapsed to the final edge) so every stage advances exactly once per tick.
//
// On ticks with no buffered event the executor still advances the chain:
// absolute sources re-evaluate their last known position, relative sources
// see a zero delta. Stateful stages keep decaying and integrating either way.
type Executor struct {
	Source      value.Address
	Destination value.Address

	chain    *Pipeline
	template value.Sample // source shape: range + relativity

	pendingDelta float64
	pendingAbs   *float64
	seen         bool // an absolute position has been observed

	last value.Sample // last input fed to the chain
	out  value.Sample // current-value slot
	fed  bool         // out holds a computed value
}

// NewExecutor builds an executor for a mapping whose source control produces
// samples shaped like template.
func NewExecutor(src, dst value.Address, chain *Pipeline, template value.Sample) *Executor {
	return &Executor{
		Source:      src,
		Destination: dst,
		chain:       chain,
		template:    template,
		last:        template,
	}
}

// Deliver buffers one raw event for the next tick.
func (e *Executor) Deliver(ev value.Event) {
	switch ev.Kind {
	case value.KindRelative:
		e.pendingDelta += ev.Sample.Value
	case value.KindAbsolute, value.KindButton:
		v := ev.Sample.Value
		e.pendingAbs = &v
		e.seen = true
	}
}

// Feedback forwards a force-feedback command to the stage chain.
func (e *Executor) Feedback(ff value.ForceFeedback) {
	e.chain.Feedback(ff)
}

// Tick coalesces buffered input and advances the stage chain by dt seconds,
// writing the final sample into the mapping's current-value slot.
func (e *Executor) Tick(dt float64) {
	in := e.template
	if e.template.Relative {
		in.Value = e.pendingDelta
	} else {
		switch {
		case e.pendingAbs != nil:
			in.Value = *e.pendingAbs
		case e.seen:
			in.Value = e.last.Value
		default:
			in.Value = e.template.Range.Default
		}
	}
	e.pendingDelta = 0
	e.pendingAbs = nil
	e.last = in

	e.out = e.chain.Advance(in, dt)
	e.fed = true
}

// Output returns the current-value slot and whether a tick has filled it.
func (e *Executor) Output() (value.Sample, bool) {
	return e.out, e.fed
}

// Chain exposes the pipeline, for feedback routing and observers.
func (e *Executor) Chain() *Pipeline {
	return e.chain
}

// Reset discards all buffered input and stage state.
func (e *Executor) Reset() {
	e.pendingDelta = 0
	e.pendingAbs = nil
	e.seen = false
	e.fed = false
	e.last = e.template
	e.chain.Reset()
}
