// Package pipeline runs a mapping's stage chain against the ticking sample
// source: it buffers raw events between ticks, coalesces them at the tick
// boundary and folds the result through the stages, keeping the mapping's
// current-value slot up to date even on idle ticks.
package pipeline

import (
	"github.com/leosat/MMVJ/internal/stage"
	"github.com/leosat/MMVJ/internal/value"
)

// Pipeline is an ordered chain of stages. The output sample of stage i is
// the input of stage i+1.
type Pipeline struct {
	stages []stage.Stage
}

// New builds a pipeline from the given stages. An empty pipeline is the
// identity.
func New(stages ...stage.Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Advance folds s through the stage chain with the tick duration dt.
func (p *Pipeline) Advance(s value.Sample, dt float64) value.Sample {
	for _, st := range p.stages {
		s = st.Advance(s, dt)
	}
	return s
}

// Reset discards the private state of every stage.
func (p *Pipeline) Reset() {
	for _, st := range p.stages {
		st.Reset()
	}
}

// Feedback delivers a force-feedback command to every stage; stages without
// a force model ignore it.
func (p *Pipeline) Feedback(ff value.ForceFeedback) {
	for _, st := range p.stages {
		st.Feedback(ff)
	}
}

// Steering returns the steering stage of the chain, if any, for observers
// like the indicator window.
func (p *Pipeline) Steering() (*stage.Steering, bool) {
	for _, st := range p.stages {
		if s, ok := st.(*stage.Steering); ok {
			return s, true
		}
	}
	return nil, false
}
