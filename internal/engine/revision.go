//go:build linux

package engine

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/device/midi"
	"github.com/leosat/MMVJ/internal/device/pointer"
	"github.com/leosat/MMVJ/internal/device/virtual"
	"github.com/leosat/MMVJ/internal/pipeline"
	"github.com/leosat/MMVJ/internal/value"
)

// Revision is one immutable bundle of live wiring built from a validated
// configuration: adapters, executors, outputs and the routing indexes. The
// dispatcher swaps revisions between ticks, so observers never see a partial
// configuration.
type Revision struct {
	Config *config.Config
	Period time.Duration

	execs    []*pipeline.Executor
	specs    []config.Mapping // spec behind each executor, for state carry-over
	bySource map[value.Address][]*pipeline.Executor
	ffSink   map[string]*pipeline.Executor

	outputs map[string]*virtual.Output
	midi    map[string]*midi.Adapter
	mice    map[string]*pointer.Adapter

	// flush scratch, reused every tick
	flushBuf map[string]map[string]value.Sample
}

// deps carries the engine-owned collaborators a revision build needs.
type deps struct {
	events  chan value.Event
	log     zerolog.Logger
	resolve holdResolver
}

// reconcile builds the wiring for cfg, reusing from prev every input adapter
// whose declaration is unchanged, every persistent output whose identity is
// unchanged, and every executor whose complete mapping spec is unchanged
// (so an edit to one mapping does not reset the stage state of the others).
// On initial build any output-device failure is fatal; on reload it is
// logged and the output is skipped until the next reload.
func reconcile(prev *Revision, cfg *config.Config, d deps, initial bool) (*Revision, error) {
	rev := &Revision{
		Config:   cfg,
		Period:   time.Second / time.Duration(cfg.Global.UpdateRate),
		bySource: map[value.Address][]*pipeline.Executor{},
		ffSink:   map[string]*pipeline.Executor{},
		outputs:  map[string]*virtual.Output{},
		midi:     map[string]*midi.Adapter{},
		mice:     map[string]*pointer.Adapter{},
		flushBuf: map[string]map[string]value.Sample{},
	}

	// Which joysticks accept force feedback under the new configuration.
	wantFF := map[string]bool{}
	for _, m := range cfg.Mappings {
		if m.IsEnabled() && mappingHasSteering(m) {
			wantFF[m.Destination.Joystick] = true
		}
	}

	var created []*virtual.Output
	var createdMIDI []*midi.Adapter
	var createdMice []*pointer.Adapter
	fail := func(err error) (*Revision, error) {
		for _, o := range created {
			_ = o.Close()
		}
		for _, ad := range createdMIDI {
			ad.Close()
		}
		for _, ad := range createdMice {
			ad.Close()
		}
		return nil, err
	}

	// Outputs: reuse persistent handles with identical identity, rebuild the
	// rest.
	for name, vj := range cfg.VirtualJoysticks {
		if !vj.Enabled {
			continue
		}
		persistent := vj.Persistent || cfg.Global.PersistentJoysticks
		if prev != nil {
			if old, ok := prev.outputs[name]; ok && old.Persistent && persistent &&
				old.Matches(vj) && old.AcceptsFF() == wantFF[name] {
				rev.outputs[name] = old
				continue
			}
		}
		out, err := virtual.New(name, vj, persistent, wantFF[name], d.log)
		if err != nil {
			if initial {
				kind := ErrDeviceUnavailable
				if errors.Is(err, os.ErrPermission) {
					kind = ErrDevicePermissionDenied
				}
				return fail(fmt.Errorf("%w: %v", kind, err))
			}
			d.log.Error().Err(err).Str("code", "DeviceUnavailable").
				Str("joystick", name).Msg("cannot create virtual joystick, skipping")
			continue
		}
		created = append(created, out)
		rev.outputs[name] = out
	}

	// Input adapters: keep unchanged declarations, rebuild the rest.
	for name, dev := range cfg.MIDIDevices {
		if prev != nil {
			if old, ok := prev.midi[name]; ok && old.Equivalent(dev) {
				rev.midi[name] = old
				continue
			}
		}
		ad, err := midi.New(name, dev, d.events, d.log)
		if err != nil {
			return fail(err)
		}
		ad.Run()
		createdMIDI = append(createdMIDI, ad)
		rev.midi[name] = ad
	}
	for name, dev := range cfg.MouseDevices {
		if prev != nil {
			if old, ok := prev.mice[name]; ok && old.Equivalent(dev) {
				rev.mice[name] = old
				continue
			}
		}
		ad, err := pointer.New(name, dev, d.events, d.log)
		if err != nil {
			return fail(err)
		}
		ad.Run()
		createdMice = append(createdMice, ad)
		rev.mice[name] = ad
	}

	// Mappings: carry over executors whose spec is byte-for-byte unchanged,
	// build the rest fresh (stage state discarded).
	for _, m := range cfg.Mappings {
		if !m.IsEnabled() {
			continue
		}
		if _, ok := rev.outputs[m.Destination.Joystick]; !ok {
			d.log.Debug().Str("joystick", m.Destination.Joystick).
				Msg("mapping targets disabled or missing joystick, skipping")
			continue
		}
		exec := prev.takeExecutor(m)
		if exec == nil {
			chain, err := buildPipeline(m.Transformation, d.resolve)
			if err != nil {
				return fail(err)
			}
			tmpl, err := sourceTemplate(cfg, m.Source)
			if err != nil {
				return fail(err)
			}
			src := value.Address{Device: m.Source.Device, Control: m.Source.Control}
			dst := value.Address{Device: m.Destination.Joystick, Control: m.Destination.Control}
			exec = pipeline.NewExecutor(src, dst, chain, tmpl)
		}
		rev.execs = append(rev.execs, exec)
		rev.specs = append(rev.specs, m)
		rev.bySource[exec.Source] = append(rev.bySource[exec.Source], exec)
		if _, ok := exec.Chain().Steering(); ok {
			if _, dup := rev.ffSink[m.Destination.Joystick]; dup {
				return fail(fmt.Errorf("%w: joystick %q has multiple force-feedback sinks",
					ErrOutputConflict, m.Destination.Joystick))
			}
			rev.ffSink[m.Destination.Joystick] = exec
		}
	}

	// The new wiring is complete: release everything prev owned that was not
	// carried over.
	if prev != nil {
		prev.closeUnused(rev)
	}
	return rev, nil
}

// takeExecutor removes and returns prev's executor for an identical mapping
// spec, or nil. A nil receiver is safe.
func (r *Revision) takeExecutor(m config.Mapping) *pipeline.Executor {
	if r == nil {
		return nil
	}
	for i, spec := range r.specs {
		if r.execs[i] != nil && reflect.DeepEqual(spec, m) {
			exec := r.execs[i]
			r.execs[i] = nil
			return exec
		}
	}
	return nil
}

func mappingHasSteering(m config.Mapping) bool {
	for _, st := range m.Transformation {
		if st.Name == "steering" {
			return true
		}
	}
	return false
}

// closeUnused tears down every resource of r that next did not adopt.
func (r *Revision) closeUnused(next *Revision) {
	for name, ad := range r.midi {
		if next.midi[name] != ad {
			ad.Close()
		}
	}
	for name, ad := range r.mice {
		if next.mice[name] != ad {
			ad.Close()
		}
	}
	for name, out := range r.outputs {
		if next.outputs[name] != out {
			_ = out.Close()
		}
	}
}

// closeAll tears down every resource of the revision.
func (r *Revision) closeAll() {
	if r == nil {
		return
	}
	for _, ad := range r.midi {
		ad.Close()
	}
	for _, ad := range r.mice {
		ad.Close()
	}
	for _, out := range r.outputs {
		_ = out.Close()
	}
}
