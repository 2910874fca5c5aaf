//go:build linux

// Package engine wires the whole system together: it owns the single
// cooperative dispatcher loop, the active configuration revision and the
// reload path. Input adapters and the file watcher talk to the dispatcher
// exclusively through bounded queues, so all stage math is single-writer.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/value"
)

const (
	eventQueueDepth = 1024
	statsEvery      = 10 * time.Second
)

// Engine runs the dispatcher against the active configuration revision.
type Engine struct {
	cfgPath string
	log     zerolog.Logger
	clk     clock.Clock

	events chan value.Event
	reload chan struct{}

	rev  *Revision
	held map[value.Address]float64

	mu     sync.RWMutex
	angles map[string]float64

	ticks    uint64
	overruns uint64
}

// New creates an engine reading its configuration from cfgPath. The clock is
// injectable so dispatcher timing is testable.
func New(cfgPath string, log zerolog.Logger, clk clock.Clock) *Engine {
	return &Engine{
		cfgPath: cfgPath,
		log:     log.With().Str("component", "engine").Logger(),
		clk:     clk,
		events:  make(chan value.Event, eventQueueDepth),
		reload:  make(chan struct{}, 1),
		held:    map[value.Address]float64{},
		angles:  map[string]float64{},
	}
}

// Start builds the initial revision from cfg. Device failures here are
// fatal; after a successful start the engine only degrades, never exits, on
// device errors.
func (e *Engine) Start(cfg *config.Config) error {
	rev, err := reconcile(nil, cfg, e.deps(), true)
	if err != nil {
		return err
	}
	e.rev = rev
	e.log.Info().Int("mappings", len(rev.execs)).Int("outputs", len(rev.outputs)).
		Int("rate_hz", cfg.Global.UpdateRate).Msg("engine started")
	return nil
}

func (e *Engine) deps() deps {
	return deps{
		events: e.events,
		log:    e.log,
		resolve: func(addr value.Address) func() float64 {
			return func() float64 { return e.held[addr] }
		},
	}
}

// RequestReload schedules a configuration reload; the dispatcher performs it
// between ticks. Bursts collapse into one pending request.
func (e *Engine) RequestReload() {
	select {
	case e.reload <- struct{}{}:
	default:
	}
}

// Run drives the dispatcher loop until ctx is cancelled. Each tick drains
// pending input events into the mapping buffers, advances every pipeline
// with the real elapsed dt, routes force-feedback commands to their steering
// sinks, and flushes changed controls to the virtual devices.
//
// The loop never fires catch-up ticks: when a tick overruns its budget the
// next one fires immediately and dt widens, which the dt-parameterized stage
// math absorbs.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clk.Ticker(e.rev.Period)
	defer ticker.Stop()

	last := e.clk.Now()
	lastStats := last

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-e.reload:
			if e.doReload() {
				ticker.Reset(e.rev.Period)
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = e.rev.Period.Seconds()
			}
			e.tick(dt)
			if dt > 1.5*e.rev.Period.Seconds() {
				e.overruns++
			}
			last = now
			if now.Sub(lastStats) >= statsEvery {
				e.log.Debug().Uint64("ticks", e.ticks).Uint64("overruns", e.overruns).
					Msg("dispatcher stats")
				lastStats = now
			}
		}
	}
}

// tick is one dispatcher iteration at a tick boundary.
func (e *Engine) tick(dt float64) {
	e.ticks++
	rev := e.rev

	// 1. Drain pending input events into per-mapping buffers.
drain:
	for {
		select {
		case ev := <-e.events:
			if ev.Kind == value.KindAbsolute || ev.Kind == value.KindButton {
				e.held[ev.Source] = ev.Sample.Range.Normalize(ev.Sample.Value)
			}
			for _, exec := range rev.bySource[ev.Source] {
				exec.Deliver(ev)
			}
		default:
			break drain
		}
	}

	// 2. Advance every mapping's pipeline.
	for _, exec := range rev.execs {
		exec.Tick(dt)
	}

	// 3. Route force-feedback commands to their steering sinks; they take
	// effect on the next tick.
	for name, out := range rev.outputs {
		sink := rev.ffSink[name]
	forces:
		for {
			select {
			case ff := <-out.Forces():
				if sink != nil {
					sink.Feedback(ff)
				}
			default:
				break forces
			}
		}
	}

	// 4. Flush changed controls, all controls of one device together.
	for name := range rev.flushBuf {
		clear(rev.flushBuf[name])
	}
	for _, exec := range rev.execs {
		out, ok := exec.Output()
		if !ok {
			continue
		}
		buf := rev.flushBuf[exec.Destination.Device]
		if buf == nil {
			buf = map[string]value.Sample{}
			rev.flushBuf[exec.Destination.Device] = buf
		}
		buf[exec.Destination.Control] = out
	}
	for name, out := range rev.outputs {
		if buf := rev.flushBuf[name]; len(buf) > 0 {
			if err := out.Flush(buf); err != nil {
				e.log.Warn().Err(err).Str("code", "DeviceUnavailable").
					Str("joystick", name).Msg("flush failed")
			}
		}
	}

	e.publishAngles(rev)
}

// publishAngles copies the current steering angles for pull-model observers
// like the indicator window.
func (e *Engine) publishAngles(rev *Revision) {
	if len(rev.ffSink) == 0 && len(e.angles) == 0 {
		return
	}
	e.mu.Lock()
	for name, exec := range rev.ffSink {
		if st, ok := exec.Chain().Steering(); ok {
			e.angles[name+"."+exec.Destination.Control] = st.Angle()
		}
	}
	e.mu.Unlock()
}

// SteeringAngles returns a copy of the current steering angles keyed by
// "joystick.control", for the indicator window.
func (e *Engine) SteeringAngles() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, len(e.angles))
	for k, v := range e.angles {
		out[k] = v
	}
	return out
}

// doReload parses and validates the configuration file and swaps in the new
// revision. Any failure leaves the active revision untouched. It reports
// whether the swap happened.
func (e *Engine) doReload() bool {
	cfg, err := config.Load(e.cfgPath)
	if err != nil {
		e.log.Error().Err(err).Str("code", "ConfigInvalid").
			Msg("reload rejected, keeping active configuration")
		return false
	}
	rev, err := reconcile(e.rev, cfg, e.deps(), false)
	if err != nil {
		e.log.Error().Err(err).Str("code", "ConfigInvalid").
			Msg("reload failed, keeping active configuration")
		return false
	}
	e.rev = rev
	e.mu.Lock()
	e.angles = map[string]float64{}
	e.mu.Unlock()
	e.log.Info().Int("mappings", len(rev.execs)).Int("outputs", len(rev.outputs)).
		Msg("configuration reloaded")
	return true
}

// shutdown closes adapters and destroys virtual devices.
func (e *Engine) shutdown() {
	e.log.Info().Msg("shutting down")
	e.rev.closeAll()
}
