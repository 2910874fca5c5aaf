// Package midi adapts MIDI input ports into the engine's event model. Ports
// are matched by a regular expression against system-reported names, opened
// as they appear and reopened with backoff after failures.
package midi

import (
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/device"
	"github.com/leosat/MMVJ/internal/value"
)

// Adapter is a long-lived producer for one configured MIDI device entry. It
// may hold several open ports when the regex matches more than one.
type Adapter struct {
	logical  string
	pattern  string
	re       *regexp.Regexp
	controls map[config.MIDIKey]string
	sink     chan<- value.Event
	log      zerolog.Logger

	mu    sync.Mutex
	open  map[string]func()
	done  chan struct{}
	wg    sync.WaitGroup
	retry device.Backoff
}

// New builds an adapter for the device entry; Run starts it.
func New(logical string, cfg config.MIDIDevice, sink chan<- value.Event, log zerolog.Logger) (*Adapter, error) {
	re, err := regexp.Compile(cfg.MatchNameRegex)
	if err != nil {
		return nil, err
	}
	controls := make(map[config.MIDIKey]string, len(cfg.Controls))
	for name, key := range cfg.Controls {
		controls[key] = name
	}
	return &Adapter{
		logical:  logical,
		pattern:  cfg.MatchNameRegex,
		re:       re,
		controls: controls,
		sink:     sink,
		log:      log.With().Str("midi", logical).Logger(),
		open:     map[string]func(){},
		done:     make(chan struct{}),
	}, nil
}

// Equivalent reports whether cfg would produce an identical adapter, so the
// reconciler can keep this one across a reload.
func (a *Adapter) Equivalent(cfg config.MIDIDevice) bool {
	if a.pattern != cfg.MatchNameRegex || len(a.controls) != len(cfg.Controls) {
		return false
	}
	for name, key := range cfg.Controls {
		if a.controls[key] != name {
			return false
		}
	}
	return true
}

// Run scans for matching ports until Close, reopening lost ports with
// exponential backoff.
func (a *Adapter) Run() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		wait := time.Duration(0)
		for {
			select {
			case <-a.done:
				return
			case <-time.After(wait):
			}
			if a.rescan() {
				a.retry.Reset()
				wait = device.RescanInterval
			} else {
				wait = a.retry.Next()
			}
		}
	}()
}

// rescan opens newly matching ports and drops vanished ones. It reports
// whether every open attempt succeeded.
func (a *Adapter) rescan() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	present := map[string]bool{}
	ok := true
	for _, in := range midi.GetInPorts() {
		name := in.String()
		if !a.re.MatchString(name) {
			continue
		}
		present[name] = true
		if _, already := a.open[name]; already {
			continue
		}
		stop, err := a.listen(in)
		if err != nil {
			a.log.Warn().Err(err).Str("port", name).Msg("cannot open midi port")
			ok = false
			continue
		}
		a.log.Info().Str("port", name).Msg("midi port attached")
		a.open[name] = stop
	}
	for name, stop := range a.open {
		if !present[name] {
			stop()
			delete(a.open, name)
			a.log.Warn().Str("port", name).Msg("midi port vanished")
		}
	}
	return ok
}

func (a *Adapter) listen(in drivers.In) (func(), error) {
	return midi.ListenTo(in, func(msg midi.Message, _ int32) {
		a.handle(msg)
	})
}

// handle normalizes one MIDI message into the event model: pitch wheel to
// [-1, 1], velocities, controller changes and pressure to [0, 1].
func (a *Adapter) handle(msg midi.Message) {
	var ch, key, vel, val uint8
	var rel int16
	var abs uint16
	now := time.Now()

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		a.emitAbs(config.MIDIKey{Kind: config.MIDINote, Number: key}, now, value.Unipolar, float64(vel)/127)
	case msg.GetNoteEnd(&ch, &key):
		a.emitAbs(config.MIDIKey{Kind: config.MIDINote, Number: key}, now, value.Unipolar, 0)
	case msg.GetControlChange(&ch, &key, &val):
		a.emitAbs(config.MIDIKey{Kind: config.MIDIControlChange, Number: key}, now, value.Unipolar, float64(val)/127)
	case msg.GetPitchBend(&ch, &rel, &abs):
		a.emitAbs(config.MIDIKey{Kind: config.MIDIPitchWheel}, now, value.Symmetric, float64(rel)/8192)
	case msg.GetAfterTouch(&ch, &val):
		a.emitAbs(config.MIDIKey{Kind: config.MIDIChannelPressure}, now, value.Unipolar, float64(val)/127)
	case msg.GetPolyAfterTouch(&ch, &key, &val):
		a.emitAbs(config.MIDIKey{Kind: config.MIDIPolyPressure, Number: key}, now, value.Unipolar, float64(val)/127)
	}
}

func (a *Adapter) emitAbs(key config.MIDIKey, t time.Time, r value.Range, v float64) {
	name, mapped := a.controls[key]
	if !mapped {
		return
	}
	ev := value.AbsoluteEvent(value.Address{Device: a.logical, Control: name}, t, r, v)
	select {
	case a.sink <- ev:
	default:
		// queue full: dispatcher stalled, drop rather than block the driver callback
	}
}

// Close stops the scan loop and closes every open port.
func (a *Adapter) Close() {
	close(a.done)
	a.wg.Wait()
	a.mu.Lock()
	defer a.mu.Unlock()
	for name, stop := range a.open {
		stop()
		delete(a.open, name)
	}
}
