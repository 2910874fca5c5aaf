//go:build linux

// Package pointer adapts evdev pointing devices (mice, trackballs,
// touchpads) into the engine's event model. Devices are matched by a regular
// expression against their reported names and followed across hot-plug:
// a vanished device is reopened at the next rescan.
package pointer

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/viamrobotics/evdev"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/device"
	"github.com/leosat/MMVJ/internal/value"
)

// Adapter is a long-lived producer for one configured mouse device entry.
type Adapter struct {
	logical  string
	pattern  string
	re       *regexp.Regexp
	controls map[config.PointerKey]string
	sink     chan<- value.Event
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	open  map[string]*evdev.Evdev
	wg    sync.WaitGroup
	retry device.Backoff
}

// New builds an adapter for the device entry; Run starts it.
func New(logical string, cfg config.MouseDevice, sink chan<- value.Event, log zerolog.Logger) (*Adapter, error) {
	re, err := regexp.Compile(cfg.MatchNameRegex)
	if err != nil {
		return nil, err
	}
	controls := make(map[config.PointerKey]string, len(cfg.Controls))
	for name, key := range cfg.Controls {
		controls[key] = name
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		logical:  logical,
		pattern:  cfg.MatchNameRegex,
		re:       re,
		controls: controls,
		sink:     sink,
		log:      log.With().Str("mouse", logical).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		open:     map[string]*evdev.Evdev{},
	}, nil
}

// Equivalent reports whether cfg would produce an identical adapter.
func (a *Adapter) Equivalent(cfg config.MouseDevice) bool {
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

// Run scans /dev/input until Close, opening every device whose name matches.
// Rescans run every device.RescanInterval; only a failed directory scan
// switches to the backoff schedule.
func (a *Adapter) Run() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		wait := time.Duration(0)
		for {
			select {
			case <-a.ctx.Done():
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

func (a *Adapter) rescan() bool {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		a.log.Warn().Err(err).Msg("cannot scan /dev/input")
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	ok := true
	for _, path := range paths {
		if _, already := a.open[path]; already {
			continue
		}
		dev, err := evdev.OpenFile(path)
		if err != nil {
			// Unreadable nodes are common (permissions on keyboards etc).
			// Their names cannot be read, so they are skipped and never count
			// as failures, even when the device would match.
			continue
		}
		name := strings.TrimSpace(dev.Name())
		if !a.re.MatchString(name) {
			_ = dev.Close()
			continue
		}
		a.log.Info().Str("device", name).Str("path", path).Msg("pointer device attached")
		a.open[path] = dev
		a.wg.Add(1)
		go a.readLoop(path, dev)
	}
	return ok
}

// readLoop translates one device's event stream until it disappears.
func (a *Adapter) readLoop(path string, dev *evdev.Evdev) {
	defer a.wg.Done()
	defer a.drop(path)

	absRanges := dev.AbsoluteTypes()
	evChan := dev.Poll(a.ctx)
	for {
		select {
		case <-a.ctx.Done():
			return
		case env := <-evChan:
			if env == nil {
				a.log.Warn().Str("path", path).Msg("pointer device vanished")
				return
			}
			ev := env.Event
			now := time.Now()
			switch ev.Type {
			case evdev.EventRelative:
				a.emitRel(config.PointerKey{Kind: config.PointerRel, Code: uint16(ev.Code)}, now, float64(ev.Value))
				a.emitRel(config.PointerKey{Kind: config.PointerWheel, Code: uint16(ev.Code)}, now, float64(ev.Value))
			case evdev.EventAbsolute:
				info, haveInfo := absRanges[evdev.AbsoluteType(ev.Code)]
				if !haveInfo || info.Max <= info.Min {
					continue
				}
				pos := scaleAxis(ev.Value, info.Min, info.Max, -1, 1)
				if flat := float64(info.Flat) / float64(info.Max-info.Min); pos > -flat && pos < flat {
					pos = 0
				}
				a.emitAbs(config.PointerKey{Kind: config.PointerAbs, Code: uint16(ev.Code)}, now, pos)
			case evdev.EventKey:
				a.emitBtn(config.PointerKey{Kind: config.PointerButton, Code: uint16(ev.Code)}, now, ev.Value != 0)
			}
		}
	}
}

func scaleAxis(x, inMin, inMax int32, outMin, outMax float64) float64 {
	return float64(x-inMin)*(outMax-outMin)/float64(inMax-inMin) + outMin
}

func (a *Adapter) drop(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if dev, ok := a.open[path]; ok {
		_ = dev.Close()
		delete(a.open, path)
	}
}

func (a *Adapter) emitRel(key config.PointerKey, t time.Time, delta float64) {
	name, mapped := a.controls[key]
	if !mapped {
		return
	}
	a.send(value.RelativeEvent(value.Address{Device: a.logical, Control: name}, t, value.Symmetric, delta))
}

func (a *Adapter) emitAbs(key config.PointerKey, t time.Time, pos float64) {
	name, mapped := a.controls[key]
	if !mapped {
		return
	}
	a.send(value.AbsoluteEvent(value.Address{Device: a.logical, Control: name}, t, value.Symmetric, pos))
}

func (a *Adapter) emitBtn(key config.PointerKey, t time.Time, pressed bool) {
	name, mapped := a.controls[key]
	if !mapped {
		return
	}
	a.send(value.ButtonEvent(value.Address{Device: a.logical, Control: name}, t, pressed))
}

func (a *Adapter) send(ev value.Event) {
	select {
	case a.sink <- ev:
	default:
		// queue full: dispatcher stalled, drop rather than block the reader
	}
}

// Close stops the scan loop and closes every open device.
func (a *Adapter) Close() {
	a.cancel()
	a.wg.Wait()
}
