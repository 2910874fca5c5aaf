//go:build linux

// Package virtual materializes computed axis and button state as uinput
// virtual joysticks and feeds force-feedback uploads from the host back into
// the engine as ordinary events.
package virtual

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/linux/uinput"
	"github.com/leosat/MMVJ/internal/value"
)

// Axis extremes reported to the host for every virtual absolute axis.
const (
	axisMin = -32767
	axisMax = 32767
)

// Output is one live virtual joystick: its host-visible identity, the
// declared control set and the uinput handle. The adapter tracks the last
// emitted value per control and only writes changes.
type Output struct {
	Logical    string
	Persistent bool

	identity uinput.Identity
	controls map[string]config.VirtualKey
	dev      *uinput.Device
	ff       bool
	log      zerolog.Logger

	lastAbs map[uint16]int32
	lastBtn map[uint16]bool
	forces  chan value.ForceFeedback
}

// New creates the virtual device described by cfg under the logical name.
// persistent marks the handle for reuse across reloads. acceptFF advertises
// constant-force slots and starts the feedback reader; it is set when a
// steering mapping targets this joystick.
func New(logical string, cfg config.VirtualJoystick, persistent, acceptFF bool, log zerolog.Logger) (*Output, error) {
	id := uinput.Identity{
		Name:    cfg.Name,
		Vendor:  cfg.Properties.VendorID,
		Product: cfg.Properties.ProductID,
		Version: cfg.Properties.Version,
	}
	var axes []uinput.AbsAxis
	var keys []uint16
	for _, key := range cfg.Controls {
		switch key.Kind {
		case config.VirtualAbs:
			axes = append(axes, uinput.AbsAxis{Code: key.Code, Min: axisMin, Max: axisMax})
		case config.VirtualButton:
			keys = append(keys, key.Code)
		}
	}
	ffMax := uint32(0)
	if acceptFF {
		ffMax = 16
	}
	dev, err := uinput.Create(id, axes, keys, ffMax)
	if err != nil {
		return nil, fmt.Errorf("virtual joystick %q: %w", logical, err)
	}

	o := &Output{
		Logical:    logical,
		Persistent: persistent,
		identity:   id,
		controls:   cfg.Controls,
		dev:        dev,
		ff:         acceptFF,
		log:        log.With().Str("joystick", logical).Logger(),
		lastAbs:    map[uint16]int32{},
		lastBtn:    map[uint16]bool{},
		forces:     make(chan value.ForceFeedback, 16),
	}
	if acceptFF {
		go dev.ReadForces(o.deliverForce)
	}
	o.log.Info().Str("name", id.Name).Msg("virtual joystick created")
	return o, nil
}

// Matches reports whether cfg describes the same device: identical identity
// and control set. Only then may a persistent handle be reused across a
// reload without the host seeing a disconnect.
func (o *Output) Matches(cfg config.VirtualJoystick) bool {
	if o.identity.Name != cfg.Name ||
		o.identity.Vendor != cfg.Properties.VendorID ||
		o.identity.Product != cfg.Properties.ProductID ||
		o.identity.Version != cfg.Properties.Version {
		return false
	}
	if len(o.controls) != len(cfg.Controls) {
		return false
	}
	for name, key := range cfg.Controls {
		if o.controls[name] != key {
			return false
		}
	}
	return true
}

// AcceptsFF reports whether the device was created with force-feedback
// slots. A change in force-feedback routing forces a rebuild even for
// persistent outputs, since capability bits are fixed at creation.
func (o *Output) AcceptsFF() bool {
	return o.ff
}

// Flush emits every authored control whose value changed since the last
// emit, followed by a single sync. Controls without an authored value hold
// their previous state.
func (o *Output) Flush(values map[string]value.Sample) error {
	dirty := false
	for name, s := range values {
		key, ok := o.controls[name]
		if !ok {
			continue
		}
		switch key.Kind {
		case config.VirtualAbs:
			raw := scaleAxis(s)
			if last, seen := o.lastAbs[key.Code]; seen && last == raw {
				continue
			}
			if err := o.dev.SendAbs(key.Code, raw); err != nil {
				return err
			}
			o.lastAbs[key.Code] = raw
			dirty = true
		case config.VirtualButton:
			pressed := s.Value >= s.Range.Mid()
			if last, seen := o.lastBtn[key.Code]; seen && last == pressed {
				continue
			}
			if err := o.dev.SendKey(key.Code, pressed); err != nil {
				return err
			}
			o.lastBtn[key.Code] = pressed
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	return o.dev.Sync()
}

// scaleAxis maps the sample from its own range onto the device axis span.
func scaleAxis(s value.Sample) int32 {
	t := s.Range.Normalize(s.Range.Clamp(s.Value))
	return int32(math.Round(axisMin + t*(axisMax-axisMin)))
}

// Forces returns the channel of decoded force-feedback commands from the
// host, already reduced to a signed level in [-1, 1].
func (o *Output) Forces() <-chan value.ForceFeedback {
	return o.forces
}

func (o *Output) deliverForce(f uinput.Force) {
	ff := value.ForceFeedback{Cancel: f.Cancel}
	if !f.Cancel {
		// Project the 16-bit direction angle onto the single steering axis.
		angle := 2 * math.Pi * float64(f.Direction) / 65536
		ff.Level = float64(f.Level) / 32767 * math.Sin(angle)
	}
	select {
	case o.forces <- ff:
	default:
		o.log.Warn().Msg("force-feedback queue full, dropping command")
	}
}

// Close destroys the virtual device. Persistent outputs are only closed when
// a reload drops, disables or changes their configuration, or at shutdown.
func (o *Output) Close() error {
	o.log.Info().Msg("virtual joystick destroyed")
	return o.dev.Close()
}
