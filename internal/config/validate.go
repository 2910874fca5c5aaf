package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

// ErrInvalid is wrapped by every structural or semantic validation error, so
// callers can distinguish a bad document from an I/O failure.
var ErrInvalid = errors.New("invalid configuration")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks the document structurally and semantically: regexes
// compile, every mapping references declared controls, no two mappings
// author the same output control, force feedback has a single sink per
// joystick, and all stage parameters are within bounds.
func (c *Config) Validate() error {
	if c.Global.UpdateRate < 1 || c.Global.UpdateRate > MaxUpdateRate {
		return invalidf("global.update_rate %d out of range 1-%d", c.Global.UpdateRate, MaxUpdateRate)
	}

	for name, dev := range c.MIDIDevices {
		if _, ok := c.MouseDevices[name]; ok {
			return invalidf("device name %q declared as both midi and mouse", name)
		}
		if dev.MatchNameRegex == "" {
			return invalidf("midi device %q: match_name_regex missing", name)
		}
		if _, err := regexp.Compile(dev.MatchNameRegex); err != nil {
			return invalidf("midi device %q: bad regex: %v", name, err)
		}
		if len(dev.Controls) == 0 {
			return invalidf("midi device %q declares no controls", name)
		}
	}
	for name, dev := range c.MouseDevices {
		if dev.MatchNameRegex == "" {
			return invalidf("mouse device %q: match_name_regex missing", name)
		}
		if _, err := regexp.Compile(dev.MatchNameRegex); err != nil {
			return invalidf("mouse device %q: bad regex: %v", name, err)
		}
		if len(dev.Controls) == 0 {
			return invalidf("mouse device %q declares no controls", name)
		}
	}

	for name, vj := range c.VirtualJoysticks {
		if len(vj.Controls) == 0 {
			return invalidf("virtual joystick %q declares no controls", name)
		}
		byCode := map[VirtualKey]string{}
		for ctrl, key := range vj.Controls {
			if prev, dup := byCode[key]; dup {
				return invalidf("virtual joystick %q: controls %q and %q share code %s", name, prev, ctrl, key)
			}
			byCode[key] = ctrl
		}
	}

	authored := map[string]int{}
	ffSink := map[string]int{}
	for i, m := range c.Mappings {
		if err := c.validateMapping(i, m); err != nil {
			return err
		}
		if !m.IsEnabled() {
			continue
		}
		dst := m.Destination.Joystick + "." + m.Destination.Control
		if prev, dup := authored[dst]; dup {
			return invalidf("mappings %d and %d both author output control %s", prev, i, dst)
		}
		authored[dst] = i
		if hasSteering(m) {
			if prev, dup := ffSink[m.Destination.Joystick]; dup {
				return invalidf("mappings %d and %d both accept force feedback on joystick %q", prev, i, m.Destination.Joystick)
			}
			ffSink[m.Destination.Joystick] = i
		}
	}
	return nil
}

func hasSteering(m Mapping) bool {
	for _, st := range m.Transformation {
		if st.Name == "steering" {
			return true
		}
	}
	return false
}

// LookupSource resolves a source reference against the declared devices.
func (c *Config) LookupSource(ref SourceRef) (isMIDI bool, ok bool) {
	if dev, found := c.MIDIDevices[ref.Device]; found {
		_, ok = dev.Controls[ref.Control]
		return true, ok
	}
	if dev, found := c.MouseDevices[ref.Device]; found {
		_, ok = dev.Controls[ref.Control]
		return false, ok
	}
	return false, false
}

func (c *Config) validateMapping(i int, m Mapping) error {
	if _, ok := c.LookupSource(m.Source); !ok {
		return invalidf("mapping %d: source %s.%s not declared", i, m.Source.Device, m.Source.Control)
	}
	vj, ok := c.VirtualJoysticks[m.Destination.Joystick]
	if !ok {
		return invalidf("mapping %d: destination joystick %q not declared", i, m.Destination.Joystick)
	}
	if _, ok := vj.Controls[m.Destination.Control]; !ok {
		return invalidf("mapping %d: destination control %q not declared on joystick %q", i, m.Destination.Control, m.Destination.Joystick)
	}
	for j, st := range m.Transformation {
		if err := validateStage(st); err != nil {
			return invalidf("mapping %d stage %d (%s): %v", i, j, st.Name, err)
		}
		if st.Name == "pedal_filter" && st.Params.FallHoldRef != nil {
			if _, ok := c.LookupSource(*st.Params.FallHoldRef); !ok {
				return invalidf("mapping %d stage %d: fall_hold_ref %s.%s not declared",
					i, j, st.Params.FallHoldRef.Device, st.Params.FallHoldRef.Control)
			}
		}
	}
	return nil
}

func validateStage(st StageSpec) error {
	p := st.Params
	switch st.Name {
	case "clamp":
		if p.Lo == nil || p.Hi == nil {
			return errors.New("lo and hi required")
		}
		if *p.Lo >= *p.Hi {
			return fmt.Errorf("lo %v must be below hi %v", *p.Lo, *p.Hi)
		}
	case "invert", "linear", "quadratic", "cubic", "smoothstep", "smootherstep":
		// no parameters
	case "deadzone":
		if p.Width < 0 {
			return fmt.Errorf("width %v must be >= 0", p.Width)
		}
	case "integrate":
		if p.Lo == nil || p.Hi == nil {
			return errors.New("lo and hi required")
		}
		if *p.Lo >= *p.Hi {
			return fmt.Errorf("lo %v must be below hi %v", *p.Lo, *p.Hi)
		}
		if p.Default != nil && (*p.Default < *p.Lo || *p.Default > *p.Hi) {
			return fmt.Errorf("default %v outside [%v, %v]", *p.Default, *p.Lo, *p.Hi)
		}
		if p.LeakHalfLife < 0 {
			return fmt.Errorf("leak_halflife %v must be >= 0", p.LeakHalfLife)
		}
	case "s_curve":
		if p.K <= 0 {
			return fmt.Errorf("k %v must be > 0", p.K)
		}
	case "exponential":
		if p.Base <= 0 || p.Base == 1 {
			return fmt.Errorf("base %v must be > 0 and != 1", p.Base)
		}
	case "moving_average":
		if p.Window < 1 {
			return fmt.Errorf("window %d must be >= 1", p.Window)
		}
	case "pedal_filter":
		if p.RiseRate <= 0 {
			return fmt.Errorf("rise_rate %v must be > 0", p.RiseRate)
		}
		if p.FallRate < 0 {
			return fmt.Errorf("fall_rate %v must be >= 0", p.FallRate)
		}
		if p.FallTimeout < 0 {
			return fmt.Errorf("fall_timeout %v must be >= 0", p.FallTimeout)
		}
	case "steering":
		if p.AutocenterHalfLife < 0 && !math.IsInf(p.AutocenterHalfLife, 1) {
			return fmt.Errorf("autocenter_halflife %v must be >= 0", p.AutocenterHalfLife)
		}
		if p.HoldFactor < 0 || p.HoldFactor > 1 {
			return fmt.Errorf("hold_factor %v must be in [0, 1]", p.HoldFactor)
		}
		if p.FFScale < 0 {
			return fmt.Errorf("ff_scale %v must be >= 0", p.FFScale)
		}
		if p.Alpha <= 0 || p.Alpha > 1 {
			return fmt.Errorf("alpha %v must be in (0, 1]", p.Alpha)
		}
	default:
		return fmt.Errorf("unknown stage %q", st.Name)
	}
	return nil
}
