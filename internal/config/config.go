// Package config defines the declarative configuration of the engine: which
// physical devices to open, which virtual joysticks to expose, and the
// mappings with their transformation pipelines. It parses YAML strictly,
// fills defaults and validates structure and semantics before a revision is
// handed to the reconciler.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultUpdateRate is the dispatcher tick rate in Hz when global.update_rate
// is not set.
const DefaultUpdateRate = 500

// MaxUpdateRate is the highest accepted tick rate in Hz.
const MaxUpdateRate = 10000

// Config is the root of the configuration document.
type Config struct {
	Global           Global                     `yaml:"global"`
	MIDIDevices      map[string]MIDIDevice      `yaml:"midi_devices"`
	MouseDevices     map[string]MouseDevice     `yaml:"mouse_devices"`
	VirtualJoysticks map[string]VirtualJoystick `yaml:"virtual_joysticks"`
	Mappings         []Mapping                  `yaml:"mappings"`
}

// Global carries engine-wide settings.
type Global struct {
	UpdateRate              int  `yaml:"update_rate"`
	PersistentJoysticks     bool `yaml:"persistent_joysticks"`
	EnableSteeringIndicator bool `yaml:"enable_steering_indicator_window"`
}

// MIDIDevice declares one MIDI input: a regex matched against port names and
// the user-named controls read from it.
type MIDIDevice struct {
	MatchNameRegex string             `yaml:"match_name_regex"`
	Controls       map[string]MIDIKey `yaml:"controls"`
}

// MouseDevice declares one pointer input: a regex matched against evdev
// device names and the user-named controls read from it.
type MouseDevice struct {
	MatchNameRegex string                `yaml:"match_name_regex"`
	Controls       map[string]PointerKey `yaml:"controls"`
}

// VirtualJoystick declares one virtual output device.
type VirtualJoystick struct {
	Enabled    bool                  `yaml:"enabled"`
	Persistent bool                  `yaml:"persistent"`
	Name       string                `yaml:"name"`
	Properties JoystickProperties    `yaml:"properties"`
	Controls   map[string]VirtualKey `yaml:"controls"`
}

// JoystickProperties are the identity fields the host operating system sees.
// Together with Name they are the persistence key across reloads.
type JoystickProperties struct {
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
	Version   uint16 `yaml:"version"`
}

// SourceRef names an input control: logical device name plus control name.
type SourceRef struct {
	Device  string `yaml:"device"`
	Control string `yaml:"control"`
}

// DestRef names an output control: logical joystick name plus control name.
type DestRef struct {
	Joystick string `yaml:"joystick"`
	Control  string `yaml:"control"`
}

// Mapping binds one input control to one output control through a pipeline.
type Mapping struct {
	Source         SourceRef   `yaml:"source"`
	Destination    DestRef     `yaml:"destination"`
	Enabled        *bool       `yaml:"enabled"`
	Transformation []StageSpec `yaml:"transformation"`
}

// IsEnabled reports whether the mapping participates in dispatch; mappings
// are enabled unless explicitly turned off.
func (m Mapping) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// StageSpec is one entry of a transformation list: a single stage name
// carrying its parameter map.
type StageSpec struct {
	Name   string
	Params StageParams
}

// StageParams is the union of all stage parameters; which fields are
// consulted depends on the stage name.
type StageParams struct {
	// clamp, integrate
	Lo       *float64 `yaml:"lo"`
	Hi       *float64 `yaml:"hi"`
	Override bool     `yaml:"override_range"`

	// integrate
	Default      *float64 `yaml:"default"`
	LeakHalfLife float64  `yaml:"leak_halflife"`

	// s_curve
	K float64 `yaml:"k"`
	// exponential
	Base float64 `yaml:"base"`

	// moving_average
	Window int `yaml:"window"`

	// deadzone
	Width float64 `yaml:"width"`

	// pedal_filter
	RiseRate    float64    `yaml:"rise_rate"`
	FallRate    float64    `yaml:"fall_rate"`
	FallTimeout float64    `yaml:"fall_timeout"`
	FallHoldRef *SourceRef `yaml:"fall_hold_ref"`

	// steering
	Sensitivity        float64 `yaml:"sensitivity"`
	AutocenterHalfLife float64 `yaml:"autocenter_halflife"`
	HoldFactor         float64 `yaml:"hold_factor"`
	FFScale            float64 `yaml:"ff_scale"`
	Alpha              float64 `yaml:"alpha"`
}

// UnmarshalYAML decodes a transformation entry of the form
//
//	- s_curve: {k: 8}
//	- invert
//
// that is, either a single-key mapping or a bare stage name.
func (s *StageSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.Name)
	}
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("transformation entry must be a stage name or a single-key map (line %d)", node.Line)
	}
	if err := node.Content[0].Decode(&s.Name); err != nil {
		return err
	}
	return node.Content[1].Decode(&s.Params)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func (c *Config) applyDefaults() {
	if c.Global.UpdateRate == 0 {
		c.Global.UpdateRate = DefaultUpdateRate
	}
	for name, vj := range c.VirtualJoysticks {
		if vj.Name == "" {
			vj.Name = name
			c.VirtualJoysticks[name] = vj
		}
	}
	for i := range c.Mappings {
		for j := range c.Mappings[i].Transformation {
			p := &c.Mappings[i].Transformation[j].Params
			if c.Mappings[i].Transformation[j].Name == "steering" && p.Alpha == 0 {
				p.Alpha = 1
			}
		}
	}
}
