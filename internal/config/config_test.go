package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDoc = `
global:
  update_rate: 1000
midi_devices:
  deck:
    match_name_regex: "nanoKONTROL.*"
    controls:
      wheel: PITCH_WHEEL
      throttle: CC 7
      pad: NOTE 60
mouse_devices:
  ball:
    match_name_regex: "Trackball"
    controls:
      x: REL_X
      click: BTN_LEFT
virtual_joysticks:
  pad:
    enabled: true
    persistent: true
    name: "Test Pad"
    properties: { vendor_id: 0x1234, product_id: 0x5678, version: 3 }
    controls:
      steer: ABS_X
      gas: ABS_GAS
      fire: BTN_0
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation:
      - steering: { sensitivity: 0.01, autocenter_halflife: 1.0, hold_factor: 0.5, ff_scale: 1.0, alpha: 0.9 }
  - source: { device: deck, control: throttle }
    destination: { joystick: pad, control: gas }
    transformation:
      - pedal_filter: { rise_rate: 5, fall_rate: 4 }
      - s_curve: { k: 8 }
  - source: { device: deck, control: pad }
    destination: { joystick: pad, control: fire }
    transformation: []
`

func TestParseFullDocument(t *testing.T) {
	cfg, err := Parse([]byte(baseDoc))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Global.UpdateRate)
	require.Len(t, cfg.Mappings, 3)

	deck := cfg.MIDIDevices["deck"]
	assert.Equal(t, MIDIKey{Kind: MIDIPitchWheel}, deck.Controls["wheel"])
	assert.Equal(t, MIDIKey{Kind: MIDIControlChange, Number: 7}, deck.Controls["throttle"])
	assert.Equal(t, MIDIKey{Kind: MIDINote, Number: 60}, deck.Controls["pad"])

	ball := cfg.MouseDevices["ball"]
	assert.Equal(t, PointerKey{Kind: PointerRel, Code: 0}, ball.Controls["x"])
	assert.Equal(t, PointerKey{Kind: PointerButton, Code: 0x110}, ball.Controls["click"])

	pad := cfg.VirtualJoysticks["pad"]
	assert.Equal(t, uint16(0x1234), pad.Properties.VendorID)
	assert.Equal(t, VirtualKey{Kind: VirtualAbs, Code: 0}, pad.Controls["steer"])
	assert.Equal(t, VirtualKey{Kind: VirtualButton, Code: 0x120}, pad.Controls["fire"])

	st := cfg.Mappings[0].Transformation[0]
	assert.Equal(t, "steering", st.Name)
	assert.Equal(t, 0.01, st.Params.Sensitivity)
	assert.Equal(t, 0.9, st.Params.Alpha)
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(`
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultUpdateRate, cfg.Global.UpdateRate)
	assert.Equal(t, "pad", cfg.VirtualJoysticks["pad"].Name, "name defaults to the logical name")
}

func TestSteeringAlphaDefaultsToOne(t *testing.T) {
	cfg, err := Parse([]byte(`
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation:
      - steering: { sensitivity: 0.01 }
`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Mappings[0].Transformation[0].Params.Alpha)
}

func TestBareStageNameParses(t *testing.T) {
	cfg, err := Parse([]byte(`
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: [invert, quadratic]
`))
	require.NoError(t, err)
	names := []string{
		cfg.Mappings[0].Transformation[0].Name,
		cfg.Mappings[0].Transformation[1].Name,
	}
	assert.Equal(t, []string{"invert", "quadratic"}, names)
}

func TestRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("global:\n  update_rat: 42\n"))
	assert.Error(t, err)
}

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"negative update rate", "global: { update_rate: -5 }\n"},
		{"excessive update rate", "global: { update_rate: 20000 }\n"},
		{"bad regex", `
midi_devices:
  deck: { match_name_regex: "[", controls: { w: PITCH_WHEEL } }
`},
		{"unknown stage", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: [warp_drive]
`},
		{"undeclared source", `
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ghost, control: x }
    destination: { joystick: pad, control: steer }
    transformation: []
`},
		{"undeclared destination control", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: nitro }
    transformation: []
`},
		{"duplicate destination", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X, y: REL_Y } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: []
  - source: { device: ball, control: y }
    destination: { joystick: pad, control: steer }
    transformation: []
`},
		{"two force-feedback sinks on one joystick", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X, y: REL_Y } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X, tilt: ABS_Y }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: [{ steering: { sensitivity: 0.01 } }]
  - source: { device: ball, control: y }
    destination: { joystick: pad, control: tilt }
    transformation: [{ steering: { sensitivity: 0.01 } }]
`},
		{"clamp without bounds", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: [clamp]
`},
		{"s_curve k out of bounds", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: [{ s_curve: { k: -1 } }]
`},
		{"hold_factor out of bounds", `
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: [{ steering: { sensitivity: 0.01, hold_factor: 1.5 } }]
`},
		{"undeclared hold reference", `
midi_devices:
  deck: { match_name_regex: "k", controls: { slider: CC 7 } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { gas: ABS_GAS }
mappings:
  - source: { device: deck, control: slider }
    destination: { joystick: pad, control: gas }
    transformation:
      - pedal_filter: { rise_rate: 5, fall_rate: 4, fall_hold_ref: { device: deck, control: ghost } }
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDisabledMappingEscapesConflictChecks(t *testing.T) {
	_, err := Parse([]byte(`
mouse_devices:
  ball: { match_name_regex: "x", controls: { x: REL_X, y: REL_Y } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { steer: ABS_X }
mappings:
  - source: { device: ball, control: x }
    destination: { joystick: pad, control: steer }
    transformation: []
  - source: { device: ball, control: y }
    destination: { joystick: pad, control: steer }
    enabled: false
    transformation: []
`))
	assert.NoError(t, err)
}

func TestParseMIDIKeyLiterals(t *testing.T) {
	cases := map[string]MIDIKey{
		"PITCH_WHEEL":      {Kind: MIDIPitchWheel},
		"NOTE 60":          {Kind: MIDINote, Number: 60},
		"CC 7":             {Kind: MIDIControlChange, Number: 7},
		"CHANNEL_PRESSURE": {Kind: MIDIChannelPressure},
		"POLY_PRESSURE 61": {Kind: MIDIPolyPressure, Number: 61},
	}
	for lit, want := range cases {
		got, err := ParseMIDIKey(lit)
		require.NoError(t, err, lit)
		assert.Equal(t, want, got, lit)
		assert.Equal(t, lit, got.String())
	}

	for _, bad := range []string{"NOTE", "NOTE 128", "CC -1", "GURGLE 3", ""} {
		_, err := ParseMIDIKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePointerKeyLiterals(t *testing.T) {
	got, err := ParsePointerKey("REL_X")
	require.NoError(t, err)
	assert.Equal(t, PointerKey{Kind: PointerRel, Code: 0}, got)

	got, err = ParsePointerKey("WHEEL")
	require.NoError(t, err)
	assert.Equal(t, PointerKey{Kind: PointerWheel, Code: 8}, got)

	got, err = ParsePointerKey("BTN 0x113")
	require.NoError(t, err)
	assert.Equal(t, PointerKey{Kind: PointerButton, Code: 0x113}, got)

	_, err = ParsePointerKey("KEY_A")
	assert.Error(t, err)
}

func TestParseVirtualKeyLiterals(t *testing.T) {
	got, err := ParseVirtualKey("ABS_GAS")
	require.NoError(t, err)
	assert.Equal(t, VirtualKey{Kind: VirtualAbs, Code: 0x09}, got)

	got, err = ParseVirtualKey("BTN_3")
	require.NoError(t, err)
	assert.Equal(t, VirtualKey{Kind: VirtualButton, Code: 0x123}, got)

	_, err = ParseVirtualKey("BTN_99")
	assert.Error(t, err)
}

func TestInfiniteRatesParse(t *testing.T) {
	cfg, err := Parse([]byte(`
midi_devices:
  deck: { match_name_regex: "k", controls: { slider: CC 7 } }
virtual_joysticks:
  pad:
    enabled: true
    properties: { vendor_id: 1, product_id: 2, version: 3 }
    controls: { gas: ABS_GAS }
mappings:
  - source: { device: deck, control: slider }
    destination: { joystick: pad, control: gas }
    transformation:
      - pedal_filter: { rise_rate: .inf, fall_rate: .inf }
`))
	require.NoError(t, err)
	p := cfg.Mappings[0].Transformation[0].Params
	assert.True(t, math.IsInf(p.RiseRate, 1))
	assert.True(t, math.IsInf(p.FallRate, 1))
}
