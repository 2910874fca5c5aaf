package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MIDIKind discriminates the MIDI control-key variants.
type MIDIKind int

const (
	MIDINote MIDIKind = iota
	MIDIControlChange
	MIDIPitchWheel
	MIDIChannelPressure
	MIDIPolyPressure
)

// MIDIKey is a parsed MIDI control literal such as "NOTE 60", "CC 7",
// "PITCH_WHEEL", "CHANNEL_PRESSURE" or "POLY_PRESSURE 60".
type MIDIKey struct {
	Kind   MIDIKind
	Number uint8
}

func (k MIDIKey) String() string {
	switch k.Kind {
	case MIDINote:
		return fmt.Sprintf("NOTE %d", k.Number)
	case MIDIControlChange:
		return fmt.Sprintf("CC %d", k.Number)
	case MIDIPitchWheel:
		return "PITCH_WHEEL"
	case MIDIChannelPressure:
		return "CHANNEL_PRESSURE"
	case MIDIPolyPressure:
		return fmt.Sprintf("POLY_PRESSURE %d", k.Number)
	default:
		return "?"
	}
}

// ParseMIDIKey parses a MIDI control literal.
func ParseMIDIKey(s string) (MIDIKey, error) {
	word, arg, hasArg := strings.Cut(strings.TrimSpace(s), " ")
	num := -1
	if hasArg {
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 0 || n > 127 {
			return MIDIKey{}, fmt.Errorf("midi control %q: number must be 0-127", s)
		}
		num = n
	}
	switch word {
	case "NOTE":
		if num < 0 {
			return MIDIKey{}, fmt.Errorf("midi control %q: NOTE needs a number", s)
		}
		return MIDIKey{Kind: MIDINote, Number: uint8(num)}, nil
	case "CC":
		if num < 0 {
			return MIDIKey{}, fmt.Errorf("midi control %q: CC needs a number", s)
		}
		return MIDIKey{Kind: MIDIControlChange, Number: uint8(num)}, nil
	case "PITCH_WHEEL":
		return MIDIKey{Kind: MIDIPitchWheel}, nil
	case "CHANNEL_PRESSURE":
		return MIDIKey{Kind: MIDIChannelPressure}, nil
	case "POLY_PRESSURE":
		if num < 0 {
			return MIDIKey{}, fmt.Errorf("midi control %q: POLY_PRESSURE needs a note number", s)
		}
		return MIDIKey{Kind: MIDIPolyPressure, Number: uint8(num)}, nil
	default:
		return MIDIKey{}, fmt.Errorf("unknown midi control %q", s)
	}
}

// UnmarshalYAML parses the literal form used in the controls map.
func (k *MIDIKey) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseMIDIKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PointerKind discriminates the pointer control-key variants.
type PointerKind int

const (
	PointerRel PointerKind = iota
	PointerAbs
	PointerButton
	PointerWheel
)

// PointerKey is a parsed pointer control literal such as "REL_X", "ABS_Y",
// "BTN_LEFT" or "WHEEL", carrying the evdev event code.
type PointerKey struct {
	Kind PointerKind
	Code uint16
}

// evdev codes from linux/input-event-codes.h for the names the config accepts.
const (
	codeRelX      = 0x00
	codeRelY      = 0x01
	codeRelWheel  = 0x08
	codeRelHWheel = 0x06
	codeAbsX      = 0x00
	codeAbsY      = 0x01
	codeBtnLeft   = 0x110
	codeBtnRight  = 0x111
	codeBtnMiddle = 0x112
	codeBtnSide   = 0x113
	codeBtnExtra  = 0x114
)

var pointerNames = map[string]PointerKey{
	"REL_X":      {PointerRel, codeRelX},
	"REL_Y":      {PointerRel, codeRelY},
	"ABS_X":      {PointerAbs, codeAbsX},
	"ABS_Y":      {PointerAbs, codeAbsY},
	"BTN_LEFT":   {PointerButton, codeBtnLeft},
	"BTN_RIGHT":  {PointerButton, codeBtnRight},
	"BTN_MIDDLE": {PointerButton, codeBtnMiddle},
	"BTN_SIDE":   {PointerButton, codeBtnSide},
	"BTN_EXTRA":  {PointerButton, codeBtnExtra},
	"WHEEL":      {PointerWheel, codeRelWheel},
	"HWHEEL":     {PointerWheel, codeRelHWheel},
}

func (k PointerKey) String() string {
	for name, v := range pointerNames {
		if v == k {
			return name
		}
	}
	switch k.Kind {
	case PointerRel:
		return fmt.Sprintf("REL %d", k.Code)
	case PointerAbs:
		return fmt.Sprintf("ABS %d", k.Code)
	case PointerWheel:
		return fmt.Sprintf("WHEEL %d", k.Code)
	default:
		return fmt.Sprintf("BTN %d", k.Code)
	}
}

// ParsePointerKey parses a pointer control literal. Besides the named forms,
// "REL n", "ABS n" and "BTN n" address raw evdev codes directly.
func ParsePointerKey(s string) (PointerKey, error) {
	trimmed := strings.TrimSpace(s)
	if k, ok := pointerNames[trimmed]; ok {
		return k, nil
	}
	word, arg, hasArg := strings.Cut(trimmed, " ")
	if hasArg {
		n, err := strconv.ParseUint(strings.TrimSpace(arg), 0, 16)
		if err == nil {
			switch word {
			case "REL":
				return PointerKey{PointerRel, uint16(n)}, nil
			case "ABS":
				return PointerKey{PointerAbs, uint16(n)}, nil
			case "BTN":
				return PointerKey{PointerButton, uint16(n)}, nil
			}
		}
	}
	return PointerKey{}, fmt.Errorf("unknown pointer control %q", s)
}

// UnmarshalYAML parses the literal form used in the controls map.
func (k *PointerKey) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePointerKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// VirtualKind discriminates the virtual-output control variants.
type VirtualKind int

const (
	VirtualAbs VirtualKind = iota
	VirtualButton
)

// VirtualKey is a parsed virtual-joystick control literal such as "ABS_X" or
// "BTN_0", carrying the uinput event code.
type VirtualKey struct {
	Kind VirtualKind
	Code uint16
}

var virtualAbsNames = map[string]uint16{
	"ABS_X":        0x00,
	"ABS_Y":        0x01,
	"ABS_Z":        0x02,
	"ABS_RX":       0x03,
	"ABS_RY":       0x04,
	"ABS_RZ":       0x05,
	"ABS_THROTTLE": 0x06,
	"ABS_RUDDER":   0x07,
	"ABS_WHEEL":    0x08,
	"ABS_GAS":      0x09,
	"ABS_BRAKE":    0x0a,
	"ABS_HAT0X":    0x10,
	"ABS_HAT0Y":    0x11,
}

// btnJoystick is BTN_JOYSTICK/BTN_TRIGGER, the base of the joystick button
// block; "BTN_n" maps to btnJoystick+n.
const btnJoystick = 0x120

func (k VirtualKey) String() string {
	if k.Kind == VirtualButton {
		return fmt.Sprintf("BTN_%d", k.Code-btnJoystick)
	}
	for name, code := range virtualAbsNames {
		if code == k.Code {
			return name
		}
	}
	return fmt.Sprintf("ABS %d", k.Code)
}

// ParseVirtualKey parses a virtual-joystick control literal.
func ParseVirtualKey(s string) (VirtualKey, error) {
	trimmed := strings.TrimSpace(s)
	if code, ok := virtualAbsNames[trimmed]; ok {
		return VirtualKey{VirtualAbs, code}, nil
	}
	if n, ok := strings.CutPrefix(trimmed, "BTN_"); ok {
		idx, err := strconv.ParseUint(n, 10, 16)
		if err == nil && idx < 16 {
			return VirtualKey{VirtualButton, uint16(btnJoystick + idx)}, nil
		}
	}
	word, arg, hasArg := strings.Cut(trimmed, " ")
	if hasArg {
		n, err := strconv.ParseUint(strings.TrimSpace(arg), 0, 16)
		if err == nil {
			switch word {
			case "ABS":
				return VirtualKey{VirtualAbs, uint16(n)}, nil
			case "BTN":
				return VirtualKey{VirtualButton, uint16(n)}, nil
			}
		}
	}
	return VirtualKey{}, fmt.Errorf("unknown joystick control %q", s)
}

// UnmarshalYAML parses the literal form used in the controls map.
func (k *VirtualKey) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseVirtualKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
