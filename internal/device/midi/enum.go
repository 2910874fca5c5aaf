package midi

import (
	"fmt"
	"regexp"

	"gitlab.com/gomidi/midi/v2"

	"github.com/leosat/MMVJ/internal/config"
)

// Ports returns the names of all MIDI input ports currently visible.
func Ports() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Monitor listens on every port matching pattern and hands each incoming
// message to out as a human-readable line. The returned stop function closes
// all listeners.
func Monitor(pattern string, out func(port, line string)) (func(), error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var stops []func()
	for _, in := range midi.GetInPorts() {
		port := in.String()
		if !re.MatchString(port) {
			continue
		}
		stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
			out(port, msg.String())
		})
		if err != nil {
			for _, s := range stops {
				s()
			}
			return nil, fmt.Errorf("listen on %q: %w", port, err)
		}
		stops = append(stops, stop)
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("no midi port matches %q", pattern)
	}
	return func() {
		for _, s := range stops {
			s()
		}
	}, nil
}

// Learn listens on every input port and reports, for each incoming message,
// the control literal to paste into a configuration file.
func Learn(out func(port, literal string)) (func(), error) {
	var stops []func()
	for _, in := range midi.GetInPorts() {
		port := in.String()
		stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
			if lit, ok := literal(msg); ok {
				out(port, lit)
			}
		})
		if err != nil {
			continue
		}
		stops = append(stops, stop)
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("no midi input ports available")
	}
	return func() {
		for _, s := range stops {
			s()
		}
	}, nil
}

// literal renders the config control literal for a message, when the message
// maps to one.
func literal(msg midi.Message) (string, bool) {
	var ch, key, vel, val uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return config.MIDIKey{Kind: config.MIDINote, Number: key}.String(), true
	case msg.GetControlChange(&ch, &key, &val):
		return config.MIDIKey{Kind: config.MIDIControlChange, Number: key}.String(), true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return config.MIDIKey{Kind: config.MIDIPitchWheel}.String(), true
	case msg.GetAfterTouch(&ch, &val):
		return config.MIDIKey{Kind: config.MIDIChannelPressure}.String(), true
	case msg.GetPolyAfterTouch(&ch, &key, &val):
		return config.MIDIKey{Kind: config.MIDIPolyPressure, Number: key}.String(), true
	}
	return "", false
}
