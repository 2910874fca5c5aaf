package value

import "time"

// EventKind discriminates the variants of Event.
type EventKind int

const (
	// KindAbsolute is a position report for an absolute control.
	KindAbsolute EventKind = iota
	// KindRelative is a delta report for a relative control.
	KindRelative
	// KindButton is a press or release edge.
	KindButton
	// KindFFUpload is a constant-force upload arriving from the host
	// through a virtual output, routed back to the steering stage.
	KindFFUpload
	// KindFFCancel clears any force previously uploaded to the control.
	KindFFCancel
)

func (k EventKind) String() string {
	switch k {
	case KindAbsolute:
		return "absolute"
	case KindRelative:
		return "relative"
	case KindButton:
		return "button"
	case KindFFUpload:
		return "ff-upload"
	case KindFFCancel:
		return "ff-cancel"
	default:
		return "unknown"
	}
}

// Event is a timestamped control event flowing between adapters and the
// dispatcher. Which fields are meaningful depends on Kind.
type Event struct {
	Kind   EventKind
	Source Address
	Time   time.Time

	// Sample carries the position or delta for KindAbsolute/KindRelative.
	Sample Sample

	// Pressed carries the edge for KindButton.
	Pressed bool

	// Force is the signed constant-force level in [-1, 1] for KindFFUpload,
	// already combined from the device magnitude and direction.
	Force float64
}

// AbsoluteEvent builds a KindAbsolute event.
func AbsoluteEvent(src Address, t time.Time, r Range, v float64) Event {
	return Event{Kind: KindAbsolute, Source: src, Time: t, Sample: Abs(r, v)}
}

// RelativeEvent builds a KindRelative event.
func RelativeEvent(src Address, t time.Time, r Range, delta float64) Event {
	return Event{Kind: KindRelative, Source: src, Time: t, Sample: Rel(r, delta)}
}

// ButtonEvent builds a KindButton event.
func ButtonEvent(src Address, t time.Time, pressed bool) Event {
	v := 0.0
	if pressed {
		v = 1.0
	}
	return Event{Kind: KindButton, Source: src, Time: t, Pressed: pressed, Sample: Abs(Button, v)}
}

// ForceFeedback is the back-channel payload delivered to a stage through
// Feedback. A zero Level with Cancel set clears the stored force.
type ForceFeedback struct {
	Cancel bool
	Level  float64
}
