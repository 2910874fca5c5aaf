package engine

import "errors"

// Error kinds surfaced with stable codes through the logging facility.
var (
	// ErrConfigInvalid marks a structurally or semantically bad
	// configuration; during reload it never replaces the active revision.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrDeviceUnavailable marks a transient device failure, retried with
	// backoff.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrDevicePermissionDenied is fatal on startup and retried on reload.
	ErrDevicePermissionDenied = errors.New("device permission denied")

	// ErrOutputConflict marks two mappings authoring the same control or
	// force-feedback sink.
	ErrOutputConflict = errors.New("output conflict")
)
