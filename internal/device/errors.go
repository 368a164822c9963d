package device

import "errors"

// Domain errors for the device package, checked with errors.Is.
var (
	// ErrUnknownDevice is returned for an id outside the fixed device set.
	ErrUnknownDevice = errors.New("device: unknown device")

	// ErrInvalidState is returned when a state is not "on" or "off".
	ErrInvalidState = errors.New("device: invalid state")

	// ErrActuationFailed is returned when the actuator could not apply a change.
	ErrActuationFailed = errors.New("device: actuation failed")
)
