package instrument

import "errors"

var (
	// ErrResourceNotFound is returned when a transport cannot be opened for a resource name
	ErrResourceNotFound = errors.New("the given resource's name was not found")

	// ErrDeviceNotFound is returned when no registered driver matches the identified model
	ErrDeviceNotFound = errors.New("no registered driver matches the device")

	// ErrTimeout is returned when a write or query does not complete in time
	ErrTimeout = errors.New("instrument operation timed out")

	// ErrMalformedReply is returned when a query reply cannot be parsed
	ErrMalformedReply = errors.New("malformed instrument reply")

	// ErrClosed is returned by operations on a closed transport
	ErrClosed = errors.New("transport is closed")

	// ErrStalled is returned by every operation after one was abandoned
	// mid-flight, since its reply may still arrive on the bus
	ErrStalled = errors.New("transport stalled by an unfinished operation")
)

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}
