package pcmdev

import "errors"

var (
	// ErrInvalidArgument is returned for nil or otherwise invalid endpoint references and arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when the descriptor source is missing or an index is out of range.
	ErrNotFound = errors.New("not found")
	// ErrRetryable is returned when discovery found no usable endpoint yet.
	ErrRetryable = errors.New("no usable endpoint found, try again")
	// ErrDiscoveryExhausted is returned together with ErrRetryable once all attempts are used.
	ErrDiscoveryExhausted = errors.New("discovery attempts exhausted")
	// ErrOutOfMemory is returned when an attachment cannot be copied in.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrOrderingViolation is returned when a lifecycle step is requested out of order.
	ErrOrderingViolation = errors.New("lifecycle ordering violation")
	// ErrHardwareFailure is returned when the backend fails.
	ErrHardwareFailure = errors.New("hardware failure")
	// ErrControlNotFound is returned when a mixer control does not exist.
	ErrControlNotFound = errors.New("mixer control not found")
)
