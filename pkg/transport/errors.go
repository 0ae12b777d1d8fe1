package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrPortUnavailable is returned by Open when the local endpoint cannot
	// be bound.
	ErrPortUnavailable = errors.New("port unavailable")

	// ErrSessionClosed is returned by Send after Close.
	ErrSessionClosed = errors.New("session closed")
)

// HostResolutionError reports a destination that could not be resolved.
// The session stays usable.
type HostResolutionError struct {
	Host string
	Err  error
}

func (e *HostResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Host, e.Err)
}

func (e *HostResolutionError) Unwrap() error {
	return e.Err
}

// TransmitError reports a failed write. The session stays usable.
type TransmitError struct {
	Dest string
	Err  error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Dest, e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}
