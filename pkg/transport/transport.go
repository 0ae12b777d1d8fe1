// Package transport sends control frames to the rover.
package transport

import (
	"context"
	"net"

	"github.com/gwillem/rover/pkg/rover"
)

// Session is an open link to the rover. Send may be called repeatedly until
// Close; calling Send after Close returns ErrSessionClosed.
type Session interface {
	// ID identifies the session in logs.
	ID() string
	// Send delivers one frame to dest. Failures are reported per call and
	// never close the session.
	Send(ctx context.Context, dest rover.Destination, frame rover.Frame) error
	// Close releases the bound endpoint.
	Close() error
}

// Opener opens sessions bound to a local port.
type Opener interface {
	Open(port int) (Session, error)
}

// Tap observes frames after they were handed to the link. local and remote
// are nil for links without addresses.
type Tap interface {
	Tap(local, remote *net.UDPAddr, frame rover.Frame)
}
