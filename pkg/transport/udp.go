package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/rover/pkg/rover"
)

// PacketConn is the subset of *net.UDPConn used by a session.
// This abstraction enables unit testing without real network connections.
type PacketConn interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetWriteDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// SocketFactory creates bound UDP sockets.
type SocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (PacketConn, error)
}

// RealSocketFactory implements SocketFactory using net.ListenUDP.
type RealSocketFactory struct{}

// ListenUDP creates a new UDP socket.
func (RealSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (PacketConn, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ResolveFunc resolves a destination host for a single send.
type ResolveFunc func(ctx context.Context, host string, port int) (*net.UDPAddr, error)

// UDPOpener opens UDP sessions.
type UDPOpener struct {
	Factory     SocketFactory
	Resolve     ResolveFunc
	SendTimeout time.Duration
	Tap         Tap
	Logger      *slog.Logger
}

// NewUDPOpener returns an opener using real sockets and the system resolver.
func NewUDPOpener(sendTimeout time.Duration, logger *slog.Logger) *UDPOpener {
	return &UDPOpener{
		Factory:     RealSocketFactory{},
		Resolve:     ResolveUDP,
		SendTimeout: sendTimeout,
		Logger:      logger,
	}
}

// Open binds a local endpoint on port. Port 0 picks an ephemeral port.
func (o *UDPOpener) Open(port int) (Session, error) {
	factory := o.Factory
	if factory == nil {
		factory = RealSocketFactory{}
	}
	conn, err := factory.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("%w: udp port %d: %w", ErrPortUnavailable, port, err)
	}

	resolve := o.Resolve
	if resolve == nil {
		resolve = ResolveUDP
	}
	timeout := o.SendTimeout
	if timeout <= 0 {
		timeout = rover.DefaultSendTimeout
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &udpSession{
		id:      uuid.NewString(),
		conn:    conn,
		resolve: resolve,
		timeout: timeout,
		tap:     o.Tap,
	}
	s.logger = logger.With("session", s.id)
	s.logger.Info("transport: udp session opened", "local", conn.LocalAddr().String())
	return s, nil
}

type udpSession struct {
	id      string
	conn    PacketConn
	resolve ResolveFunc
	timeout time.Duration
	tap     Tap
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (s *udpSession) ID() string {
	return s.id
}

// LocalAddr returns the bound endpoint.
func (s *udpSession) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *udpSession) Send(ctx context.Context, dest rover.Destination, frame rover.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	// Resolved on every send; the rover may change address between frames.
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	addr, err := s.resolve(rctx, dest.Host, dest.Port)
	if err != nil {
		return &HostResolutionError{Host: dest.Host, Err: err}
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return &TransmitError{Dest: dest.String(), Err: err}
	}
	n, err := s.conn.WriteToUDP(frame.Bytes(), addr)
	if err != nil {
		return &TransmitError{Dest: dest.String(), Err: err}
	}
	if n != frame.Len() {
		return &TransmitError{Dest: dest.String(), Err: io.ErrShortWrite}
	}

	if s.tap != nil {
		local, _ := s.conn.LocalAddr().(*net.UDPAddr)
		s.tap.Tap(local, addr, frame)
	}
	return nil
}

func (s *udpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("transport: udp session closed")
	return s.conn.Close()
}

// ResolveUDP looks up host with the system resolver, preferring IPv4.
func ResolveUDP(ctx context.Context, host string, port int) (*net.UDPAddr, error) {
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	pick := addrs[0]
	for _, a := range addrs {
		if a.Unmap().Is4() {
			pick = a.Unmap()
			break
		}
	}
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(pick, uint16(port))), nil
}
