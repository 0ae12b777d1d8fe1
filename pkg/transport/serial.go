package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/gwillem/rover/pkg/rover"
)

// SerialOpener opens a tethered link to the rover's motor controller.
// Frames are newline delimited, so the same payload works over a serial line.
type SerialOpener struct {
	Device string
	Baud   int
	Tap    Tap
	Logger *slog.Logger

	// SendTimeout bounds each write. A stalled device otherwise blocks
	// Send forever.
	SendTimeout time.Duration

	// open is replaced in tests.
	open func(device string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialOpener returns an opener for device at baud.
func NewSerialOpener(device string, baud int, logger *slog.Logger) *SerialOpener {
	return &SerialOpener{Device: device, Baud: baud, Logger: logger, SendTimeout: rover.DefaultSendTimeout}
}

// Open opens the serial device. A serial line has no ports, so port is only
// logged.
func (o *SerialOpener) Open(port int) (Session, error) {
	open := o.open
	if open == nil {
		open = serial.Open
	}
	baud := o.Baud
	if baud <= 0 {
		baud = rover.DefaultBaud
	}

	p, err := open(o.Device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("%w: serial %s: %w", ErrPortUnavailable, o.Device, err)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := o.SendTimeout
	if timeout <= 0 {
		timeout = rover.DefaultSendTimeout
	}
	s := &serialSession{
		id:      uuid.NewString(),
		device:  o.Device,
		port:    p,
		tap:     o.Tap,
		timeout: timeout,
	}
	s.logger = logger.With("session", s.id)
	s.logger.Info("transport: serial session opened", "device", o.Device, "baud", baud, "requested_port", port)
	return s, nil
}

// errWriteStalled is returned while an earlier timed out write is still
// stuck in the driver.
var errWriteStalled = errors.New("previous write still pending")

type writeResult struct {
	n   int
	err error
}

type serialSession struct {
	id      string
	device  string
	port    serial.Port
	tap     Tap
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending chan writeResult
}

func (s *serialSession) ID() string {
	return s.id
}

// Send writes the frame to the line. dest is ignored; the device is the
// destination. A write that does not finish within the session timeout
// fails with a TransmitError wrapping os.ErrDeadlineExceeded.
func (s *serialSession) Send(ctx context.Context, dest rover.Destination, frame rover.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return &TransmitError{Dest: s.device, Err: err}
	}

	// A write that timed out may still own the port. Fail fast until it
	// drains rather than stacking writes behind it.
	if s.pending != nil {
		select {
		case <-s.pending:
			s.pending = nil
		default:
			return &TransmitError{Dest: s.device, Err: errWriteStalled}
		}
	}

	done := make(chan writeResult, 1)
	go func(b []byte) {
		n, err := s.port.Write(b)
		done <- writeResult{n: n, err: err}
	}(frame.Bytes())

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var res writeResult
	select {
	case res = <-done:
	case <-timer.C:
		s.pending = done
		s.logger.Debug("transport: serial write timed out", "timeout", s.timeout)
		return &TransmitError{Dest: s.device, Err: fmt.Errorf("write after %s: %w", s.timeout, os.ErrDeadlineExceeded)}
	case <-ctx.Done():
		s.pending = done
		return &TransmitError{Dest: s.device, Err: ctx.Err()}
	}

	n, err := res.n, res.err
	if err != nil {
		return &TransmitError{Dest: s.device, Err: err}
	}
	if n != frame.Len() {
		return &TransmitError{Dest: s.device, Err: io.ErrShortWrite}
	}
	if s.tap != nil {
		s.tap.Tap(nil, nil, frame)
	}
	return nil
}

func (s *serialSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("transport: serial session closed")
	return s.port.Close()
}

// ListSerialPorts returns candidate serial devices, skipping Bluetooth ports.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var out []string
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// NewOpener builds the opener selected by cfg.
func NewOpener(cfg *rover.Config, tap Tap, logger *slog.Logger) Opener {
	if cfg.Link == rover.LinkSerial {
		o := NewSerialOpener(cfg.Serial.Device, cfg.Serial.Baud, logger)
		o.SendTimeout = cfg.SendTimeout()
		o.Tap = tap
		return o
	}
	o := NewUDPOpener(cfg.SendTimeout(), logger)
	o.Tap = tap
	return o
}
