// Package teleop provides the control loop that streams drive commands to
// the rover.
package teleop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gwillem/rover/pkg/rover"
	"github.com/gwillem/rover/pkg/transport"
)

// repeatLogEvery limits how often an identical tick failure is logged.
const repeatLogEvery = 20

// State represents the outcome of one tick.
type State struct {
	Tick      uint64
	Sticks    rover.Sticks
	Speed     int
	Left      rover.Intensity
	Right     rover.Intensity
	Frame     rover.Frame
	Timestamp time.Time
	Error     error
}

// Controller manages the streaming session and its control loop.
type Controller struct {
	inputs   *Inputs
	opener   transport.Opener
	interval time.Duration
	bindPort int
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	session transport.Session
	cancel  context.CancelFunc
	done    chan struct{}

	ticks   atomic.Uint64
	stateCh chan State
	logCh   chan string

	// touched only by the loop goroutine
	lastErr    string
	failStreak int
}

// Config holds configuration for the controller.
type Config struct {
	Inputs   *Inputs
	Opener   transport.Opener
	Interval time.Duration // defaults to rover.DefaultInterval
	BindPort int           // 0 binds the destination port
	Logger   *slog.Logger
}

// NewController creates a new controller. Nothing is opened until Start.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Inputs == nil {
		return nil, fmt.Errorf("teleop: inputs are required")
	}
	if cfg.Opener == nil {
		return nil, fmt.Errorf("teleop: opener is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = rover.DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		inputs:   cfg.Inputs,
		opener:   cfg.Opener,
		interval: cfg.Interval,
		bindPort: cfg.BindPort,
		logger:   cfg.Logger,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}, nil
}

// States returns a channel that receives tick results.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return int(time.Second / c.interval)
}

// Inputs returns the inputs read by the loop.
func (c *Controller) Inputs() *Inputs {
	return c.inputs
}

// Ticks returns the number of ticks executed since creation.
func (c *Controller) Ticks() uint64 {
	return c.ticks.Load()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Running reports whether the loop is streaming.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked()
	return c.running
}

// SessionID returns the id of the open session, or "".
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked()
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

// Start validates the destination, opens a session and starts the loop.
// Calling Start while streaming is ignored.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reapLocked()
	if c.running {
		c.log("Already streaming, start ignored")
		return nil
	}

	snap := c.inputs.Snapshot()
	dest, err := snap.Destination()
	if err != nil {
		c.log("Cannot start: %v", err)
		return err
	}
	if err := rover.ValidateSpeed(snap.Speed); err != nil {
		c.log("Cannot start: %v", err)
		return err
	}

	port := c.bindPort
	if port == 0 {
		port = dest.Port
	}
	session, err := c.opener.Open(port)
	if err != nil {
		c.log("Cannot open session: %v", err)
		c.logger.Error("teleop: open session failed", "port", port, "error", err)
		return fmt.Errorf("open session: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.session = session
	c.cancel = cancel
	c.done = done
	c.running = true

	c.log("Streaming to %s at %d Hz", dest, c.Hz())
	c.logger.Info("teleop: streaming started", "dest", dest.String(), "session", session.ID(), "interval", c.interval)

	go c.run(loopCtx, session, done)
	return nil
}

// Stop cancels the loop, waits for a tick in flight and closes the session.
// Calling Stop when not streaming is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	c.cancel()
	<-c.done
	err := c.releaseLocked()

	c.log("Streaming stopped")
	c.logger.Info("teleop: streaming stopped", "ticks", c.ticks.Load())
	return err
}

// Toggle starts streaming when stopped and stops it when running. It returns
// whether the loop is running afterwards.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	if c.Running() {
		return false, c.Stop()
	}
	if err := c.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops streaming and releases resources.
func (c *Controller) Close() error {
	return c.Stop()
}

// reapLocked releases a session whose loop ended because the parent context
// was cancelled.
func (c *Controller) reapLocked() {
	if c.done == nil {
		return
	}
	select {
	case <-c.done:
		if err := c.releaseLocked(); err != nil {
			c.logger.Warn("teleop: closing session", "error", err)
		}
	default:
	}
}

func (c *Controller) releaseLocked() error {
	c.cancel()
	err := c.session.Close()
	c.session = nil
	c.cancel = nil
	c.done = nil
	c.running = false
	return err
}

// run executes ticks until ctx is cancelled. The next tick is scheduled only
// after the previous one completed, so a slow tick delays the cadence instead
// of causing a burst.
func (c *Controller) run(ctx context.Context, session transport.Session, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// Both cases may be ready at once; cancellation wins.
		if ctx.Err() != nil {
			return
		}
		c.step(ctx, session)
		timer.Reset(c.interval)
	}
}

func (c *Controller) step(ctx context.Context, session transport.Session) {
	snap := c.inputs.Snapshot()
	st := State{
		Tick:      c.ticks.Add(1),
		Sticks:    snap.Sticks,
		Speed:     snap.Speed,
		Timestamp: time.Now(),
	}

	dest, err := snap.Destination()
	if err == nil {
		err = rover.ValidateSpeed(snap.Speed)
	}
	if err != nil {
		c.fail(st, err)
		return
	}

	st.Left, st.Right = rover.Drive(snap.Sticks, snap.Speed)
	st.Frame = rover.Encode(st.Left, st.Right)

	// A tick in flight completes even if Stop was requested meanwhile.
	if err := session.Send(context.WithoutCancel(ctx), dest, st.Frame); err != nil {
		c.fail(st, err)
		return
	}

	if c.failStreak > 0 {
		c.log("Link recovered after %d failed ticks", c.failStreak)
		c.logger.Info("teleop: link recovered", "failed_ticks", c.failStreak)
		c.failStreak = 0
		c.lastErr = ""
	}
	c.logger.Debug("teleop: frame sent", "tick", st.Tick, "frame", st.Frame.String(), "dest", dest.String())
	c.sendState(st)
}

func (c *Controller) fail(st State, err error) {
	st.Error = err
	c.failStreak++

	msg := err.Error()
	if msg != c.lastErr || c.failStreak%repeatLogEvery == 0 {
		c.log("Tick %d failed: %v", st.Tick, err)
		c.logger.Warn("teleop: tick failed", "tick", st.Tick, "streak", c.failStreak, "error", err)
		c.lastErr = msg
	}
	c.sendState(st)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}
