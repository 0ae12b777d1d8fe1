package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// eventBuffer is the capacity of the coordinator's event queue. Status
// callbacks that find it full are dropped.
const eventBuffer = 32

// Coordinator is the lifecycle state machine between the application, the
// rendering surface and the video pipeline. Events are handled one at a time
// in arrival order.
type Coordinator struct {
	pipeline Pipeline
	logger   *slog.Logger

	mu     sync.Mutex // serializes Handle
	parked Surface

	state      atomic.Int32
	violations atomic.Uint64

	events   chan Event
	ready    chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	statusCh chan string
}

// NewCoordinator returns a coordinator in the Uninitialized state. If p
// accepts callbacks, they are pointed at the coordinator.
func NewCoordinator(p Pipeline, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		pipeline: p,
		logger:   logger,
		events:   make(chan Event, eventBuffer),
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		statusCh: make(chan string, 10),
	}
	if cs, ok := p.(callbackSetter); ok {
		cs.SetCallbacks(c)
	}
	return c
}

// State returns the current state. It is safe to call from any goroutine.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Violations returns the number of contract violations seen.
func (c *Coordinator) Violations() uint64 {
	return c.violations.Load()
}

// Status returns a channel that receives pipeline status messages.
func (c *Coordinator) Status() <-chan string {
	return c.statusCh
}

// OnStatusMessage implements Callbacks. It never blocks: the message is
// dropped when the queue is full.
func (c *Coordinator) OnStatusMessage(text string) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- Event{Kind: StatusMessage, Text: text}:
	default:
		c.logger.Debug("pipeline: status message dropped", "text", text)
	}
}

// OnPipelineReady implements Callbacks. Readiness has its own slot so it is
// never lost behind status messages.
func (c *Coordinator) OnPipelineReady() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Post queues ev for Run. It blocks while the queue is full and returns false
// once Run has exited.
func (c *Coordinator) Post(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Run handles posted events until the coordinator is finalized or ctx is
// cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.doneOnce.Do(func() { close(c.done) })

	for {
		if c.State() == Finalized {
			return nil
		}
		// Readiness refers to the surface bound by the last event, so it
		// goes ahead of anything queued since.
		select {
		case <-c.ready:
			_ = c.Handle(Event{Kind: PipelineReady})
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ready:
			_ = c.Handle(Event{Kind: PipelineReady})
		case ev := <-c.events:
			// Errors are logged by Handle.
			_ = c.Handle(ev)
		}
	}
}

// Handle applies one event. Invalid events return a *ContractViolation and
// leave the state unchanged, as does a failing pipeline call.
func (c *Coordinator) Handle(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.State()
	if from == Finalized {
		return c.violation(from, ev)
	}

	switch ev.Kind {
	case StatusMessage:
		c.status(ev.Text)
		return nil

	case AppCreated:
		if from != Uninitialized {
			return c.violation(from, ev)
		}
		if err := c.call("init", c.pipeline.Init); err != nil {
			return err
		}
		c.transition(from, Initialized, ev)
		if s := c.parked; s != nil {
			c.parked = nil
			c.logger.Debug("pipeline: binding parked surface")
			return c.bind(Initialized, s, ev)
		}
		return nil

	case SurfaceAvailable:
		if ev.Surface == nil {
			return c.violation(from, ev)
		}
		switch from {
		case Uninitialized:
			c.parked = ev.Surface
			c.logger.Debug("pipeline: surface parked until init")
			return nil
		case Initialized, SurfaceBound, Playing, Paused:
			return c.bind(from, ev.Surface, ev)
		}

	case SurfaceDestroyed:
		switch from {
		case Uninitialized:
			if c.parked == nil {
				return c.violation(from, ev)
			}
			c.parked = nil
			c.logger.Debug("pipeline: parked surface dropped")
			return nil
		case SurfaceBound, Playing, Paused:
			if err := c.call("surface finalize", c.pipeline.SurfaceFinalize); err != nil {
				return err
			}
			c.transition(from, Initialized, ev)
			return nil
		}

	case PipelineReady:
		if from == SurfaceBound {
			return c.play(from, ev)
		}

	case AppPaused:
		if from == Playing {
			if err := c.call("pause", c.pipeline.Pause); err != nil {
				return err
			}
			c.transition(from, Paused, ev)
			return nil
		}

	case AppResumed:
		if from == Paused {
			return c.play(from, ev)
		}

	case AppDestroyed:
		if err := c.call("finalize", c.pipeline.Finalize); err != nil {
			return err
		}
		c.parked = nil
		c.transition(from, Finalized, ev)
		return nil
	}

	return c.violation(from, ev)
}

func (c *Coordinator) bind(from State, s Surface, ev Event) error {
	if err := c.call("surface init", func() error { return c.pipeline.SurfaceInit(s) }); err != nil {
		return err
	}
	c.transition(from, SurfaceBound, ev)
	return nil
}

func (c *Coordinator) play(from State, ev Event) error {
	if err := c.call("play", c.pipeline.Play); err != nil {
		return err
	}
	c.transition(from, Playing, ev)
	return nil
}

func (c *Coordinator) call(op string, fn func() error) error {
	if err := fn(); err != nil {
		c.logger.Error("pipeline: call failed", "op", op, "state", c.State().String(), "error", err)
		c.status(fmt.Sprintf("%s failed: %v", op, err))
		return fmt.Errorf("pipeline %s: %w", op, err)
	}
	return nil
}

func (c *Coordinator) transition(from, to State, ev Event) {
	c.state.Store(int32(to))
	c.logger.Debug("pipeline: transition", "from", from.String(), "to", to.String(), "event", ev.Kind.String())
}

func (c *Coordinator) violation(from State, ev Event) error {
	c.violations.Add(1)
	err := &ContractViolation{State: from, Event: ev.Kind}
	c.logger.Warn("pipeline: ignoring event", "error", err)
	return err
}

func (c *Coordinator) status(text string) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.statusCh <- msg:
	default:
		// Drop if channel full
	}
}
