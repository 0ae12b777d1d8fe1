package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCoordinator(t *testing.T) (*Coordinator, *MockPipeline, *MockSurface) {
	t.Helper()
	ctrl := gomock.NewController(t)
	p := NewMockPipeline(ctrl)
	return NewCoordinator(p, quietLogger()), p, NewMockSurface(ctrl)
}

// driveTo replays the happy path up to want.
func driveTo(t *testing.T, c *Coordinator, p *MockPipeline, s Surface, want State) {
	t.Helper()
	steps := []struct {
		state State
		ev    Event
		exp   func()
	}{
		{Initialized, Event{Kind: AppCreated}, func() { p.EXPECT().Init().Return(nil) }},
		{SurfaceBound, Event{Kind: SurfaceAvailable, Surface: s}, func() { p.EXPECT().SurfaceInit(s).Return(nil) }},
		{Playing, Event{Kind: PipelineReady}, func() { p.EXPECT().Play().Return(nil) }},
		{Paused, Event{Kind: AppPaused}, func() { p.EXPECT().Pause().Return(nil) }},
	}
	for _, st := range steps {
		if c.State() == want {
			return
		}
		st.exp()
		require.NoError(t, c.Handle(st.ev))
		require.Equal(t, st.state, c.State())
	}
	require.Equal(t, want, c.State())
}

func TestHappyPath(t *testing.T) {
	c, p, s := newCoordinator(t)
	assert.Equal(t, Uninitialized, c.State())

	driveTo(t, c, p, s, Playing)

	p.EXPECT().Finalize().Return(nil)
	require.NoError(t, c.Handle(Event{Kind: AppDestroyed}))
	assert.Equal(t, Finalized, c.State())
}

func TestSurfaceDestroyedWhileBound(t *testing.T) {
	c, p, s := newCoordinator(t)
	driveTo(t, c, p, s, SurfaceBound)

	p.EXPECT().SurfaceFinalize().Return(nil).Times(1)
	require.NoError(t, c.Handle(Event{Kind: SurfaceDestroyed}))
	assert.Equal(t, Initialized, c.State())

	// A second destroy is ignored, no double finalize.
	err := c.Handle(Event{Kind: SurfaceDestroyed})
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Equal(t, Initialized, c.State())
	assert.Equal(t, uint64(1), c.Violations())
}

func TestSurfaceDestroyedTransitions(t *testing.T) {
	for _, from := range []State{SurfaceBound, Playing, Paused} {
		t.Run(from.String(), func(t *testing.T) {
			c, p, s := newCoordinator(t)
			driveTo(t, c, p, s, from)

			p.EXPECT().SurfaceFinalize().Return(nil)
			require.NoError(t, c.Handle(Event{Kind: SurfaceDestroyed}))
			assert.Equal(t, Initialized, c.State())
		})
	}
}

func TestSurfaceAvailableRebinds(t *testing.T) {
	for _, from := range []State{Initialized, SurfaceBound, Playing, Paused} {
		t.Run(from.String(), func(t *testing.T) {
			c, p, s := newCoordinator(t)
			driveTo(t, c, p, s, from)

			other := &namedSurface{name: "resized"}
			p.EXPECT().SurfaceInit(other).Return(nil)
			require.NoError(t, c.Handle(Event{Kind: SurfaceAvailable, Surface: other}))
			assert.Equal(t, SurfaceBound, c.State())
		})
	}
}

func TestPauseResume(t *testing.T) {
	c, p, s := newCoordinator(t)
	driveTo(t, c, p, s, Paused)

	p.EXPECT().Play().Return(nil)
	require.NoError(t, c.Handle(Event{Kind: AppResumed}))
	assert.Equal(t, Playing, c.State())
}

func TestSurfaceBeforeInitIsParked(t *testing.T) {
	c, p, s := newCoordinator(t)

	require.NoError(t, c.Handle(Event{Kind: SurfaceAvailable, Surface: s}))
	assert.Equal(t, Uninitialized, c.State())

	gomock.InOrder(
		p.EXPECT().Init().Return(nil),
		p.EXPECT().SurfaceInit(s).Return(nil),
	)
	require.NoError(t, c.Handle(Event{Kind: AppCreated}))
	assert.Equal(t, SurfaceBound, c.State())
}

func TestParkedSurfaceDestroyedBeforeInit(t *testing.T) {
	c, p, s := newCoordinator(t)

	require.NoError(t, c.Handle(Event{Kind: SurfaceAvailable, Surface: s}))
	require.NoError(t, c.Handle(Event{Kind: SurfaceDestroyed}))

	p.EXPECT().Init().Return(nil)
	require.NoError(t, c.Handle(Event{Kind: AppCreated}))
	assert.Equal(t, Initialized, c.State(), "dropped surface is not bound")
}

func TestContractViolations(t *testing.T) {
	tests := []struct {
		from State
		kind EventKind
	}{
		{Uninitialized, SurfaceDestroyed},
		{Uninitialized, PipelineReady},
		{Uninitialized, AppPaused},
		{Uninitialized, AppResumed},
		{Initialized, AppCreated},
		{Initialized, SurfaceDestroyed},
		{Initialized, PipelineReady},
		{Initialized, AppPaused},
		{SurfaceBound, AppPaused},
		{SurfaceBound, AppResumed},
		{Playing, PipelineReady},
		{Playing, AppResumed},
		{Playing, AppCreated},
		{Paused, AppPaused},
		{Paused, PipelineReady},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.kind.String(), func(t *testing.T) {
			c, p, s := newCoordinator(t)
			driveTo(t, c, p, s, tt.from)

			err := c.Handle(Event{Kind: tt.kind})
			var cv *ContractViolation
			require.ErrorAs(t, err, &cv)
			assert.Equal(t, tt.from, cv.State)
			assert.Equal(t, tt.kind, cv.Event)
			assert.Equal(t, tt.from, c.State())
		})
	}
}

func TestNilSurfaceIsViolation(t *testing.T) {
	c, p, s := newCoordinator(t)
	driveTo(t, c, p, s, Initialized)

	assert.ErrorIs(t, c.Handle(Event{Kind: SurfaceAvailable}), ErrContractViolation)
	assert.Equal(t, Initialized, c.State())
}

func TestFinalizedIsTerminal(t *testing.T) {
	c, p, s := newCoordinator(t)
	driveTo(t, c, p, s, Playing)

	p.EXPECT().Finalize().Return(nil).Times(1)
	require.NoError(t, c.Handle(Event{Kind: AppDestroyed}))

	for _, k := range []EventKind{AppCreated, AppDestroyed, SurfaceAvailable, SurfaceDestroyed, PipelineReady, AppResumed, StatusMessage} {
		assert.ErrorIs(t, c.Handle(Event{Kind: k, Surface: s}), ErrContractViolation, k.String())
	}
	assert.Equal(t, Finalized, c.State())
}

func TestFailingCallKeepsState(t *testing.T) {
	c, p, s := newCoordinator(t)
	driveTo(t, c, p, s, SurfaceBound)

	boom := errors.New("element refused state change")
	p.EXPECT().Play().Return(boom)
	err := c.Handle(Event{Kind: PipelineReady})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrContractViolation)
	assert.Equal(t, SurfaceBound, c.State())

	select {
	case msg := <-c.Status():
		assert.Contains(t, msg, "play failed")
	default:
		t.Fatal("expected status message")
	}
}

func TestStatusMessageForwarded(t *testing.T) {
	c, _, _ := newCoordinator(t)
	require.NoError(t, c.Handle(Event{Kind: StatusMessage, Text: "State changed to READY"}))

	msg := <-c.Status()
	assert.Contains(t, msg, "State changed to READY")
	assert.Equal(t, Uninitialized, c.State())
}

type namedSurface struct{ name string }

func (*namedSurface) Present(VideoFrame) {}

// readyOnBind reports ready as soon as a surface is bound, the way the
// video pipeline does when its bus watcher is already running.
type readyOnBind struct {
	*MockPipeline
	cb Callbacks
}

func (r *readyOnBind) SetCallbacks(cb Callbacks) { r.cb = cb }

func (r *readyOnBind) SurfaceInit(s Surface) error {
	if err := r.MockPipeline.SurfaceInit(s); err != nil {
		return err
	}
	r.cb.OnStatusMessage("surface bound")
	r.cb.OnPipelineReady()
	return nil
}

func TestRunProcessesPostedEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockPipeline(ctrl)
	p := &readyOnBind{MockPipeline: mock}
	s := NewMockSurface(ctrl)

	c := NewCoordinator(p, quietLogger())
	require.NotNil(t, p.cb, "callbacks wired")

	gomock.InOrder(
		mock.EXPECT().Init().Return(nil),
		mock.EXPECT().SurfaceInit(s).Return(nil),
		mock.EXPECT().Play().Return(nil),
		mock.EXPECT().Finalize().Return(nil),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	// Surface arrives first and is parked.
	assert.True(t, c.Post(Event{Kind: SurfaceAvailable, Surface: s}))
	assert.True(t, c.Post(Event{Kind: AppCreated}))
	require.Eventually(t, func() bool { return c.State() == Playing }, time.Second, time.Millisecond)

	assert.True(t, c.Post(Event{Kind: AppDestroyed}))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after finalize")
	}
	assert.Equal(t, Finalized, c.State())
	assert.False(t, c.Post(Event{Kind: AppCreated}), "post after Run exits")
}

func TestRunStopsOnCancel(t *testing.T) {
	c, _, _ := newCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
	assert.False(t, c.Post(Event{Kind: AppCreated}))
}

// chattyPipeline floods status messages from inside its own calls, the way
// the bus watcher does during a slow state change.
type chattyPipeline struct {
	*MockPipeline
	cb Callbacks
}

func (p *chattyPipeline) SetCallbacks(cb Callbacks) { p.cb = cb }

func (p *chattyPipeline) flood() {
	for i := 0; i <= eventBuffer; i++ {
		p.cb.OnStatusMessage(fmt.Sprintf("State changed to READY (%d)", i))
	}
}

func (p *chattyPipeline) Init() error {
	if err := p.MockPipeline.Init(); err != nil {
		return err
	}
	p.flood()
	return nil
}

func (p *chattyPipeline) SurfaceInit(s Surface) error {
	if err := p.MockPipeline.SurfaceInit(s); err != nil {
		return err
	}
	p.flood()
	p.cb.OnPipelineReady()
	return nil
}

func TestRunSurvivesCallbackFlood(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockPipeline(ctrl)
	p := &chattyPipeline{MockPipeline: mock}
	s := NewMockSurface(ctrl)

	c := NewCoordinator(p, quietLogger())
	gomock.InOrder(
		mock.EXPECT().Init().Return(nil),
		mock.EXPECT().SurfaceInit(s).Return(nil),
		mock.EXPECT().Play().Return(nil),
		mock.EXPECT().Finalize().Return(nil),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	assert.True(t, c.Post(Event{Kind: AppCreated}))
	require.Eventually(t, func() bool { return c.State() == Initialized }, time.Second, time.Millisecond)

	// Readiness is not lost behind a full queue.
	assert.True(t, c.Post(Event{Kind: SurfaceAvailable, Surface: s}))
	require.Eventually(t, func() bool { return c.State() == Playing }, time.Second, time.Millisecond)

	assert.True(t, c.Post(Event{Kind: AppDestroyed}))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after finalize")
	}
	assert.Equal(t, Finalized, c.State())
	assert.Len(t, c.Status(), cap(c.Status()), "status channel filled, extra messages dropped")
}

func TestCallbacksDoNotBlock(t *testing.T) {
	c, _, _ := newCoordinator(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2*eventBuffer; i++ {
			c.OnStatusMessage("buffering")
		}
		c.OnPipelineReady()
		c.OnPipelineReady()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callbacks blocked without a running coordinator")
	}
	assert.Len(t, c.events, eventBuffer)
}
