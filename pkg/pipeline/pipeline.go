// Package pipeline coordinates the lifecycle of the rover's video pipeline
// with the application and the surface it renders to.
package pipeline

//go:generate mockgen -source=pipeline.go -destination=mock_pipeline_test.go -package=pipeline

import (
	"errors"
	"fmt"
)

// ErrVideoUnavailable is returned when the binary was built without video
// support.
var ErrVideoUnavailable = errors.New("video pipeline unavailable: build with -tags gst")

// State is a lifecycle state of the coordinator.
type State int32

const (
	Uninitialized State = iota
	Initialized
	SurfaceBound
	Playing
	Paused
	Finalized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case SurfaceBound:
		return "surface-bound"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventKind identifies what happened.
type EventKind int

const (
	AppCreated EventKind = iota + 1
	AppDestroyed
	AppPaused
	AppResumed
	SurfaceAvailable
	SurfaceDestroyed
	PipelineReady
	StatusMessage
)

func (k EventKind) String() string {
	switch k {
	case AppCreated:
		return "app-created"
	case AppDestroyed:
		return "app-destroyed"
	case AppPaused:
		return "app-paused"
	case AppResumed:
		return "app-resumed"
	case SurfaceAvailable:
		return "surface-available"
	case SurfaceDestroyed:
		return "surface-destroyed"
	case PipelineReady:
		return "pipeline-ready"
	case StatusMessage:
		return "status-message"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a message delivered to the coordinator.
type Event struct {
	Kind    EventKind
	Surface Surface // SurfaceAvailable only
	Text    string  // StatusMessage only
}

// VideoFrame is one decoded RGBA frame.
type VideoFrame struct {
	Seq    uint64
	Width  int
	Height int
	Pix    []byte
}

// Surface receives decoded frames. Present is called from the pipeline's
// streaming thread and must not block.
type Surface interface {
	Present(VideoFrame)
}

// Pipeline is the external video pipeline driven by the coordinator.
type Pipeline interface {
	Init() error
	Finalize() error
	Play() error
	Pause() error
	SurfaceInit(s Surface) error
	SurfaceFinalize() error
}

// Callbacks are invoked by the pipeline, possibly from inside a Pipeline
// method the coordinator is running. Implementations never block.
type Callbacks interface {
	OnStatusMessage(text string)
	OnPipelineReady()
}

// callbackSetter is implemented by pipelines that report back.
type callbackSetter interface {
	SetCallbacks(Callbacks)
}

// ErrContractViolation matches every *ContractViolation.
var ErrContractViolation = errors.New("lifecycle contract violation")

// ContractViolation reports an event that is not valid in the current state.
// The coordinator ignores it and keeps its state.
type ContractViolation struct {
	State State
	Event EventKind
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("lifecycle contract violation: %s while %s", e.Event, e.State)
}

func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}
