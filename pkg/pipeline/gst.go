//go:build gst

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/gwillem/rover/pkg/rover"
)

// busPoll bounds how long the bus watcher blocks, keeping Finalize responsive.
const busPoll = 50 * time.Millisecond

// GstPipeline renders the rover camera stream through GStreamer. The launch
// line must end in an appsink producing RGBA frames.
type GstPipeline struct {
	launch   string
	sinkName string
	logger   *slog.Logger

	mu       sync.Mutex
	cb       Callbacks
	pipeline *gst.Pipeline
	sink     *app.Sink
	surface  Surface
	watching bool
	ready    bool // reported for the current surface
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	seq atomic.Uint64
}

// NewVideoPipeline returns the GStreamer pipeline for cfg. Nothing is built
// until Init.
func NewVideoPipeline(cfg rover.VideoConfig, logger *slog.Logger) (Pipeline, error) {
	if cfg.Launch == "" {
		return nil, fmt.Errorf("%w: empty video launch line", rover.ErrMalformedConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.SinkName
	if name == "" {
		name = rover.DefaultSinkName
	}
	return &GstPipeline{launch: cfg.Launch, sinkName: name, logger: logger}, nil
}

// SetCallbacks sets where status and readiness are reported.
func (g *GstPipeline) SetCallbacks(cb Callbacks) {
	g.mu.Lock()
	g.cb = cb
	g.mu.Unlock()
}

// Init builds the pipeline, takes it to READY and starts the bus watcher.
func (g *GstPipeline) Init() error {
	gst.Init(nil)

	p, err := gst.NewPipelineFromString(g.launch)
	if err != nil {
		return fmt.Errorf("parse launch line: %w", err)
	}
	elem, err := p.GetElementByName(g.sinkName)
	if err != nil {
		return fmt.Errorf("appsink %q not found: %w", g.sinkName, err)
	}
	sink := app.SinkFromElement(elem)
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: g.onSample,
	})

	if err := p.SetState(gst.StateReady); err != nil {
		return fmt.Errorf("set READY: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	g.mu.Lock()
	g.pipeline = p
	g.sink = sink
	g.cancel = cancel
	g.watching = true
	g.mu.Unlock()

	g.wg.Add(1)
	go g.watch(ctx, p)

	g.logger.Info("pipeline: gstreamer initialized", "sink", g.sinkName)
	g.notify("GStreamer initialized")
	return nil
}

// Finalize stops the bus watcher and releases the pipeline.
func (g *GstPipeline) Finalize() error {
	g.mu.Lock()
	p, cancel := g.pipeline, g.cancel
	g.pipeline, g.sink, g.surface, g.cancel = nil, nil, nil, nil
	g.watching, g.ready = false, false
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.wg.Wait()
	if p == nil {
		return nil
	}
	if err := p.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("set NULL: %w", err)
	}
	g.logger.Info("pipeline: gstreamer finalized", "frames", g.seq.Load())
	return nil
}

// Play sets the pipeline to PLAYING.
func (g *GstPipeline) Play() error {
	return g.setState(gst.StatePlaying)
}

// Pause sets the pipeline to PAUSED.
func (g *GstPipeline) Pause() error {
	return g.setState(gst.StatePaused)
}

// SurfaceInit binds the surface frames are presented to.
func (g *GstPipeline) SurfaceInit(s Surface) error {
	g.mu.Lock()
	if g.pipeline == nil {
		g.mu.Unlock()
		return fmt.Errorf("surface init before pipeline init")
	}
	g.surface = s
	g.ready = false
	g.mu.Unlock()

	g.logger.Debug("pipeline: surface bound")
	g.checkReady()
	return nil
}

// SurfaceFinalize unbinds the surface and drops the pipeline back to READY.
func (g *GstPipeline) SurfaceFinalize() error {
	g.mu.Lock()
	g.surface = nil
	g.ready = false
	g.mu.Unlock()

	g.logger.Debug("pipeline: surface released")
	return g.setState(gst.StateReady)
}

func (g *GstPipeline) setState(state gst.State) error {
	g.mu.Lock()
	p := g.pipeline
	g.mu.Unlock()
	if p == nil {
		return fmt.Errorf("pipeline not initialized")
	}
	if err := p.SetState(state); err != nil {
		return fmt.Errorf("set %s: %w", state, err)
	}
	return nil
}

// checkReady reports readiness once per bound surface when the watcher runs.
func (g *GstPipeline) checkReady() {
	g.mu.Lock()
	fire := g.watching && g.surface != nil && !g.ready
	if fire {
		g.ready = true
	}
	cb := g.cb
	g.mu.Unlock()

	if fire && cb != nil {
		cb.OnPipelineReady()
	}
}

func (g *GstPipeline) notify(text string) {
	g.mu.Lock()
	cb := g.cb
	g.mu.Unlock()
	if cb != nil {
		cb.OnStatusMessage(text)
	}
}

func (g *GstPipeline) watch(ctx context.Context, p *gst.Pipeline) {
	defer g.wg.Done()

	bus := p.GetPipelineBus()
	name := p.GetName()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(busPoll)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			g.logger.Error("pipeline: element error", "source", msg.Source(), "error", gerr.Error(), "debug", gerr.DebugString())
			g.notify(fmt.Sprintf("Error received from element %s: %s", msg.Source(), gerr.Error()))

		case gst.MessageEOS:
			g.logger.Info("pipeline: end of stream")
			g.notify("End of stream")

		case gst.MessageStateChanged:
			if msg.Source() != name {
				continue
			}
			_, newState := msg.ParseStateChanged()
			g.logger.Debug("pipeline: state changed", "to", newState.String())
			g.notify(fmt.Sprintf("State changed to %s", newState))
		}
	}
}

func (g *GstPipeline) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	pix := make([]byte, len(data))
	copy(pix, data)
	buffer.Unmap()

	frame := VideoFrame{Seq: g.seq.Add(1), Pix: pix}
	if caps := sample.GetCaps(); caps != nil && caps.GetSize() > 0 {
		st := caps.GetStructureAt(0)
		if w, err := st.GetValue("width"); err == nil {
			frame.Width, _ = w.(int)
		}
		if h, err := st.GetValue("height"); err == nil {
			frame.Height, _ = h.(int)
		}
	}

	g.mu.Lock()
	s := g.surface
	g.mu.Unlock()
	if s != nil {
		s.Present(frame)
	}
	return gst.FlowOK
}
