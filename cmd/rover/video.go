package main

import (
	"fmt"
	"sync/atomic"

	"github.com/gwillem/rover/pkg/pipeline"
)

// videoMeter is the surface the camera renders to in the terminal. It cannot
// show pixels, so it reports resolution and frame rate instead.
type videoMeter struct {
	frames atomic.Uint64
	width  atomic.Int32
	height atomic.Int32
	fps    atomic.Uint64

	lastCount uint64 // touched only by Sample
}

var _ pipeline.Surface = (*videoMeter)(nil)

// Present implements pipeline.Surface.
func (v *videoMeter) Present(f pipeline.VideoFrame) {
	v.frames.Add(1)
	v.width.Store(int32(f.Width))
	v.height.Store(int32(f.Height))
}

// Sample updates the frame rate. Call it once per second.
func (v *videoMeter) Sample() {
	n := v.frames.Load()
	v.fps.Store(n - v.lastCount)
	v.lastCount = n
}

func (v *videoMeter) String() string {
	if v.frames.Load() == 0 {
		return "no frames"
	}
	return fmt.Sprintf("%dx%d @ %d fps", v.width.Load(), v.height.Load(), v.fps.Load())
}
