//go:build !gst

package pipeline

import (
	"log/slog"

	"github.com/gwillem/rover/pkg/rover"
)

// NewVideoPipeline reports that video support was not compiled in.
func NewVideoPipeline(_ rover.VideoConfig, _ *slog.Logger) (Pipeline, error) {
	return nil, ErrVideoUnavailable
}
