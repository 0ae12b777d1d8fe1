// Package input feeds physical controllers into the teleop inputs.
package input

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xcafed00d/joystick"

	"github.com/gwillem/rover/pkg/rover"
)

// PollInterval is how often the gamepad is read. It is faster than the
// control loop so every tick sees a fresh reading.
const PollInterval = 20 * time.Millisecond

// maxScan is the number of device indexes tried by Find.
const maxScan = 4

// StickSink receives stick readings. *teleop.Inputs implements it.
type StickSink interface {
	SetSticks(rover.Sticks)
}

// Gamepad reads a joystick device and publishes its sticks.
type Gamepad struct {
	js        joystick.Joystick
	leftAxis  int
	rightAxis int
	logger    *slog.Logger
}

// Open opens the joystick at index. A negative index scans the first few
// devices and uses the first one found.
func Open(cfg rover.JoystickConfig, logger *slog.Logger) (*Gamepad, error) {
	if logger == nil {
		logger = slog.Default()
	}

	js, err := find(cfg.Index)
	if err != nil {
		return nil, err
	}
	logger.Info("input: controller found", "name", js.Name(), "axes", js.AxisCount(), "buttons", js.ButtonCount())

	return New(js, cfg.LeftAxis, cfg.RightAxis, logger), nil
}

// New wraps an already opened joystick.
func New(js joystick.Joystick, leftAxis, rightAxis int, logger *slog.Logger) *Gamepad {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gamepad{js: js, leftAxis: leftAxis, rightAxis: rightAxis, logger: logger}
}

func find(index int) (joystick.Joystick, error) {
	if index >= 0 {
		js, err := joystick.Open(index)
		if err != nil {
			return nil, fmt.Errorf("open joystick %d: %w", index, err)
		}
		return js, nil
	}
	for i := range maxScan {
		if js, err := joystick.Open(i); err == nil {
			return js, nil
		}
	}
	return nil, fmt.Errorf("no controller found")
}

// Name returns the device name.
func (g *Gamepad) Name() string {
	return g.js.Name()
}

// Sticks reads the device once.
func (g *Gamepad) Sticks() (rover.Sticks, error) {
	st, err := g.js.Read()
	if err != nil {
		return rover.Sticks{}, fmt.Errorf("read joystick: %w", err)
	}
	return SticksFromAxes(st.AxisData, g.leftAxis, g.rightAxis), nil
}

// Run polls the device until ctx is done or a read fails. The sticks are
// centered on return so a lost controller stops steering; a centered stick
// still encodes the mapping's resting intensity.
func (g *Gamepad) Run(ctx context.Context, sink StickSink) error {
	defer sink.SetSticks(rover.Sticks{})

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		s, err := g.Sticks()
		if err != nil {
			g.logger.Warn("input: controller lost", "error", err)
			return err
		}
		sink.SetSticks(s)
	}
}

// Close releases the device.
func (g *Gamepad) Close() {
	g.js.Close()
}

// SticksFromAxes builds stick readings from raw axis data. The Y axes of
// most gamepads report negative values when pushed forward, so they are
// flipped. The X axes sit at the index before their Y axis.
func SticksFromAxes(axes []int, leftAxis, rightAxis int) rover.Sticks {
	return rover.Sticks{
		LeftX:  ScaleAxis(axisAt(axes, leftAxis-1)),
		LeftY:  -ScaleAxis(axisAt(axes, leftAxis)),
		RightX: ScaleAxis(axisAt(axes, rightAxis-1)),
		RightY: -ScaleAxis(axisAt(axes, rightAxis)),
	}
}

func axisAt(axes []int, i int) int {
	if i < 0 || i >= len(axes) {
		return 0
	}
	return axes[i]
}

// ScaleAxis maps a raw int16 axis value onto the stick range.
func ScaleAxis(raw int) int {
	raw = min(max(raw, -32767), 32767)
	return rover.MapToInterval(raw, -32767, 32767, rover.StickMin, rover.StickMax)
}
