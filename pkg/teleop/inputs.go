package teleop

import (
	"strconv"
	"sync"

	"github.com/gwillem/rover/pkg/rover"
)

// Snapshot is a consistent copy of the operator inputs, taken once per tick.
type Snapshot struct {
	Sticks rover.Sticks
	Speed  int
	Host   string
	Port   string // as entered by the operator
}

// Destination parses the host and port text.
func (s Snapshot) Destination() (rover.Destination, error) {
	return rover.ParseDestination(s.Host, s.Port)
}

// Inputs holds the values the UI and input devices publish and the control
// loop reads every tick. It is safe for concurrent use.
type Inputs struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewInputs returns inputs seeded from cfg with centered sticks.
func NewInputs(cfg *rover.Config) *Inputs {
	return &Inputs{snap: Snapshot{
		Speed: cfg.Speed,
		Host:  cfg.Host,
		Port:  strconv.Itoa(cfg.Port),
	}}
}

// Snapshot returns a copy of the current inputs.
func (in *Inputs) Snapshot() Snapshot {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.snap
}

// SetSticks replaces both stick readings. Readings are not clamped.
func (in *Inputs) SetSticks(s rover.Sticks) {
	in.mu.Lock()
	in.snap.Sticks = s
	in.mu.Unlock()
}

// SetAxis sets the Y reading of one stick.
func (in *Inputs) SetAxis(m rover.Motor, y int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	switch m {
	case rover.LeftMotor:
		in.snap.Sticks.LeftY = y
	case rover.RightMotor:
		in.snap.Sticks.RightY = y
	}
}

// Nudge moves one stick by delta, clamped to the stick range, and returns
// the new reading.
func (in *Inputs) Nudge(m rover.Motor, delta int) int {
	in.mu.Lock()
	defer in.mu.Unlock()

	axis := &in.snap.Sticks.LeftY
	if m == rover.RightMotor {
		axis = &in.snap.Sticks.RightY
	}
	*axis = min(max(*axis+delta, rover.StickMin), rover.StickMax)
	return *axis
}

// Center puts both sticks in their neutral position. The frame this yields
// is the mapping's resting intensity, not a stop frame.
func (in *Inputs) Center() {
	in.SetSticks(rover.Sticks{})
}

// SetSpeed selects the speed multiplier.
func (in *Inputs) SetSpeed(speed int) error {
	if err := rover.ValidateSpeed(speed); err != nil {
		return err
	}
	in.mu.Lock()
	in.snap.Speed = speed
	in.mu.Unlock()
	return nil
}

// SetDestination publishes host and port text as typed. It is validated at
// start and on every tick, so a half-typed value only skips ticks.
func (in *Inputs) SetDestination(host, port string) {
	in.mu.Lock()
	in.snap.Host = host
	in.snap.Port = port
	in.mu.Unlock()
}
