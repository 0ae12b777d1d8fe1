// Package rover provides the drive model and wire protocol for the rover.
package rover

// Motor identifies a drive motor on the rover.
type Motor string

// Motor names, matching the frame field keys.
const (
	LeftMotor  Motor = "m0"
	RightMotor Motor = "m1"
)

// AllMotors returns all motor names in frame order.
func AllMotors() []Motor {
	return []Motor{
		LeftMotor,
		RightMotor,
	}
}

// Label returns a human readable name for the motor.
func (m Motor) Label() string {
	switch m {
	case LeftMotor:
		return "left"
	case RightMotor:
		return "right"
	default:
		return string(m)
	}
}

// Stick range reported by input sources. Up is positive.
const (
	StickMin = -100
	StickMax = 100
)

// Sticks holds the raw readings of the two virtual control sticks.
// Only the Y axes drive the motors; X is kept for display.
type Sticks struct {
	LeftX  int
	LeftY  int
	RightX int
	RightY int
}

// Speed multiplier bounds.
const (
	MinSpeed = 1
	MaxSpeed = 10
)
