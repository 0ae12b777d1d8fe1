package rover

import (
	"fmt"
	"strconv"
	"strings"
)

// Frame is one encoded control datagram. It is immutable.
type Frame string

// frameFormat is the wire layout. s0/s1 are reserved servo channels and are
// always zero.
const frameFormat = "s0:000,s1:000,m0:%04d,%01d,m1:%04d,%01d\n"

// Encode builds the control frame for the two motor intensities.
func Encode(left, right Intensity) Frame {
	return Frame(fmt.Sprintf(frameFormat,
		left.Magnitude(), left.Direction(),
		right.Magnitude(), right.Direction(),
	))
}

// Bytes returns a copy of the frame payload.
func (f Frame) Bytes() []byte {
	return []byte(f)
}

// Len returns the payload length in bytes.
func (f Frame) Len() int {
	return len(f)
}

// String returns the frame without its trailing delimiter, for logging.
func (f Frame) String() string {
	return strings.TrimSuffix(string(f), "\n")
}

// MotorField holds the decoded magnitude and direction of one motor.
type MotorField struct {
	Magnitude int
	Direction int
}

// Decode parses a frame back into its motor fields. It is used by tools and
// tests that inspect recorded traffic.
func Decode(f Frame) (map[Motor]MotorField, error) {
	line := strings.TrimSuffix(string(f), "\n")
	parts := strings.Split(line, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("decode frame: want 6 fields, got %d", len(parts))
	}
	fields := make(map[Motor]MotorField, 2)
	for i, m := range AllMotors() {
		key, mag, ok := strings.Cut(parts[2+i*2], ":")
		if !ok || key != string(m) {
			return nil, fmt.Errorf("decode frame: bad motor field %q", parts[2+i*2])
		}
		magnitude, err := strconv.Atoi(mag)
		if err != nil {
			return nil, fmt.Errorf("decode frame: %s magnitude: %w", m, err)
		}
		dir, err := strconv.Atoi(parts[3+i*2])
		if err != nil || (dir != 0 && dir != 1) {
			return nil, fmt.Errorf("decode frame: %s direction %q", m, parts[3+i*2])
		}
		fields[m] = MotorField{Magnitude: magnitude, Direction: dir}
	}
	return fields, nil
}
