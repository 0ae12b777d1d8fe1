package rover

// Drive domain: the mapper is always called with [-500, 500] -> [0, 100].
// This reflects the magnitude scaling of the input device, not a percentage.
const (
	driveSrcMin = -500
	driveSrcMax = 500
	driveDstMin = 0
	driveDstMax = 100
)

// Intensity is a signed motor command. The magnitude goes on the wire,
// the sign only decides the direction digit.
type Intensity int

// MapToInterval remaps raw from [srcMin, srcMax] to [dstMin, dstMax] using
// truncating integer division. Inputs are not clamped, so a raw value outside
// the source range yields a result outside the destination range.
// It panics if srcMin == srcMax.
func MapToInterval(raw, srcMin, srcMax, dstMin, dstMax int) int {
	if srcMax == srcMin {
		panic("rover: MapToInterval with empty source interval")
	}
	return dstMin + (raw-srcMin)*(dstMax-dstMin)/(srcMax-srcMin)
}

// AxisIntensity converts one raw stick Y reading into a motor intensity for
// the given speed multiplier.
func AxisIntensity(rawY, speed int) Intensity {
	v := MapToInterval(100-rawY, driveSrcMin, driveSrcMax, driveDstMin, driveDstMax)
	return Intensity(v * speed)
}

// Drive computes the left and right motor intensities for one tick.
func Drive(s Sticks, speed int) (left, right Intensity) {
	return AxisIntensity(s.LeftY, speed), AxisIntensity(s.RightY, speed)
}

// Magnitude returns the absolute value of the intensity.
func (i Intensity) Magnitude() int {
	if i < 0 {
		return int(-i)
	}
	return int(i)
}

// Direction returns 1 for strictly positive intensities and 0 otherwise.
// Zero and reverse share the same digit on the wire.
func (i Intensity) Direction() int {
	if i > 0 {
		return 1
	}
	return 0
}
