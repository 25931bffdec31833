package ptu

import (
	"fmt"
	"math"
)

// Angular ranges accepted by the converter. Heading is referenced to the
// device's forward direction (180 degrees from the connector); elevation is
// referenced to the base, negative pointing the front down.
const (
	// ElevationMin is the lowest accepted elevation in degrees.
	ElevationMin = -90.0
	// ElevationMax is the highest accepted elevation in degrees.
	ElevationMax = 30.0

	// arcSecondsPerDegree matches the unit the head reports its axis
	// resolution in (arc-seconds per step).
	arcSecondsPerDegree = 3600.0
)

// HeadingToSteps validates a heading angle and converts it to device steps.
//
// The input is first normalized into [0, 360), then re-centered into
// (-180, 180]; 370 degrees and 10 degrees therefore produce the same step
// count. Values that survive normalization outside [0, 360) (NaN, Inf) are
// rejected with ErrInvalidTargetPosition.
//
// resolution is the pan axis scale factor in arc-seconds per step, learned
// from the device during initialization. A non-positive resolution is a
// precondition violation reported as ErrZeroResolution.
func HeadingToSteps(heading, resolution float64) (int, error) {
	if resolution <= 0 {
		return 0, fmt.Errorf("%w: pan resolution %v", ErrZeroResolution, resolution)
	}

	norm := math.Mod(heading, 360)
	if norm < 0 {
		norm += 360
	}

	if !(norm >= 0 && norm < 360) {
		return 0, fmt.Errorf("%w: %v is not a valid heading", ErrInvalidTargetPosition, heading)
	}

	if norm > 180 {
		norm -= 360
	}

	return int(math.Round(norm * arcSecondsPerDegree / resolution)), nil
}

// ElevationToSteps validates an elevation angle and converts it to device
// steps. The input must lie in [ElevationMin, ElevationMax].
//
// resolution is the tilt axis scale factor in arc-seconds per step; a
// non-positive resolution is reported as ErrZeroResolution.
func ElevationToSteps(elevation, resolution float64) (int, error) {
	if resolution <= 0 {
		return 0, fmt.Errorf("%w: tilt resolution %v", ErrZeroResolution, resolution)
	}

	if !(elevation >= ElevationMin && elevation <= ElevationMax) {
		return 0, fmt.Errorf("%w: %v is an invalid elevation (should be %v <= x <= %v)",
			ErrInvalidTargetPosition, elevation, ElevationMin, ElevationMax)
	}

	return int(math.Round(elevation * arcSecondsPerDegree / resolution)), nil
}

// StepsToDegrees converts a device-reported step count back to degrees.
// No bounds validation is performed; steps reported by the device are
// assumed already in range.
func StepsToDegrees(steps int, resolution float64) float64 {
	return float64(steps) * resolution / arcSecondsPerDegree
}
