package ptu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResolution = 23.142857 // arc-seconds per step, as reported by a real head

func TestHeadingToSteps_Normalization(t *testing.T) {
	// 370 degrees and 10 degrees are the same heading.
	a, err := HeadingToSteps(370, testResolution)
	require.NoError(t, err)

	b, err := HeadingToSteps(10, testResolution)
	require.NoError(t, err)

	assert.Equal(t, b, a)

	// Values above 180 re-center into the negative half.
	c, err := HeadingToSteps(270, testResolution)
	require.NoError(t, err)

	d, err := HeadingToSteps(-90, testResolution)
	require.NoError(t, err)

	assert.Equal(t, d, c)
	assert.Negative(t, c)
}

func TestHeadingToSteps_RejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := HeadingToSteps(v, testResolution)
		assert.ErrorIs(t, err, ErrInvalidTargetPosition, "heading %v", v)
	}
}

func TestElevationToSteps_Bounds(t *testing.T) {
	_, err := ElevationToSteps(30, testResolution)
	assert.NoError(t, err)

	_, err = ElevationToSteps(-90, testResolution)
	assert.NoError(t, err)

	_, err = ElevationToSteps(30.0001, testResolution)
	assert.ErrorIs(t, err, ErrInvalidTargetPosition)

	_, err = ElevationToSteps(-90.0001, testResolution)
	assert.ErrorIs(t, err, ErrInvalidTargetPosition)
}

func TestConversion_ZeroResolution(t *testing.T) {
	_, err := HeadingToSteps(10, 0)
	assert.ErrorIs(t, err, ErrZeroResolution)

	_, err = ElevationToSteps(10, 0)
	assert.ErrorIs(t, err, ErrZeroResolution)

	_, err = HeadingToSteps(10, -1)
	assert.ErrorIs(t, err, ErrZeroResolution)
}

func TestStepsToDegrees(t *testing.T) {
	// 14000 steps at 23.142857 arc-seconds per step is 90 degrees.
	assert.InDelta(t, 90.0, StepsToDegrees(14000, testResolution), 1e-4)
	assert.InDelta(t, -90.0, StepsToDegrees(-14000, testResolution), 1e-4)
	assert.Zero(t, StepsToDegrees(0, testResolution))
}

// Converting steps to degrees and back must land within one step of the
// original count, for both axes.
func TestConversion_RoundTrip(t *testing.T) {
	for _, steps := range []int{0, 1, -1, 100, -100, 7777, 14000, -14000, 25000} {
		deg := StepsToDegrees(steps, testResolution)

		back, err := HeadingToSteps(deg, testResolution)
		require.NoError(t, err, "steps %d", steps)
		assert.InDelta(t, steps, back, 1, "heading round trip for %d steps", steps)
	}

	for _, steps := range []int{0, 1, -1, -5000, -14000, 4000} {
		deg := StepsToDegrees(steps, testResolution)
		if deg < ElevationMin || deg > ElevationMax {
			continue
		}

		back, err := ElevationToSteps(deg, testResolution)
		require.NoError(t, err, "steps %d", steps)
		assert.InDelta(t, steps, back, 1, "elevation round trip for %d steps", steps)
	}
}

func TestConversion_Rounding(t *testing.T) {
	// Conversion rounds to the nearest step rather than truncating.
	steps, err := ElevationToSteps(0.01, 36.0) // 0.01 deg = 1 step exactly at 36 as/step
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = ElevationToSteps(0.014, 36.0) // 1.4 steps -> 1
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = ElevationToSteps(0.016, 36.0) // 1.6 steps -> 2
	require.NoError(t, err)
	assert.Equal(t, 2, steps)
}

func TestMoveVerificationError_Fields(t *testing.T) {
	err := &MoveVerificationError{Mismatches: []AxisMismatch{
		{Axis: "heading", Want: 14000, Got: 13980},
	}}

	assert.True(t, errors.Is(err, ErrMoveVerification))
	assert.Contains(t, err.Error(), "heading")
	assert.Contains(t, err.Error(), "14000")
	assert.Contains(t, err.Error(), "13980")
}
