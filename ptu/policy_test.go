package ptu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommandPolicy_Timeouts(t *testing.T) {
	tests := []struct {
		command string
		timeout time.Duration
	}{
		{"TP-27000", TiltMoveTimeout},
		{"PP14000", PanMoveTimeout},
		{"A", PanMoveTimeout},
		{"RT", AxisResetTimeout},
		{"RP", AxisResetTimeout},
		{"RTS4000", AxisResetTimeout},
		{"RPS4000", AxisResetTimeout},
		{"ED", DefaultTimeout},
		{"FT", DefaultTimeout},
		{"PCE", DefaultTimeout},
		{"PS4000", DefaultTimeout},
		{"TNU-27999", DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.timeout, CommandPolicy(tt.command).Timeout)
		})
	}
}

func TestCommandPolicy_AxisErrorTolerance(t *testing.T) {
	// Only the exact reset commands tolerate embedded axis-error tokens;
	// the reset-speed commands share their timeout but not the tolerance.
	assert.True(t, CommandPolicy("RT").TolerateAxisErrors)
	assert.True(t, CommandPolicy("RP").TolerateAxisErrors)

	assert.False(t, CommandPolicy("RTS4000").TolerateAxisErrors)
	assert.False(t, CommandPolicy("RPS4000").TolerateAxisErrors)
	assert.False(t, CommandPolicy("PP14000").TolerateAxisErrors)
	assert.False(t, CommandPolicy("A").TolerateAxisErrors)
}

func TestCommandPolicy_NormalizesInput(t *testing.T) {
	assert.True(t, CommandPolicy("rt").TolerateAxisErrors)
	assert.Equal(t, PanMoveTimeout, CommandPolicy(" pp100 ").Timeout)
}
