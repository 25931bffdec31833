package ptu

import (
	"strings"
	"time"
)

// Per-command reply timeouts. Position commands wait for real mechanical
// travel, so their timeouts reflect worst-case slew time per axis.
const (
	// DefaultTimeout applies to configuration commands that execute
	// immediately on the controller.
	DefaultTimeout = 500 * time.Millisecond

	// QueryTimeout applies to all queries.
	QueryTimeout = 500 * time.Millisecond

	// TiltMoveTimeout applies to absolute tilt position commands (TP).
	TiltMoveTimeout = 25 * time.Second

	// PanMoveTimeout applies to absolute pan position commands (PP) and to
	// the await-motion-complete command (A), which can wait on a full pan
	// sweep.
	PanMoveTimeout = 32 * time.Second

	// AxisResetTimeout applies to the axis reset/calibration commands
	// (RT, RP) and their reset-speed variants.
	AxisResetTimeout = 15 * time.Second
)

// ExchangePolicy governs a single command exchange: how long to wait for the
// reply and whether embedded axis-error tokens are tolerated.
type ExchangePolicy struct {
	// Timeout is the reply timeout for the exchange.
	Timeout time.Duration

	// TolerateAxisErrors is true only for the axis reset commands RT and
	// RP. Homing an axis drives it into its limit switches, so the head
	// legitimately emits "!T"/"!P" error tokens inside an otherwise
	// successful reply; those tokens are stripped before validation. For
	// every other command the reply must be the bare success marker.
	TolerateAxisErrors bool
}

// CommandPolicy returns the exchange policy for the given command.
//
// The mapping is keyed on the command's leading token:
//
//	TP...       tilt position        -> TiltMoveTimeout
//	PP...       pan position         -> PanMoveTimeout
//	A           await completion     -> PanMoveTimeout
//	RT.../RP... axis reset (+speeds) -> AxisResetTimeout
//	(other)                          -> DefaultTimeout
//
// Only the exact commands RT and RP set TolerateAxisErrors.
func CommandPolicy(command string) ExchangePolicy {
	command = strings.ToUpper(strings.TrimSpace(command))

	pol := ExchangePolicy{Timeout: DefaultTimeout}

	switch {
	case strings.HasPrefix(command, "TP"):
		pol.Timeout = TiltMoveTimeout
	case strings.HasPrefix(command, "PP"):
		pol.Timeout = PanMoveTimeout
	case command == "A":
		pol.Timeout = PanMoveTimeout
	case strings.HasPrefix(command, "RT"), strings.HasPrefix(command, "RP"):
		pol.Timeout = AxisResetTimeout
	}

	if command == "RT" || command == "RP" {
		pol.TolerateAxisErrors = true
	}

	return pol
}
