package ptu

import (
	"errors"
	"time"

	"github.com/panthyr/go-ptu/logger"
)

// Default head configuration. Speeds and accelerations are in controller
// units (positions/sec and positions/sec^2).
const (
	DefaultAxisSpeed    = 4000
	DefaultResetSpeed   = 4000
	DefaultAcceleration = 2000

	// DefaultSettleDelay is how long Initialize waits before the first
	// command, giving the head time to finish printing its boot banner.
	DefaultSettleDelay = 600 * time.Millisecond
)

// HeadOption is a functional option for configuring a Head.
type HeadOption interface {
	apply(*Head) error
}

type headOptFunc func(*Head) error

func (f headOptFunc) apply(h *Head) error { return f(h) }

// WithAxisReset controls whether Initialize runs the axis reset and
// calibration commands (RT/RP). Enabled by default. The reset is one-shot:
// after a successful initialization the flag clears itself, so re-running
// Initialize does not home the axes again.
func WithAxisReset(enabled bool) HeadOption {
	return headOptFunc(func(h *Head) error {
		h.doReset = enabled
		return nil
	})
}

// WithSlipring declares whether the head model has a slipring. Slipring
// models get continuous pan rotation enabled; models without one get user
// position limits enforced instead. Enabled by default.
func WithSlipring(enabled bool) HeadOption {
	return headOptFunc(func(h *Head) error {
		h.hasSlipring = enabled
		return nil
	})
}

// WithSettleDelay sets how long Initialize waits for the boot banner before
// sending the first command.
func WithSettleDelay(d time.Duration) HeadOption {
	return headOptFunc(func(h *Head) error {
		if d < 0 {
			return errors.New("ptu: settle delay must not be negative")
		}
		h.settleDelay = d

		return nil
	})
}

// WithPanSpeeds sets the pan axis maximum, constant and reset speeds.
func WithPanSpeeds(maxSpeed, constantSpeed, resetSpeed int) HeadOption {
	return headOptFunc(func(h *Head) error {
		if maxSpeed <= 0 || constantSpeed <= 0 || resetSpeed <= 0 {
			return errors.New("ptu: pan speeds must be positive")
		}
		h.panMaxSpeed = maxSpeed
		h.panSpeed = constantSpeed
		h.panResetSpeed = resetSpeed

		return nil
	})
}

// WithTiltSpeeds sets the tilt axis maximum, constant and reset speeds.
func WithTiltSpeeds(maxSpeed, constantSpeed, resetSpeed int) HeadOption {
	return headOptFunc(func(h *Head) error {
		if maxSpeed <= 0 || constantSpeed <= 0 || resetSpeed <= 0 {
			return errors.New("ptu: tilt speeds must be positive")
		}
		h.tiltMaxSpeed = maxSpeed
		h.tiltSpeed = constantSpeed
		h.tiltResetSpeed = resetSpeed

		return nil
	})
}

// WithAccelerations sets the pan and tilt axis accelerations.
func WithAccelerations(pan, tilt int) HeadOption {
	return headOptFunc(func(h *Head) error {
		if pan <= 0 || tilt <= 0 {
			return errors.New("ptu: accelerations must be positive")
		}
		h.panAccel = pan
		h.tiltAccel = tilt

		return nil
	})
}

// WithHeadLogger sets the logger for the head controller.
func WithHeadLogger(l logger.Logger) HeadOption {
	return headOptFunc(func(h *Head) error {
		if l == nil {
			return errors.New("ptu: logger must not be nil")
		}
		h.logger = l

		return nil
	})
}
