package ptu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/panthyr/go-ptu/internal/pool"
	"github.com/panthyr/go-ptu/logger"
)

// Park position: heading straight ahead, front tilted all the way down.
const (
	ParkHeading   = 0.0
	ParkElevation = ElevationMin
)

// Target selects the axes of an absolute move, in degrees. A nil axis is
// left where it is and is excluded from post-move verification.
type Target struct {
	Heading   *float64
	Elevation *float64
}

// Deg is a convenience for building Target fields from literals.
func Deg(v float64) *float64 { return &v }

// Head sequences multi-command operations on a pan/tilt head: the
// initialization sequence, absolute moves with post-condition verification,
// position queries and the diagnostics readout.
//
// A freshly constructed Head is uninitialized; every motion or query
// operation fails with ErrNotInitialized until Initialize succeeds. Head is
// NOT goroutine-safe — the single-exchange-in-flight invariant of the
// underlying Transport is load-bearing.
type Head struct {
	transport Transport
	logger    logger.Logger
	state     atomicHeadState

	doReset     bool
	hasSlipring bool
	settleDelay time.Duration

	panMaxSpeed   int
	panSpeed      int
	panResetSpeed int

	tiltMaxSpeed   int
	tiltSpeed      int
	tiltResetSpeed int

	panAccel  int
	tiltAccel int

	// Degrees-per-step scale factors (in arc-seconds per step) learned
	// from the device during Initialize. Zero until then.
	resolutionPan  float64
	resolutionTilt float64
}

// NewHead creates a head controller on top of the given transport.
func NewHead(t Transport, opts ...HeadOption) (*Head, error) {
	if t == nil {
		return nil, errors.New("ptu: transport is nil")
	}

	h := &Head{
		transport:      t,
		logger:         logger.GetLogger(),
		doReset:        true,
		hasSlipring:    true,
		settleDelay:    DefaultSettleDelay,
		panMaxSpeed:    DefaultAxisSpeed,
		panSpeed:       DefaultAxisSpeed,
		panResetSpeed:  DefaultResetSpeed,
		tiltMaxSpeed:   DefaultAxisSpeed,
		tiltSpeed:      DefaultAxisSpeed,
		tiltResetSpeed: DefaultResetSpeed,
		panAccel:       DefaultAcceleration,
		tiltAccel:      DefaultAcceleration,
	}

	for _, opt := range opts {
		if err := opt.apply(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// State returns the current lifecycle state.
func (h *Head) State() HeadState { return h.state.Get() }

// PanResolution returns the pan axis scale factor in arc-seconds per step,
// or zero before initialization.
func (h *Head) PanResolution() float64 { return h.resolutionPan }

// TiltResolution returns the tilt axis scale factor in arc-seconds per
// step, or zero before initialization.
func (h *Head) TiltResolution() float64 { return h.resolutionTilt }

// Initialize runs the full initialization sequence: settle delay, echo
// disable, axis configuration, the optional axis reset, the slipring or
// user-limit branch, and finally the two resolution queries that gate all
// degree/step conversion.
//
// Any failed exchange aborts the sequence, leaves the head uninitialized
// and propagates the error. On success the state becomes Ready and the
// one-shot axis reset flag is cleared, so a subsequent Initialize will not
// home the axes again.
func (h *Head) Initialize() error {
	if !h.state.ToInitializing() {
		return fmt.Errorf("ptu: initialization already in progress (state %s)", h.state.Get())
	}

	done := false
	defer func() {
		if !done {
			h.state.ToUninitialized()
		}
	}()

	// The head takes a moment to print its welcome banner. Waiting it out
	// lets the transport's drain step discard it in one piece instead of
	// interleaving banner fragments with the first reply.
	h.pause(h.settleDelay)

	// Disable local command echo first so replies contain only the head's
	// own response.
	if err := h.sendCommand("ED", 0); err != nil {
		return err
	}

	for _, cmd := range h.initCommands() {
		if err := h.sendCommand(cmd, 0); err != nil {
			h.logger.Error("ptu: initialization aborted", "command", cmd, "error", err)

			return err
		}
	}

	resPan, err := h.queryResolution("PR")
	if err != nil {
		return err
	}

	resTilt, err := h.queryResolution("TR")
	if err != nil {
		return err
	}

	h.resolutionPan = resPan
	h.resolutionTilt = resTilt

	// One-shot: a re-initialization must not home the axes again.
	h.doReset = false

	if !h.state.ToReady() {
		return fmt.Errorf("ptu: unexpected state %s at end of initialization", h.state.Get())
	}
	done = true

	h.logger.Info("ptu: head initialized",
		"panResolution", resPan,
		"tiltResolution", resTilt,
		"slipring", h.hasSlipring)

	return nil
}

// initCommands builds the order-significant initialization sequence.
func (h *Head) initCommands() []string {
	cmds := []string{
		"FT",  // terse ASCII feedback
		"PHL", // pan hold power: low
		"THR", // tilt hold power: regular
		"PML", // pan move power: low
		"TMH", // tilt move power: high
		"CEC", // encoder correction mode
		fmt.Sprintf("PA%d", h.panAccel),
		fmt.Sprintf("TA%d", h.tiltAccel),
		fmt.Sprintf("PU%d", h.panMaxSpeed),
		fmt.Sprintf("TU%d", h.tiltMaxSpeed),
		fmt.Sprintf("PS%d", h.panSpeed),
		fmt.Sprintf("TS%d", h.tiltSpeed),
		fmt.Sprintf("RPS%d", h.panResetSpeed),
		fmt.Sprintf("RTS%d", h.tiltResetSpeed),
	}

	if h.doReset {
		// WTA/WPA switch the axes to auto stepping, which requires an axis
		// reset afterwards. RD disables the automatic reset on power-up.
		cmds = append(cmds, "WTA", "WPA", "RT", "RP", "RD")
	}

	// Continuous rotation and user limits depend on post-reset axis state,
	// so whichever branch applies must come last.
	if h.hasSlipring {
		cmds = append(cmds, "PCE")
	} else {
		cmds = append(cmds,
			"TNU-27999", // tilt user minimum, -90 degrees
			"TXU9333",   // tilt user maximum, 30 degrees
			"PNU-27067", // pan user minimum, -174 degrees
			"PXU27067",  // pan user maximum, 174 degrees
			"LU",        // enforce user limits
		)
	}

	return cmds
}

// queryResolution issues one resolution query (PR or TR) and validates the
// returned scale factor. A non-positive resolution would make every later
// conversion undefined, so it fails the initialization.
func (h *Head) queryResolution(query string) (float64, error) {
	value, err := h.sendQuery(query)
	if err != nil {
		return 0, err
	}

	res, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: query %q returned %q: %w", ErrMalformedReply, query, value, err)
	}

	if res <= 0 {
		return 0, fmt.Errorf("%w: query %q reported %v", ErrZeroResolution, query, res)
	}

	return res, nil
}

// MoveTo moves the head to an absolute heading and/or elevation. Axes not
// present in the target are not moved and not verified.
//
// After the motion completes, the current position is queried and compared
// per targeted axis against the intended step count; any disagreement is
// reported as a MoveVerificationError naming the axis and both values.
func (h *Head) MoveTo(target Target) error {
	if !h.state.IsReady() {
		return fmt.Errorf("%w: move rejected", ErrNotInitialized)
	}

	var (
		panSteps, tiltSteps int
		err                 error
	)

	if target.Heading != nil {
		panSteps, err = HeadingToSteps(*target.Heading, h.resolutionPan)
		if err != nil {
			return err
		}
	}

	if target.Elevation != nil {
		tiltSteps, err = ElevationToSteps(*target.Elevation, h.resolutionTilt)
		if err != nil {
			return err
		}
	}

	if target.Heading == nil && target.Elevation == nil {
		return nil // no axis targeted, nothing to do
	}

	cmds := make([]string, 0, 3)
	if target.Heading != nil {
		cmds = append(cmds, fmt.Sprintf("PP%d", panSteps))
	}
	if target.Elevation != nil {
		cmds = append(cmds, fmt.Sprintf("TP%d", tiltSteps))
	}
	// Await-completion comes last regardless of which axes moved.
	cmds = append(cmds, "A")

	for _, cmd := range cmds {
		if err := h.sendCommand(cmd, 0); err != nil {
			h.logger.Error("ptu: move aborted", "command", cmd, "error", err)

			return err
		}
	}

	return h.verifyPosition(target, panSteps, tiltSteps)
}

// verifyPosition compares the head's current position against the intended
// target, per targeted axis only.
func (h *Head) verifyPosition(target Target, panSteps, tiltSteps int) error {
	curPan, curTilt, err := h.currentSteps()
	if err != nil {
		return err
	}

	var mismatches []AxisMismatch

	if target.Heading != nil && curPan != panSteps {
		mismatches = append(mismatches, AxisMismatch{Axis: "heading", Want: panSteps, Got: curPan})
	}
	if target.Elevation != nil && curTilt != tiltSteps {
		mismatches = append(mismatches, AxisMismatch{Axis: "elevation", Want: tiltSteps, Got: curTilt})
	}

	if len(mismatches) == 0 {
		return nil
	}

	verr := &MoveVerificationError{Mismatches: mismatches}
	h.logger.Error("ptu: move verification failed", "error", verr)

	return verr
}

// Park moves the head to its park position: heading 0, elevation all the
// way down.
func (h *Head) Park() error {
	return h.MoveTo(Target{Heading: Deg(ParkHeading), Elevation: Deg(ParkElevation)})
}

// CurrentPositionSteps returns the current pan and tilt position in device
// steps.
func (h *Head) CurrentPositionSteps() (pan, tilt int, err error) {
	if !h.state.IsReady() {
		return 0, 0, fmt.Errorf("%w: position query rejected", ErrNotInitialized)
	}

	return h.currentSteps()
}

// CurrentPositionDegrees returns the current heading and elevation in
// degrees, rounded to one decimal place.
func (h *Head) CurrentPositionDegrees() (heading, elevation float64, err error) {
	pan, tilt, err := h.CurrentPositionSteps()
	if err != nil {
		return 0, 0, err
	}

	heading = round1(StepsToDegrees(pan, h.resolutionPan))
	elevation = round1(StepsToDegrees(tilt, h.resolutionTilt))

	return heading, elevation, nil
}

// ReadTelemetry queries the head's diagnostics: supply voltage and the
// head, pan and tilt temperatures converted to degrees Celsius, all rounded
// to one decimal place.
func (h *Head) ReadTelemetry() (Telemetry, error) {
	if !h.state.IsReady() {
		return Telemetry{}, fmt.Errorf("%w: telemetry query rejected", ErrNotInitialized)
	}

	value, err := h.sendQuery("O")
	if err != nil {
		return Telemetry{}, err
	}

	return parseTelemetry(value)
}

// SendCommand sends a raw command once the head is initialized. With a zero
// timeout the command's policy timeout applies.
func (h *Head) SendCommand(command string, timeout time.Duration) error {
	if !h.state.IsReady() {
		return fmt.Errorf("%w: command %q rejected", ErrNotInitialized, command)
	}

	return h.sendCommand(command, timeout)
}

// SendQuery sends a raw query once the head is initialized and returns the
// value after the success marker.
func (h *Head) SendQuery(query string) (string, error) {
	if !h.state.IsReady() {
		return "", fmt.Errorf("%w: query %q rejected", ErrNotInitialized, query)
	}

	return h.sendQuery(query)
}

// PanRelative is not implemented: no current firmware revision defines
// relative-move semantics for this driver. It always returns
// ErrNotSupported, which is distinct from every runtime failure.
func (h *Head) PanRelative(degrees float64) error {
	return fmt.Errorf("%w: relative pan", ErrNotSupported)
}

// TiltRelative is not implemented; see PanRelative.
func (h *Head) TiltRelative(degrees float64) error {
	return fmt.Errorf("%w: relative tilt", ErrNotSupported)
}

// --- Exchange helpers ---

// sendCommand sends one command through the transport with its policy
// timeout (or the override, if positive) and validates the reply. For the
// axis reset commands, embedded "!T"/"!P" tokens are stripped before the
// remainder is required to be exactly the bare success marker.
func (h *Head) sendCommand(command string, timeout time.Duration) error {
	command = strings.ToUpper(strings.TrimSpace(command))

	pol := CommandPolicy(command)
	if timeout <= 0 {
		timeout = pol.Timeout
	}

	reply, err := h.transport.SendAndReceive(command, timeout)
	if err != nil {
		return err
	}

	if err := checkCommandReply(command, reply, pol.TolerateAxisErrors); err != nil {
		h.logger.Error("ptu: incorrect reply", "command", command, "reply", reply)

		return err
	}

	return nil
}

func checkCommandReply(command, reply string, tolerateAxisErrors bool) error {
	checked := reply
	if tolerateAxisErrors {
		checked = strings.ReplaceAll(checked, "!T", "")
		checked = strings.ReplaceAll(checked, "!P", "")
	}

	if checked != "*" {
		return fmt.Errorf("%w: command %q got %q", ErrMalformedReply, command, reply)
	}

	return nil
}

// sendQuery sends one query with the query timeout and strips the leading
// "* " success marker from the reply.
func (h *Head) sendQuery(query string) (string, error) {
	query = strings.ToUpper(strings.TrimSpace(query))

	reply, err := h.transport.SendAndReceive(query, QueryTimeout)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(reply, "* ") {
		h.logger.Error("ptu: incorrect reply", "query", query, "reply", reply)

		return "", fmt.Errorf("%w: query %q got %q", ErrMalformedReply, query, reply)
	}

	return reply[2:], nil
}

// currentSteps issues the two position queries without a state check.
func (h *Head) currentSteps() (pan, tilt int, err error) {
	panValue, err := h.sendQuery("PP")
	if err != nil {
		return 0, 0, err
	}

	pan, err = strconv.Atoi(strings.TrimSpace(panValue))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: pan position %q: %w", ErrMalformedReply, panValue, err)
	}

	tiltValue, err := h.sendQuery("TP")
	if err != nil {
		return 0, 0, err
	}

	tilt, err = strconv.Atoi(strings.TrimSpace(tiltValue))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: tilt position %q: %w", ErrMalformedReply, tiltValue, err)
	}

	return pan, tilt, nil
}

// pause blocks for d using a pooled timer.
func (h *Head) pause(d time.Duration) {
	if d <= 0 {
		return
	}

	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	<-timer.C
}
