package ptu

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/panthyr/go-ptu/internal/pool"
	"github.com/panthyr/go-ptu/logger"
)

const (
	// pollInterval bounds each read call while waiting for a reply frame.
	// It trades busy-wait cost against detection latency for short replies.
	pollInterval = 10 * time.Millisecond

	// drainTimeout is the per-read deadline while emptying the receive
	// buffer of stale bytes. Data already buffered returns immediately;
	// an empty buffer costs at most one drainTimeout.
	drainTimeout = 5 * time.Millisecond

	// writeTimeout bounds the full transmission of one command.
	writeTimeout = 500 * time.Millisecond

	// bootBannerMarker appears in the welcome message the head prints after
	// power-up. Draining it is routine, not an anomaly worth warning about.
	bootBannerMarker = "PAN-TILT"
)

// Transport is the capability required to exchange framed commands with a
// pan/tilt head. IPConn implements it for TCP; alternate transports (e.g.
// a serial line) can be substituted without touching Head.
//
// Implementations are single-owner: at most one exchange may be in flight
// at any time, and a new exchange may only start after the prior one's
// reply or timeout has resolved.
type Transport interface {
	// Connect establishes the connection to the head.
	Connect() error

	// SendAndReceive sends one command and returns the payload of its
	// reply with the frame delimiters stripped.
	SendAndReceive(command string, timeout time.Duration) (string, error)

	// Close tears the connection down.
	Close() error
}

// IPConn is a TCP connection to the head's Ethernet command interface.
//
// It owns the socket lifecycle: dialing with keep-alive probing, draining
// stale bytes before each exchange, and the one-shot reconnect-and-retry on
// reply timeout. IPConn is NOT goroutine-safe; see Transport.
type IPConn struct {
	cfg     *ConnConfig
	logger  logger.Logger
	conn    net.Conn
	metrics *ConnMetrics
}

// Compile-time check: IPConn implements Transport.
var _ Transport = (*IPConn)(nil)

// NewIPConn creates an unconnected IPConn with the given configuration.
// Call Connect before the first exchange.
func NewIPConn(cfg *ConnConfig) *IPConn {
	return &IPConn{
		cfg:     cfg,
		logger:  cfg.logger,
		metrics: newConnMetrics(),
	}
}

// Metrics returns the metrics associated with the connection.
func (c *IPConn) Metrics() *ConnMetrics {
	return c.metrics
}

// Connect dials the head with a bounded connect timeout, configures TCP
// keep-alive probing and drains any bytes the head already pushed (its boot
// banner, typically). Any previously held socket is closed first.
//
// Connect does not retry; the caller decides whether connection setup is
// worth another attempt.
func (c *IPConn) Connect() error {
	if c.conn != nil {
		_ = c.Close()
	}

	dialer := &net.Dialer{
		Timeout: c.cfg.connectTimeout,
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     c.cfg.keepAliveIdle,
			Interval: c.cfg.keepAliveInterval,
		},
	}

	conn, err := dialer.Dial("tcp", c.cfg.Addr())
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %w", ErrConnection, c.cfg.Addr(), err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		// The vendor manual says to disable Nagle, but the head's network
		// stack hangs far less often with it left enabled.
		_ = tcp.SetNoDelay(false)
	}

	c.conn = conn
	c.drain()

	c.logger.Debug("ptu: connected",
		"localAddr", conn.LocalAddr(),
		"remoteAddr", conn.RemoteAddr())

	return nil
}

// Close closes the socket. Closing an unconnected IPConn is a no-op.
func (c *IPConn) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: closing: %w", ErrConnection, err)
	}

	return nil
}

// SendAndReceive performs one command exchange.
//
// On the first reply timeout for the command, the connection is closed,
// redialed after a short pause, and the command is replayed once with the
// same timeout. A second consecutive timeout is terminal and surfaces as
// ErrReplyTimeout; it never triggers another reconnect, so a dead device
// cannot cause a retry storm.
func (c *IPConn) SendAndReceive(command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	reply, err := c.exchange(command, timeout)
	if err == nil || !errors.Is(err, ErrReplyTimeout) {
		return reply, err
	}

	c.logger.Warn("ptu: resetting connection and retrying command",
		"command", command,
		"timeout", timeout,
		"error", err)

	c.metrics.incReconnectCount()

	_ = c.Close()
	c.pause(c.cfg.reconnectDelay)

	if cerr := c.Connect(); cerr != nil {
		return "", cerr
	}

	reply, err = c.exchange(command, timeout)
	if err != nil && errors.Is(err, ErrReplyTimeout) {
		c.logger.Error("ptu: retry failed", "command", command, "error", err)
	}

	return reply, err
}

// exchange performs a single drain/send/receive cycle.
func (c *IPConn) exchange(command string, timeout time.Duration) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("%w: not connected", ErrConnection)
	}

	c.metrics.incExchangeCount(command)
	c.drain()

	if err := c.writeCommand(command); err != nil {
		return "", err
	}

	return c.readReply(command, timeout)
}

// drain empties the receive buffer before an exchange. A late reply from a
// prior exchange or the boot banner is discarded; anything else left in the
// buffer is logged as a recoverable anomaly, never a failure.
func (c *IPConn) drain() {
	var drained []byte
	chunk := make([]byte, 1024)

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(drainTimeout))

		n, err := c.conn.Read(chunk)
		if n > 0 {
			drained = append(drained, chunk[:n]...)
		}
		if err != nil {
			break // deadline with an empty buffer, or peer closed
		}
	}

	if len(drained) == 0 {
		return
	}

	c.metrics.addDrainedByteCount(len(drained))

	if strings.Contains(string(drained), bootBannerMarker) {
		c.logger.Debug("ptu: discarded boot banner", "bytes", len(drained))
	} else {
		c.logger.Warn("ptu: stale data in receive buffer", "data", string(drained))
	}
}

// writeCommand appends the carriage-return terminator and writes the whole
// command, looping on partial writes.
func (c *IPConn) writeCommand(command string) error {
	data := []byte(command + "\r")

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("%w: setting write deadline: %w", ErrConnection, err)
	}

	for written := 0; written < len(data); {
		n, err := c.conn.Write(data[written:])
		written += n

		if err != nil {
			return fmt.Errorf("%w: sending %q: %w", ErrConnection, command, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: sending %q: connection closed", ErrConnection, command)
		}

		if written < len(data) {
			c.logger.Info("ptu: partial write", "command", command, "remaining", len(data)-written)
		}
	}

	return nil
}

// readReply accumulates received bytes until the framer reports a complete
// reply or the monotonic deadline expires. Each read is bounded by
// pollInterval so the deadline is checked every ~10ms without drift across
// the long move timeouts.
func (c *IPConn) readReply(command string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 256)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.metrics.incReplyTimeoutCount()

			return "", fmt.Errorf("%w: no complete reply to %q within %v (partial %q)",
				ErrReplyTimeout, command, timeout, string(buf))
		}

		poll := pollInterval
		if remaining < poll {
			poll = remaining
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(poll))

		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			if payload, ok := Frame(buf); ok {
				return payload, nil
			}
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue // poll expired, keep waiting until the deadline
			}

			return "", fmt.Errorf("%w: reading reply to %q: %w", ErrConnection, command, err)
		}
	}
}

// pause blocks for d using a pooled timer.
func (c *IPConn) pause(d time.Duration) {
	if d <= 0 {
		return
	}

	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	<-timer.C
}
