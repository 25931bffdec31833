package ptu

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/panthyr/go-ptu/logger"
)

// Default connection parameters.
const (
	// DefaultPort is the TCP port of the head's command interface.
	DefaultPort = 4000

	// DefaultConnectTimeout bounds the TCP dial.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultReconnectDelay is the pause between closing a timed-out
	// connection and redialing it for the single exchange retry.
	DefaultReconnectDelay = 500 * time.Millisecond

	// DefaultKeepAliveIdle and DefaultKeepAliveInterval configure TCP
	// keep-alive probing: start after 10 idle seconds, then probe every
	// 10 seconds.
	DefaultKeepAliveIdle     = 10 * time.Second
	DefaultKeepAliveInterval = 10 * time.Second
)

// ConnConfig holds all configuration for an IP connection to the head.
type ConnConfig struct {
	host string
	port int

	connectTimeout    time.Duration
	reconnectDelay    time.Duration
	keepAliveIdle     time.Duration
	keepAliveInterval time.Duration

	logger logger.Logger
}

// NewConnConfig creates a connection configuration for the head at the
// given host and port.
//
// opts are functional options applied in order; see With* functions.
func NewConnConfig(host string, port int, opts ...ConnOption) (*ConnConfig, error) {
	cfg := &ConnConfig{
		connectTimeout:    DefaultConnectTimeout,
		reconnectDelay:    DefaultReconnectDelay,
		keepAliveIdle:     DefaultKeepAliveIdle,
		keepAliveInterval: DefaultKeepAliveInterval,
		logger:            logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}
	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *ConnConfig) setHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		cfg.host = host
		return nil
	}

	host = strings.TrimPrefix(host, ".")
	host = strings.TrimSuffix(host, ".")
	if _, err := net.LookupHost(host); err == nil {
		cfg.host = host
		return nil
	}

	return fmt.Errorf("ptu: invalid host %q", host)
}

func (cfg *ConnConfig) setPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("ptu: port %d out of range [0, 65535]", port)
	}
	cfg.port = port

	return nil
}

// --- Getters ---

// Host returns the configured host address.
func (cfg *ConnConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *ConnConfig) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *ConnConfig) Addr() string { return fmt.Sprintf("%s:%d", cfg.host, cfg.port) }

// ConnectTimeout returns the TCP dial timeout.
func (cfg *ConnConfig) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// ReconnectDelay returns the pause before the reconnect-and-retry redial.
func (cfg *ConnConfig) ReconnectDelay() time.Duration { return cfg.reconnectDelay }

// GetLogger returns the configured logger.
func (cfg *ConnConfig) GetLogger() logger.Logger { return cfg.logger }

// --- ConnOption ---

// ConnOption is a functional option for configuring a ConnConfig.
type ConnOption interface {
	apply(*ConnConfig) error
}

type connOptFunc func(*ConnConfig) error

func (f connOptFunc) apply(cfg *ConnConfig) error { return f(cfg) }

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		if d <= 0 {
			return errors.New("ptu: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithReconnectDelay sets the pause between closing a timed-out connection
// and redialing it for the exchange retry.
func WithReconnectDelay(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		if d < 0 {
			return errors.New("ptu: reconnect delay must not be negative")
		}
		cfg.reconnectDelay = d

		return nil
	})
}

// WithKeepAlive sets the TCP keep-alive idle time and probe interval.
func WithKeepAlive(idle, interval time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		if idle <= 0 || interval <= 0 {
			return errors.New("ptu: keep-alive idle and interval must be positive")
		}
		cfg.keepAliveIdle = idle
		cfg.keepAliveInterval = interval

		return nil
	})
}

// WithConnLogger sets the logger for the connection.
func WithConnLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		if l == nil {
			return errors.New("ptu: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
