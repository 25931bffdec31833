package ptu

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// ConnMetrics contains atomic metrics for a head connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnMetrics struct {
	// ExchangeCount indicates the number of command exchanges attempted.
	ExchangeCount atomic.Uint64
	// ReplyTimeoutCount indicates the number of exchanges that timed out
	// waiting for a complete reply (including ones recovered by the retry).
	ReplyTimeoutCount atomic.Uint64
	// ReconnectCount indicates the number of reconnect-and-retry cycles.
	ReconnectCount atomic.Uint64
	// DrainedByteCount indicates the number of stale bytes discarded from
	// the receive buffer before exchanges.
	DrainedByteCount atomic.Uint64

	// commandCounts tracks exchanges per command token (e.g. "PP", "RT").
	commandCounts *xsync.MapOf[string, *atomic.Uint64]
}

func newConnMetrics() *ConnMetrics {
	return &ConnMetrics{
		commandCounts: xsync.NewMapOf[string, *atomic.Uint64](),
	}
}

// CommandCount returns the number of exchanges attempted for the given
// command token (the leading letters of the command, e.g. "PP" for
// "PP12000").
func (m *ConnMetrics) CommandCount(token string) uint64 {
	counter, ok := m.commandCounts.Load(token)
	if !ok {
		return 0
	}

	return counter.Load()
}

func (m *ConnMetrics) incExchangeCount(command string) {
	m.ExchangeCount.Add(1)

	counter, _ := m.commandCounts.LoadOrStore(commandToken(command), &atomic.Uint64{})
	counter.Add(1)
}

func (m *ConnMetrics) incReplyTimeoutCount() {
	m.ReplyTimeoutCount.Add(1)
}

func (m *ConnMetrics) incReconnectCount() {
	m.ReconnectCount.Add(1)
}

func (m *ConnMetrics) addDrainedByteCount(n int) {
	m.DrainedByteCount.Add(uint64(n))
}

// commandToken returns the leading alphabetic token of a command, which
// identifies the command independent of its numeric parameter.
func commandToken(command string) string {
	for i := 0; i < len(command); i++ {
		c := command[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return command[:i]
		}
	}

	return command
}
