package ptu

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeHead is a scripted TCP pan/tilt head for transport tests.
//
// It accepts connections sequentially. Each received command (terminated by
// a carriage-return) is passed to the reply function; the returned payload
// is framed as "\n<payload>\r\n" and written back. A nil ok return leaves
// the command unanswered, which drives the caller into its reply timeout.
type fakeHead struct {
	t      *testing.T
	ln     net.Listener
	banner string
	reply  func(cmd string) (payload string, answer bool)

	// rawReply, when set, takes precedence over reply and writes the
	// returned chunks verbatim with a short pause between them. It is
	// used to exercise reassembly of split frames and partial replies.
	rawReply func(cmd string) [][]byte

	conns    atomic.Int32
	mu       sync.Mutex
	received []string
}

func newFakeHead(t *testing.T, reply func(cmd string) (string, bool)) *fakeHead {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("newFakeHead: %v", err)
	}

	f := &fakeHead{t: t, ln: ln, reply: reply}
	t.Cleanup(func() { _ = ln.Close() })

	go f.acceptLoop()

	return f
}

func (f *fakeHead) acceptLoop() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}

		f.conns.Add(1)

		if f.banner != "" {
			_, _ = conn.Write([]byte(f.banner))
		}

		f.serve(conn)
	}
}

func (f *fakeHead) serve(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			return
		}

		cmd := strings.TrimSuffix(line, "\r")

		f.mu.Lock()
		f.received = append(f.received, cmd)
		f.mu.Unlock()

		if f.rawReply != nil {
			for _, chunk := range f.rawReply(cmd) {
				if _, err := conn.Write(chunk); err != nil {
					return
				}

				time.Sleep(5 * time.Millisecond)
			}

			continue
		}

		payload, answer := f.reply(cmd)
		if !answer {
			continue
		}

		if _, err := conn.Write([]byte("\n" + payload + "\r\n")); err != nil {
			return
		}
	}
}

func (f *fakeHead) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeHead) connCount() int {
	return int(f.conns.Load())
}

func (f *fakeHead) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.received))
	copy(out, f.received)

	return out
}

// newTestConn creates a connected IPConn against the fake head with short
// timeouts suitable for tests.
func newTestConn(t *testing.T, f *fakeHead, opts ...ConnOption) *IPConn {
	t.Helper()

	defaults := []ConnOption{
		WithConnectTimeout(time.Second),
		WithReconnectDelay(20 * time.Millisecond),
	}

	cfg, err := NewConnConfig("127.0.0.1", f.port(), append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConn: %v", err)
	}

	conn := NewIPConn(cfg)
	if err := conn.Connect(); err != nil {
		t.Fatalf("newTestConn: connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// alwaysOK answers every command with the bare success marker.
func alwaysOK(string) (string, bool) { return "*", true }

// scriptTransport is an in-memory Transport for Head tests. It records each
// sent command and its timeout, and answers from the replies map; commands
// without an entry get the bare success marker.
type scriptTransport struct {
	sent     []string
	timeouts []time.Duration

	replies map[string]string
	errs    map[string]error
}

var _ Transport = (*scriptTransport)(nil)

func newScriptTransport() *scriptTransport {
	return &scriptTransport{
		replies: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (s *scriptTransport) Connect() error { return nil }
func (s *scriptTransport) Close() error   { return nil }

func (s *scriptTransport) SendAndReceive(command string, timeout time.Duration) (string, error) {
	s.sent = append(s.sent, command)
	s.timeouts = append(s.timeouts, timeout)

	if err, ok := s.errs[command]; ok {
		return "", err
	}
	if reply, ok := s.replies[command]; ok {
		return reply, nil
	}

	return "*", nil
}

// newTestHead creates a Head on the given transport with the settle delay
// disabled and the default resolution replies scripted (12.0 arc-seconds
// per step on both axes, so 1 degree = 300 steps).
func newTestHead(t *testing.T, s *scriptTransport, opts ...HeadOption) *Head {
	t.Helper()

	if _, ok := s.replies["PR"]; !ok {
		s.replies["PR"] = "* 12.0"
	}
	if _, ok := s.replies["TR"]; !ok {
		s.replies["TR"] = "* 12.0"
	}

	head, err := NewHead(s, append([]HeadOption{WithSettleDelay(0)}, opts...)...)
	if err != nil {
		t.Fatalf("newTestHead: %v", err)
	}

	return head
}

func timeoutFor(t *testing.T, s *scriptTransport, command string) time.Duration {
	t.Helper()

	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i] == command {
			return s.timeouts[i]
		}
	}

	t.Fatalf("command %q was never sent", command)

	return 0
}

func indexOf(commands []string, command string) int {
	for i, c := range commands {
		if c == command {
			return i
		}
	}

	return -1
}
