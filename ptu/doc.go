// Package ptu drives a FLIR PTU-D48E pan/tilt head over a persistent TCP
// connection using the vendor's line-oriented ASCII command protocol.
//
// # Protocol Overview
//
// The head accepts commands as an ASCII token terminated by a single
// carriage-return. Replies are framed by a leading line-feed and a trailing
// carriage-return/line-feed pair:
//
//   - Command success:  "\n*\r\n"
//   - Query success:    "\n* <value>\r\n"
//   - Error:            "\n!<message>\r\n", possibly with several
//     "!"-prefixed segments before the terminator.
//
// The wire protocol carries no length or message-id framing; reply
// boundaries are inferred purely from those delimiter characters. The
// transport therefore allows at most one exchange in flight per connection,
// and drains stale buffered bytes before every exchange.
//
// # Timeouts
//
// Mechanical travel dominates reply latency, so each command class carries
// its own reply timeout (see CommandPolicy): tens of seconds for position
// commands and axis resets, half a second for everything else. On the first
// reply timeout of an exchange the transport resets the connection and
// replays the command once; a second consecutive timeout is terminal.
//
// # Layering
//
// IPConn owns the socket and implements the Transport capability interface.
// Head sequences multi-command operations (initialization, absolute moves)
// on top of a Transport and verifies their outcome. Degree/step conversion
// is pure arithmetic over the resolution factors learned from the device
// during initialization.
//
// All types in this package are single-owner and not safe for concurrent
// use; embedding applications must serialize access externally.
package ptu
