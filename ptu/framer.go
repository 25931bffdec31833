package ptu

// Reply frame delimiters. A reply begins with LF and ends with CR LF; the
// delimiters never appear in the payload.
const (
	replyLead   = '\n'
	replyTrail  = "\r\n"
	minFrameLen = 3 // lead byte plus the two trailer bytes
)

// Frame reports whether buf holds a complete reply frame and, if so, returns
// the payload with the delimiters stripped.
//
// A buffer is complete exactly when it is at least three bytes long, starts
// with a line-feed and ends with carriage-return/line-feed. Anything shorter
// or not yet terminated is "incomplete", never malformed: an ill-formed
// final reply only ever manifests as a frame that never completes before
// the exchange timeout, which the transport reports as ErrReplyTimeout.
func Frame(buf []byte) (payload string, ok bool) {
	if len(buf) < minFrameLen {
		return "", false
	}

	if buf[0] != replyLead {
		return "", false
	}

	if string(buf[len(buf)-2:]) != replyTrail {
		return "", false
	}

	return string(buf[1 : len(buf)-2]), true
}
