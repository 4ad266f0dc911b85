package agent

import "errors"

// ErrNoFinalResponse is returned when the invocation stream ends without
// ever emitting a FINAL event. Distinct from a successful reply with empty
// text: an absent reply must never be silently treated as success.
var ErrNoFinalResponse = errors.New("agent stream ended without a final response")

// ErrTimeout is returned when an invocation exceeds its configured deadline.
var ErrTimeout = errors.New("agent invocation timed out")

// ProtocolError indicates a malformed or unintelligible payload from the
// agent runtime. It signals a protocol mismatch, not a transient fault, and
// is never retried.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NetworkError indicates a transport-level failure reaching the agent
// runtime. Transient: callers may retry with backoff.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "agent runtime unreachable: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }
