package agent

// Request carries everything the remote agent runtime needs for one
// conversational turn. The gateway passes session and user identifiers
// through; the runtime owns session history and long-term memory retrieval.
type Request struct {
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Reply is the user-visible result of one invocation: the content of the
// stream's single final event. Intermediate tool and thought events never
// appear here.
type Reply struct {
	Text string `json:"text"`
}

// StreamEventKind tags one event in an invocation stream.
type StreamEventKind string

const (
	// KindToolCall is an internal tool invocation trace.
	KindToolCall StreamEventKind = "TOOL_CALL"
	// KindIntermediate is an internal thought or partial-output trace.
	KindIntermediate StreamEventKind = "INTERMEDIATE"
	// KindFinal carries the single user-visible response and terminates
	// the stream.
	KindFinal StreamEventKind = "FINAL"
)

// StreamEvent is one tagged event in an invocation stream.
type StreamEvent struct {
	Kind    StreamEventKind `json:"kind"`
	Content string          `json:"content,omitempty"`
}
