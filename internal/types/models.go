// internal/types/models.go
package types

// InboundEvent is one chat-platform notification after verification and
// envelope parsing. It is processed once and discarded; the gateway does not
// persist it.
type InboundEvent struct {
	EventID   EventID `json:"event_id"`
	Source    string  `json:"source"`
	ChannelID string  `json:"channel_id"`
	UserID    string  `json:"user_id"`
	Text      string  `json:"text"`
	ThreadTS  string  `json:"thread_ts,omitempty"`
	TS        string  `json:"ts"`
}
