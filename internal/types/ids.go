// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// SessionID is the stable, thread-scoped conversation identifier. For Slack
// events it is the thread timestamp: thread_ts when the message is a threaded
// reply, otherwise the message's own ts (which makes that message the thread
// root). The same value is used as thread_ts when posting the reply, so one
// thread is always one session.
type SessionID string

// SessionKey addresses a session across platforms, e.g.
// "slack:C024BE91L:1712345678.000200". Delivery routing and queue lanes
// key on it.
type SessionKey string

// RunID identifies a single processing attempt of one inbound event.
type RunID string

// EventID is the platform-assigned delivery identifier used for dedup.
// Platforms redeliver with the same EventID, so it is unique per logical
// event, not per delivery.
type EventID string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewSessionKey(parts ...string) SessionKey {
	return SessionKey(strings.Join(parts, ":"))
}
