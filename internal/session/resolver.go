// internal/session/resolver.go
package session

import "github.com/user/braingate/internal/types"

// Resolve derives the stable session identifier for an inbound event. A
// threaded message resolves to its thread root's timestamp; a top-level
// message resolves to its own timestamp, making it the root of the thread
// the reply will start. Deterministic: every event in a thread yields the
// same SessionID.
func Resolve(ev *types.InboundEvent) types.SessionID {
	if ev.ThreadTS != "" {
		return types.SessionID(ev.ThreadTS)
	}
	return types.SessionID(ev.TS)
}

// Key builds the delivery/routing key for a resolved session.
func Key(source, channelID string, id types.SessionID) types.SessionKey {
	return types.NewSessionKey(source, channelID, string(id))
}
