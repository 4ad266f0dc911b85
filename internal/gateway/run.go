package gateway

import (
	"context"
	"time"

	"github.com/user/braingate/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks a single processing attempt of one admitted inbound event.
// OnComplete delivers the user-visible reply; the queue guarantees it is
// called exactly once per run, with the agent's final text on success or the
// generic fallback on failure.
type Run struct {
	ID         types.RunID
	SessionID  types.SessionID
	SessionKey types.SessionKey
	Event      *types.InboundEvent
	Status     RunStatus
	Attempts   int
	CreatedAt  time.Time
	Ctx        context.Context
	OnComplete func(response string)
}

// NewRun creates a Run in the Queued state for the given session and event.
func NewRun(sessionID types.SessionID, key types.SessionKey, event *types.InboundEvent) *Run {
	return &Run{
		ID:         types.NewRunID(),
		SessionID:  sessionID,
		SessionKey: key,
		Event:      event,
		Status:     RunStatusQueued,
		CreatedAt:  time.Now(),
	}
}
