// Package memory bridges the gateway to the remote long-term memory runtime.
// The runtime owns fact extraction and semantic retrieval; the gateway only
// triggers persistence after a completed exchange and, when asked, retrieves
// facts scoped to a user.
package memory

import (
	"context"

	"github.com/user/braingate/internal/types"
)

// Fact is one unit of long-term memory. Its content is opaque to the
// gateway.
type Fact struct {
	Content string `json:"content"`
}

// Service is the contract with the remote memory runtime. Persist signals
// that a session is complete so the runtime can extract and store facts from
// it; retrieval during invocation happens runtime-side, so Retrieve exists
// for callers that need facts outside an invocation.
type Service interface {
	Retrieve(ctx context.Context, userID, query string) ([]Fact, error)
	Persist(ctx context.Context, userID string, sessionID types.SessionID) error
}
