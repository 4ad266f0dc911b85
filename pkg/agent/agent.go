package agent

import (
	"context"
	"time"
)

// Invoker drives one conversational turn against a remote agent runtime.
// Implementations handle protocol-specific details such as request
// formatting, authentication, and stream parsing.
type Invoker interface {
	// Invoke sends one user message for the given session and returns the
	// final response extracted from the runtime's event stream.
	Invoke(ctx context.Context, req *Request) (*Reply, error)
}

// Config holds common configuration for agent runtime clients.
type Config struct {
	BaseURL        string
	ProjectID      string
	Region         string
	AgentID        string
	APIKey         string
	RequestTimeout time.Duration
}
