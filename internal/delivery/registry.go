// internal/delivery/registry.go
package delivery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/braingate/internal/types"
)

// Handler delivers a reply to the conversation identified by sessionKey.
type Handler func(sessionKey types.SessionKey, message string) error

// Registry routes replies to the platform adapter owning the session key's
// prefix (e.g. "slack:"). Keeping delivery behind the registry means the
// queue and turn processor never learn platform details.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for session keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler matching the session key prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Deliver(sessionKey types.SessionKey, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(string(sessionKey), prefix) {
			return handler(sessionKey, message)
		}
	}
	return fmt.Errorf("no delivery handler for session key: %s", sessionKey)
}
