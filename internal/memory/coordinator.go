// internal/memory/coordinator.go
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/braingate/internal/types"
)

const persistTimeout = 30 * time.Second

// Coordinator wraps a Service with the gateway's persistence semantics:
// fire-and-forget after reply delivery, errors logged and swallowed, one
// best-effort background retry. A persistence failure degrades future recall
// quality only; it must never affect the current turn.
type Coordinator struct {
	service Service
	logger  *slog.Logger
	pending chan persistJob
	wg      sync.WaitGroup
}

type persistJob struct {
	userID    string
	sessionID types.SessionID
}

// NewCoordinator creates a Coordinator with a bounded retry queue. When the
// queue is full, failed persists are dropped after logging.
func NewCoordinator(service Service, retryQueueSize int) *Coordinator {
	if retryQueueSize <= 0 {
		retryQueueSize = 64
	}
	return &Coordinator{
		service: service,
		logger:  slog.Default().With("component", "memory"),
		pending: make(chan persistJob, retryQueueSize),
	}
}

// Retrieve returns facts about userID relevant to query.
func (c *Coordinator) Retrieve(ctx context.Context, userID, query string) ([]Fact, error) {
	return c.service.Retrieve(ctx, userID, query)
}

// PersistAsync triggers persistence of a completed session in the
// background. It returns immediately; callers deliver the user-visible reply
// first and never wait on this. Failures are queued for one later retry.
func (c *Coordinator) PersistAsync(userID string, sessionID types.SessionID) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := c.service.Persist(ctx, userID, sessionID); err != nil {
			c.logger.Error("session persistence failed",
				"session_id", string(sessionID), "user_id", userID, "error", err)
			select {
			case c.pending <- persistJob{userID: userID, sessionID: sessionID}:
			default:
				c.logger.Warn("persistence retry queue full, dropping",
					"session_id", string(sessionID))
			}
			return
		}
		c.logger.Debug("session persisted", "session_id", string(sessionID))
	}()
}

// FlushRetries re-attempts every queued failed persist once. Jobs that fail
// again are dropped. Intended to run on a schedule.
func (c *Coordinator) FlushRetries(ctx context.Context) {
	for {
		select {
		case job := <-c.pending:
			if err := c.service.Persist(ctx, job.userID, job.sessionID); err != nil {
				c.logger.Warn("session persistence retry failed, dropping",
					"session_id", string(job.sessionID), "error", err)
			} else {
				c.logger.Info("session persisted on retry", "session_id", string(job.sessionID))
			}
		default:
			return
		}
	}
}

// PendingRetries returns the number of queued failed persists.
func (c *Coordinator) PendingRetries() int {
	return len(c.pending)
}

// Wait blocks until all in-flight persist goroutines finish. Used by
// shutdown and tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
