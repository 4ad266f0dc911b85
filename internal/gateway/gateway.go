package gateway

import (
	"context"
	"sync"

	"github.com/user/braingate/internal/session"
	"github.com/user/braingate/internal/types"
)

// Gateway admits inbound events into runs. It resolves the thread-stable
// session identifier, wraps each event in a Run, and enqueues the run on the
// session's lane. Dedup happens upstream at the receiver edge, before an
// event reaches the gateway.
type Gateway struct {
	Queue *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway with the given concurrency limit for simultaneous
// run processing.
func New(maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	return &Gateway{
		Queue: NewQueue(concurrency),
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
	g.wg.Wait()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets the callback that delivers the run's reply.
func WithOnComplete(fn func(string)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// HandleInbound resolves the session for the event, wraps it in a Run, and
// enqueues it for processing. Events in the same thread resolve to the same
// session and therefore the same FIFO lane.
func (g *Gateway) HandleInbound(_ context.Context, event *types.InboundEvent, opts ...RunOption) error {
	sessionID := session.Resolve(event)
	key := session.Key(event.Source, event.ChannelID, sessionID)
	run := NewRun(sessionID, key, event)
	for _, opt := range opts {
		opt(run)
	}
	return g.Queue.Enqueue(run)
}
