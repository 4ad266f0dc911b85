// Package turn executes one conversational turn per queued run: invoke the
// remote agent (with bounded retries), hand the final reply to the delivery
// callback, then trigger best-effort session persistence.
package turn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/braingate/internal/gateway"
	"github.com/user/braingate/internal/memory"
	"github.com/user/braingate/pkg/agent"
)

// Processor is the function target for gateway.Queue.SetProcessor.
type Processor struct {
	invoker agent.Invoker
	memory  *memory.Coordinator
	retry   *gateway.RetryPolicy
	appName string
	logger  *slog.Logger
}

// NewProcessor creates a Processor with the given dependencies.
func NewProcessor(invoker agent.Invoker, mem *memory.Coordinator, retry *gateway.RetryPolicy, appName string) *Processor {
	if retry == nil {
		retry = gateway.DefaultRetryPolicy()
	}
	return &Processor{
		invoker: invoker,
		memory:  mem,
		retry:   retry,
		appName: appName,
		logger:  slog.Default().With("component", "turn"),
	}
}

// Process runs a single turn. A returned error means no reply was produced;
// the queue then posts the generic fallback, so the always-reply invariant
// holds either way. Persistence is triggered only after the reply has been
// handed off for delivery and never blocks or fails the turn.
func (p *Processor) Process(run *gateway.Run) error {
	ctx := run.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	req := &agent.Request{
		AppName:   p.appName,
		UserID:    run.Event.UserID,
		SessionID: string(run.SessionID),
		Message:   run.Event.Text,
	}

	var reply *agent.Reply
	err := p.retry.Execute(func() error {
		run.Attempts++
		var invokeErr error
		reply, invokeErr = p.invoker.Invoke(ctx, req)
		if invokeErr != nil {
			p.logger.Warn("invocation attempt failed",
				"run_id", string(run.ID),
				"session_id", string(run.SessionID),
				"attempt", run.Attempts,
				"error", invokeErr)
		}
		return invokeErr
	})
	if err != nil {
		return fmt.Errorf("invoke agent: %w", err)
	}

	p.logger.Info("turn complete",
		"run_id", string(run.ID),
		"session_id", string(run.SessionID),
		"attempts", run.Attempts)

	if run.OnComplete != nil {
		run.OnComplete(reply.Text)
	}

	if p.memory != nil {
		p.memory.PersistAsync(run.Event.UserID, run.SessionID)
	}
	return nil
}
