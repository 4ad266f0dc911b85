package agent

import (
	"errors"
	"fmt"
	"io"
)

// Reduce folds an invocation stream into its terminal state. The stream is
// read through next, which returns io.EOF when exhausted. Tool-call and
// intermediate events are consumed and discarded; the first FINAL event's
// content becomes the reply. Exhaustion before a FINAL event is
// ErrNoFinalResponse, never an empty reply.
func Reduce(next func() (*StreamEvent, error)) (*Reply, error) {
	for {
		ev, err := next()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoFinalResponse
		}
		if err != nil {
			return nil, err
		}

		switch ev.Kind {
		case KindToolCall, KindIntermediate:
			// internal trace, never surfaced
		case KindFinal:
			return &Reply{Text: ev.Content}, nil
		default:
			return nil, &ProtocolError{Reason: fmt.Sprintf("unknown stream event kind %q", ev.Kind)}
		}
	}
}
