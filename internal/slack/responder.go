// internal/slack/responder.go
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/user/braingate/internal/types"
)

// Slack rejects chat.postMessage payloads above this text length.
const maxSlackMessage = 4000

const postTimeout = 10 * time.Second

// Responder posts agent replies back into the originating Slack thread.
// The thread timestamp is the session identifier, so replying into the
// session's thread and keeping working memory keyed to it are the same act.
type Responder struct {
	api    *goslack.Client
	logger *slog.Logger
}

// NewResponder creates a Responder using the given bot token.
func NewResponder(token string) *Responder {
	return &Responder{
		api:    goslack.New(token),
		logger: slog.Default().With("component", "slack-responder"),
	}
}

// NewResponderWithAPIURL creates a Responder that targets a custom API URL.
// Useful for testing with a mock server.
func NewResponderWithAPIURL(token, apiURL string) *Responder {
	return &Responder{
		api:    goslack.New(token, goslack.OptionAPIURL(apiURL)),
		logger: slog.Default().With("component", "slack-responder"),
	}
}

// PostReply posts text as a threaded reply in channelID, splitting messages
// that exceed Slack's length limit. Slack refuses empty messages, so an
// empty (but present) agent reply is delivered as a placeholder rather than
// as silence.
func (r *Responder) PostReply(ctx context.Context, channelID string, sessionID types.SessionID, text string) error {
	if text == "" {
		text = "(the assistant returned an empty reply)"
	}
	parts := splitMessage(text)
	if len(parts) > 1 {
		r.logger.Debug("splitting long reply", "channel", channelID, "parts", len(parts))
	}
	for _, part := range parts {
		_, _, err := r.api.PostMessageContext(ctx, channelID,
			goslack.MsgOptionText(part, false),
			goslack.MsgOptionTS(string(sessionID)),
		)
		if err != nil {
			return fmt.Errorf("chat.postMessage failed: %w", err)
		}
	}
	return nil
}

// SendTo delivers a message addressed by session key, for registration with
// the delivery registry. Keys look like "slack:<channel>:<thread_ts>".
func (r *Responder) SendTo(sessionKey types.SessionKey, message string) error {
	parts := strings.SplitN(string(sessionKey), ":", 3)
	if len(parts) != 3 || parts[0] != "slack" {
		return fmt.Errorf("malformed slack session key: %s", sessionKey)
	}
	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()
	return r.PostReply(ctx, parts[1], types.SessionID(parts[2]), message)
}

func splitMessage(text string) []string {
	if len(text) <= maxSlackMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxSlackMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
