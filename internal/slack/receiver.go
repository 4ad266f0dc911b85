// Package slack adapts the Slack Events API to the gateway: the Receiver
// verifies and admits inbound events, the Responder posts replies back into
// the originating thread.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/user/braingate/internal/delivery"
	"github.com/user/braingate/internal/gateway"
	"github.com/user/braingate/internal/session"
	"github.com/user/braingate/internal/types"
)

const maxBodyBytes = 1 << 20

// Receiver handles Slack Events API callbacks. Every request is signature
// verified, deduplicated by event ID, and acknowledged with a 200 before the
// turn itself runs. Slack redelivers on slow or missing acks, so the ack must
// never wait on agent invocation.
type Receiver struct {
	gateway       *gateway.Gateway
	delivery      *delivery.Registry
	dedup         types.DedupStore
	signingSecret string
	tolerance     time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewReceiver creates a Receiver. tolerance bounds the accepted skew of the
// X-Slack-Request-Timestamp header; requests outside it are rejected before
// signature verification to stop replay of captured payloads.
func NewReceiver(gw *gateway.Gateway, reg *delivery.Registry, dedup types.DedupStore, signingSecret string, tolerance time.Duration) *Receiver {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Receiver{
		gateway:       gw,
		delivery:      reg,
		dedup:         dedup,
		signingSecret: signingSecret,
		tolerance:     tolerance,
		logger:        slog.Default().With("component", "slack-receiver"),
		now:           time.Now,
	}
}

// HandleEvents is the HTTP handler for the Slack events endpoint.
func (rc *Receiver) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := rc.verifySignature(r.Header, body); err != nil {
		rc.logger.Warn("rejected unverified request", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		rc.logger.Warn("unparseable event payload", "error", err)
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "bad challenge payload", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))

	case slackevents.CallbackEvent:
		rc.handleCallback(&event, w)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// verifySignature checks the request timestamp against the replay tolerance,
// then validates the v0 HMAC signature over the raw body.
func (rc *Receiver) verifySignature(header http.Header, body []byte) error {
	tsHeader := header.Get("X-Slack-Request-Timestamp")
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp header %q: %w", tsHeader, err)
	}
	skew := rc.now().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > rc.tolerance {
		return fmt.Errorf("timestamp outside tolerance: skew %s", skew)
	}

	verifier, err := goslack.NewSecretsVerifier(header, rc.signingSecret)
	if err != nil {
		return fmt.Errorf("init verifier: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return fmt.Errorf("write body to verifier: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}

// handleCallback deduplicates the event envelope, admits supported inner
// events into the gateway, and acks with a 200. Slack's at-least-once
// delivery means the same event ID can arrive more than once; only the first
// delivery produces a run.
func (rc *Receiver) handleCallback(event *slackevents.EventsAPIEvent, w http.ResponseWriter) {
	callback, ok := event.Data.(*slackevents.EventsAPICallbackEvent)
	if !ok {
		http.Error(w, "bad callback payload", http.StatusBadRequest)
		return
	}

	eventID := types.EventID(callback.EventID)
	if eventID != "" && rc.dedup.Check(eventID) {
		rc.logger.Info("dropped duplicate delivery", "event_id", string(eventID))
		w.WriteHeader(http.StatusOK)
		return
	}

	inbound := rc.toInbound(eventID, event.InnerEvent.Data)
	if inbound == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	rc.admit(inbound)
	w.WriteHeader(http.StatusOK)
}

// toInbound maps a supported inner event to an InboundEvent, or returns nil
// for event types the gateway ignores. Bot messages and message edits are
// filtered here so the assistant never replies to itself.
func (rc *Receiver) toInbound(eventID types.EventID, inner any) *types.InboundEvent {
	switch ev := inner.(type) {
	case *slackevents.MessageEvent:
		if ev.SubType != "" || ev.BotID != "" {
			return nil
		}
		if ev.ChannelType != "im" {
			return nil
		}
		return &types.InboundEvent{
			EventID:   eventID,
			Source:    "slack",
			ChannelID: ev.Channel,
			UserID:    ev.User,
			Text:      ev.Text,
			ThreadTS:  ev.ThreadTimeStamp,
			TS:        ev.TimeStamp,
		}
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" {
			return nil
		}
		return &types.InboundEvent{
			EventID:   eventID,
			Source:    "slack",
			ChannelID: ev.Channel,
			UserID:    ev.User,
			Text:      stripMention(ev.Text),
			ThreadTS:  ev.ThreadTimeStamp,
			TS:        ev.TimeStamp,
		}
	default:
		return nil
	}
}

// admit enqueues the event with a completion callback that routes the reply
// through the delivery registry. If the session lane is saturated the event
// cannot be admitted; the user still gets a reply via the fallback path.
func (rc *Receiver) admit(inbound *types.InboundEvent) {
	err := rc.gateway.HandleInbound(context.Background(), inbound,
		gateway.WithOnComplete(func(response string) {
			key := sessionKeyFor(inbound)
			if err := rc.delivery.Deliver(key, response); err != nil {
				rc.logger.Error("reply delivery failed",
					"session_key", string(key),
					"error", err)
			}
		}))
	if err != nil {
		rc.logger.Error("failed to enqueue event",
			"event_id", string(inbound.EventID),
			"error", err)
		if derr := rc.delivery.Deliver(sessionKeyFor(inbound), gateway.FallbackReply); derr != nil {
			rc.logger.Error("fallback delivery failed", "error", derr)
		}
	}
}

func sessionKeyFor(ev *types.InboundEvent) types.SessionKey {
	return session.Key(ev.Source, ev.ChannelID, session.Resolve(ev))
}

// stripMention removes a leading <@UXXXX> mention from app_mention text so
// the agent sees the question, not the addressing.
func stripMention(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<@") {
		if end := strings.Index(trimmed, ">"); end > 0 {
			return strings.TrimSpace(trimmed[end+1:])
		}
	}
	return trimmed
}
