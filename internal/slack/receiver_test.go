package slack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/braingate/internal/dedup"
	"github.com/user/braingate/internal/delivery"
	"github.com/user/braingate/internal/gateway"
	"github.com/user/braingate/internal/types"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

// signRequest builds a POST with valid v0 Slack signature headers.
func signRequest(t *testing.T, body string, ts int64) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	stamp := strconv.FormatInt(ts, 10)
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "v0:%s:%s", stamp, body)
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func messagePayload(eventID, channel, user, text, ts string) string {
	return fmt.Sprintf(`{
		"token": "tok",
		"team_id": "T1",
		"type": "event_callback",
		"event_id": %q,
		"event": {
			"type": "message",
			"channel": %q,
			"channel_type": "im",
			"user": %q,
			"text": %q,
			"ts": %q
		}
	}`, eventID, channel, user, text, ts)
}

type capturedReply struct {
	key types.SessionKey
	msg string
}

// testHarness wires a real gateway and dedup store behind a Receiver, with
// the processor and delivery handler replaced by recorders.
type testHarness struct {
	receiver *Receiver
	replies  chan capturedReply
	mu       sync.Mutex
	texts    []string
}

func newHarness(t *testing.T, reply string) *testHarness {
	t.Helper()
	h := &testHarness{replies: make(chan capturedReply, 8)}

	gw := gateway.New(2)
	gw.Queue.SetProcessor(func(run *gateway.Run) error {
		h.mu.Lock()
		h.texts = append(h.texts, run.Event.Text)
		h.mu.Unlock()
		if run.OnComplete != nil {
			run.OnComplete(reply)
		}
		return nil
	})
	gw.Start(context.Background())
	t.Cleanup(gw.Stop)

	reg := delivery.NewRegistry()
	reg.Register("slack:", func(key types.SessionKey, msg string) error {
		h.replies <- capturedReply{key: key, msg: msg}
		return nil
	})

	h.receiver = NewReceiver(gw, reg, dedup.NewStore(time.Hour), testSigningSecret, 5*time.Minute)
	return h
}

func (h *testHarness) awaitReply(t *testing.T) capturedReply {
	t.Helper()
	select {
	case r := <-h.replies:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no reply delivered")
		return capturedReply{}
	}
}

func (h *testHarness) processedTexts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.texts...)
}

func TestReceiverURLVerification(t *testing.T) {
	h := newHarness(t, "ignored")

	body := `{"type":"url_verification","challenge":"abc123","token":"tok"}`
	rec := httptest.NewRecorder()
	h.receiver.HandleEvents(rec, signRequest(t, body, time.Now().Unix()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", rec.Body.String())
}

func TestReceiverAdmitsDirectMessage(t *testing.T) {
	h := newHarness(t, "the answer is blue")

	body := messagePayload("Ev001", "D1", "U123", "what's my favorite color?", "1712345678.000200")
	rec := httptest.NewRecorder()
	h.receiver.HandleEvents(rec, signRequest(t, body, time.Now().Unix()))

	require.Equal(t, http.StatusOK, rec.Code)
	reply := h.awaitReply(t)
	assert.Equal(t, types.SessionKey("slack:D1:1712345678.000200"), reply.key)
	assert.Equal(t, "the answer is blue", reply.msg)
	assert.Equal(t, []string{"what's my favorite color?"}, h.processedTexts())
}

func TestReceiverRejectsBadSignature(t *testing.T) {
	h := newHarness(t, "never")

	body := messagePayload("Ev002", "D1", "U123", "hi", "1712345678.000300")
	req := signRequest(t, body, time.Now().Unix())
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	rec := httptest.NewRecorder()
	h.receiver.HandleEvents(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.processedTexts(), "unverified request must not reach the gateway")
}

func TestReceiverRejectsStaleTimestamp(t *testing.T) {
	h := newHarness(t, "never")

	body := messagePayload("Ev003", "D1", "U123", "hi", "1712345678.000400")
	stale := time.Now().Add(-10 * time.Minute).Unix()
	rec := httptest.NewRecorder()
	h.receiver.HandleEvents(rec, signRequest(t, body, stale))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.processedTexts())
}

func TestReceiverDropsDuplicateDelivery(t *testing.T) {
	h := newHarness(t, "once")

	body := messagePayload("Ev004", "D1", "U123", "hello", "1712345678.000500")
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.receiver.HandleEvents(rec, signRequest(t, body, time.Now().Unix()))
		assert.Equal(t, http.StatusOK, rec.Code, "duplicates still ack with 200")
	}

	h.awaitReply(t)
	select {
	case r := <-h.replies:
		t.Fatalf("duplicate delivery produced a second reply: %q", r.msg)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Len(t, h.processedTexts(), 1)
}

func TestReceiverIgnoresBotMessages(t *testing.T) {
	h := newHarness(t, "never")

	body := `{
		"token": "tok",
		"team_id": "T1",
		"type": "event_callback",
		"event_id": "Ev005",
		"event": {
			"type": "message",
			"channel": "D1",
			"channel_type": "im",
			"bot_id": "B999",
			"text": "I am a bot",
			"ts": "1712345678.000600"
		}
	}`
	rec := httptest.NewRecorder()
	h.receiver.HandleEvents(rec, signRequest(t, body, time.Now().Unix()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.processedTexts(), "bot messages must be filtered at the edge")
}

func TestReceiverAppMentionThreaded(t *testing.T) {
	h := newHarness(t, "on it")

	body := `{
		"token": "tok",
		"team_id": "T1",
		"type": "event_callback",
		"event_id": "Ev006",
		"event": {
			"type": "app_mention",
			"channel": "C42",
			"user": "U123",
			"text": "<@U0BOT> summarize this thread",
			"ts": "1712345699.000100",
			"thread_ts": "1712345678.000200"
		}
	}`
	rec := httptest.NewRecorder()
	h.receiver.HandleEvents(rec, signRequest(t, body, time.Now().Unix()))

	require.Equal(t, http.StatusOK, rec.Code)
	reply := h.awaitReply(t)
	assert.Equal(t, types.SessionKey("slack:C42:1712345678.000200"), reply.key,
		"threaded mention must resolve to the thread's session")
	assert.Equal(t, []string{"summarize this thread"}, h.processedTexts())
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, "hello there", stripMention("<@U0BOT> hello there"))
	assert.Equal(t, "no mention", stripMention("no mention"))
	assert.Equal(t, "", stripMention("<@U0BOT>"))
}
