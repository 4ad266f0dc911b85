// Package webhook exposes the gateway's HTTP surface: the Slack events
// endpoint plus health and status probes.
package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/user/braingate/internal/dedup"
	"github.com/user/braingate/internal/gateway"
	"github.com/user/braingate/internal/memory"
	"github.com/user/braingate/internal/slack"
)

// Server assembles the HTTP router over the gateway's components.
type Server struct {
	receiver *slack.Receiver
	gateway  *gateway.Gateway
	dedup    *dedup.Store
	memory   *memory.Coordinator
	logger   *slog.Logger
	started  time.Time
}

// NewServer creates a Server. coord may be nil when persistence is disabled.
func NewServer(receiver *slack.Receiver, gw *gateway.Gateway, store *dedup.Store, coord *memory.Coordinator) *Server {
	return &Server{
		receiver: receiver,
		gateway:  gw,
		dedup:    store,
		memory:   coord,
		logger:   slog.Default().With("component", "webhook"),
		started:  time.Now(),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Slack-Signature", "X-Slack-Request-Timestamp"},
	}))

	r.Post("/slack/events", s.receiver.HandleEvents)
	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	ActiveRuns     int64  `json:"active_runs"`
	DedupEntries   int    `json:"dedup_entries"`
	PendingRetries int    `json:"pending_persist_retries"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.gateway != nil {
		resp.ActiveRuns = s.gateway.Queue.Active()
	}
	if s.dedup != nil {
		resp.DedupEntries = s.dedup.Len()
	}
	if s.memory != nil {
		resp.PendingRetries = s.memory.PendingRetries()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}
