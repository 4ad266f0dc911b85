// Package remote implements the agent.Invoker interface against an HTTP
// agent runtime that streams newline-delimited JSON events.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/braingate/pkg/agent"
)

const defaultRequestTimeout = 60 * time.Second

// Client implements agent.Invoker for an HTTP streaming agent runtime.
type Client struct {
	config     *agent.Config
	httpClient *http.Client
}

// New creates a new remote agent runtime client with the given configuration.
// The per-invocation deadline comes from config.RequestTimeout; the embedded
// http.Client carries no timeout of its own so streaming reads are governed
// by the request context.
func New(config *agent.Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{},
	}
}

// queryURL builds the streamQuery endpoint for the configured agent resource.
func (c *Client) queryURL() string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/agents/%s:streamQuery",
		c.config.BaseURL, c.config.ProjectID, c.config.Region, c.config.AgentID)
}

// Invoke sends one message and reduces the resulting event stream to the
// final reply. Error classification:
//   - transport failures and 5xx/429 statuses -> *agent.NetworkError (retryable)
//   - deadline exceeded -> agent.ErrTimeout (retryable)
//   - malformed stream payloads -> *agent.ProtocolError (permanent)
//   - stream exhausted without FINAL -> agent.ErrNoFinalResponse (permanent)
func (c *Client) Invoke(ctx context.Context, req *agent.Request) (*agent.Reply, error) {
	timeout := c.config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w after %s", agent.ErrTimeout, timeout)
		}
		return nil, &agent.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("agent runtime error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &agent.NetworkError{Err: statusErr}
		}
		return nil, statusErr
	}

	dec := json.NewDecoder(resp.Body)
	return agent.Reduce(func() (*agent.StreamEvent, error) {
		var ev agent.StreamEvent
		err := dec.Decode(&ev)
		switch {
		case err == nil:
			return &ev, nil
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w while reading stream", agent.ErrTimeout)
		default:
			return nil, &agent.ProtocolError{Reason: "malformed stream payload", Err: err}
		}
	})
}
