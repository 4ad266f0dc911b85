// internal/memory/client.go
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/braingate/internal/types"
)

// Config holds configuration for the remote memory runtime client.
type Config struct {
	BaseURL        string
	ProjectID      string
	Region         string
	StoreID        string
	APIKey         string
	RequestTimeout time.Duration
}

// Client implements Service against an HTTP memory runtime.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a memory runtime client.
func NewClient(config *Config) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) storeURL(verb string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/memoryStores/%s:%s",
		c.config.BaseURL, c.config.ProjectID, c.config.Region, c.config.StoreID, verb)
}

// Retrieve returns facts about userID relevant to the semantic query.
func (c *Client) Retrieve(ctx context.Context, userID, query string) ([]Fact, error) {
	reqBody := map[string]string{"user_id": userID, "query": query}
	var respBody struct {
		Facts []Fact `json:"facts"`
	}
	if err := c.post(ctx, c.storeURL("retrieve"), reqBody, &respBody); err != nil {
		return nil, fmt.Errorf("retrieve facts: %w", err)
	}
	return respBody.Facts, nil
}

// Persist asks the runtime to extract long-term facts from a completed
// session. The runtime reads the session transcript from its own session
// service; the gateway only passes identifiers.
func (c *Client) Persist(ctx context.Context, userID string, sessionID types.SessionID) error {
	reqBody := map[string]string{"user_id": userID, "session_id": string(sessionID)}
	if err := c.post(ctx, c.storeURL("generate"), reqBody, nil); err != nil {
		return fmt.Errorf("persist session %s: %w", sessionID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("memory runtime error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
