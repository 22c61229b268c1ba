// internal/engine/client.go
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single engine call. The engine owns the game rules;
// if it cannot answer within this window the action is reported as failed and
// the room state stays untouched.
const DefaultTimeout = 5 * time.Second

// Action is one player action as received from a client, forwarded to the
// engine verbatim. Optional fields marshal away when empty so the engine only
// sees what the client actually sent.
type Action struct {
	RoomID    string `json:"room_id"`
	Kind      string `json:"action"`
	PlayerID  string `json:"playerId"`
	Name      string `json:"name,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Error is an engine call failure. Transient covers timeouts and connection
// failures; a non-2xx response is a definitive rejection.
type Error struct {
	Transient bool
	Status    int
	Err       error
}

func (e *Error) Error() string {
	if e.Transient {
		return fmt.Sprintf("engine unavailable: %v", e.Err)
	}
	return fmt.Sprintf("engine rejected action (status %d): %v", e.Status, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Forwarder is the narrow interface the session coordinator depends on.
type Forwarder interface {
	Forward(ctx context.Context, a Action) (json.RawMessage, error)
}

// Client talks to the external simulation engine over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the engine at baseURL (no trailing slash).
// timeout <= 0 falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Forward posts the action to the engine's /update endpoint and returns the
// new authoritative game state. Exactly one attempt is made per call; retry
// policy belongs to the caller, and no caller in this service retries.
func (c *Client) Forward(ctx context.Context, a Action) (json.RawMessage, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Transient: true, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", bytes.TrimSpace(data)),
		}
	}
	return data, nil
}
