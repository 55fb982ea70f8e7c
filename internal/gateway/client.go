package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client invokes tools on a remote collaborator over HTTP.
type Client struct {
	collaborator string
	baseURL      string
	http         *http.Client
}

// NewClient builds a client for one collaborator. A zero timeout falls back
// to 30 seconds.
func NewClient(collaborator, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		collaborator: collaborator,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: timeout},
	}
}

// CallTool posts a tool invocation and unwraps the envelope. A failure
// envelope becomes CollaboratorError; a missed deadline becomes TimeoutError.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	body, err := json.Marshal(ToolRequest{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("marshal tool request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call_tool", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Collaborator: c.collaborator, Tool: name}
		}
		return nil, &CollaboratorError{Collaborator: c.collaborator, Tool: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &CollaboratorError{
			Collaborator: c.collaborator,
			Tool:         name,
			Msg:          fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	var envelope ToolResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &CollaboratorError{Collaborator: c.collaborator, Tool: name, Err: err}
	}
	if !envelope.Success {
		return nil, &CollaboratorError{Collaborator: c.collaborator, Tool: name, Msg: envelope.Error}
	}
	return envelope.Data, nil
}

// ListTools fetches the collaborator's catalog.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("build tools request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CollaboratorError{Collaborator: c.collaborator, Tool: "tools", Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &CollaboratorError{Collaborator: c.collaborator, Tool: "tools", Err: err}
	}
	return payload.Tools, nil
}

// Healthy reports whether the collaborator answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
