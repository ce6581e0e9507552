// Package cdp is a minimal Chrome DevTools Protocol client.
// It covers only what the council pipeline needs: listing open targets on
// a browser's remote debugging port and evaluating JavaScript inside one
// target over its websocket session.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Target is one debuggable page reported by the browser.
type Target struct {
	// ID is the browser-assigned target identifier.
	ID string `json:"id"`
	// Type is the target kind ("page", "iframe", "service_worker", ...).
	Type string `json:"type"`
	// Title is the page title.
	Title string `json:"title"`
	// URL is the page's current address.
	URL string `json:"url"`
	// WebSocketDebuggerURL is the endpoint for a DevTools session on this
	// target. Empty when another client is already attached.
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Client talks to a browser's remote debugging HTTP endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a Client for the given debugging base URL
// (e.g. http://127.0.0.1:9222).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Targets lists the browser's open page targets.
func (c *Client) Targets(ctx context.Context) ([]Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json/list", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing targets: unexpected status %s", resp.Status)
	}

	var all []Target
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding target list: %w", err)
	}

	pages := make([]Target, 0, len(all))
	for _, t := range all {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// Reachable reports whether the debugging endpoint answers at all.
func (c *Client) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
