// Package suggest asks a hosted prompt endpoint for destination ideas.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

var (
	ErrNotConfigured   = errors.New("The AI-powered suggestion service is currently unavailable due to a configuration issue.")
	ErrService         = errors.New("An error occurred while trying to suggest destinations. Please try again later.")
	ErrMissingLocation = errors.New("Please enter your current location.")
)

// Request is the prompt endpoint's input.
type Request struct {
	UserLocation   string   `json:"userLocation"`
	RecentSearches []string `json:"recentSearches,omitempty"`
}

type response struct {
	Destinations *[]string `json:"destinations"`
}

// Client calls the prompt endpoint. A Client without an API key fails every
// call with ErrNotConfigured and never touches the network.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a client. timeout bounds one call end to end.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the credential and endpoint are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.endpoint != ""
}

// Suggest returns the endpoint's destination strings as is. Content is not
// checked beyond being a list of strings.
func (c *Client) Suggest(ctx context.Context, req Request) ([]string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Printf("[suggest] call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		log.Printf("[suggest] read body: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[suggest] endpoint returned %d: %s", resp.StatusCode, data)
		return nil, fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil || out.Destinations == nil {
		log.Printf("[suggest] malformed response: %s", data)
		return nil, fmt.Errorf("%w: response missing destinations", ErrService)
	}
	return *out.Destinations, nil
}
