// ABOUTME: HTTP client for the races API used by the command line
// ABOUTME: Wraps each route in a typed method and decodes JSON error bodies

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/races/internal/server"
	"github.com/2389/races/internal/store"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client talks to one races server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithToken sends the bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for baseURL, the server root such as "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// List returns the active races, or the archived ones.
func (c *Client) List(ctx context.Context, archived bool) ([]store.Race, error) {
	path := server.APIPrefix + "/races"
	if archived {
		path += "?archived=true"
	}
	var races []store.Race
	if err := c.do(ctx, http.MethodGet, path, nil, &races); err != nil {
		return nil, err
	}
	return races, nil
}

// Get fetches one race.
func (c *Client) Get(ctx context.Context, id string) (*store.Race, error) {
	var race store.Race
	if err := c.do(ctx, http.MethodGet, racePath(id), nil, &race); err != nil {
		return nil, err
	}
	return &race, nil
}

// Delete removes a race.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, racePath(id), nil, nil)
}

// Archive moves a race to the archived set.
func (c *Client) Archive(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, racePath(id)+"/archive", nil, nil)
}

// Restore moves a race back to the active set.
func (c *Client) Restore(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, racePath(id)+"/restore", nil, nil)
}

// ImportLeg posts a leg document and returns the identifier of the created race.
func (c *Client) ImportLeg(ctx context.Context, legJSON []byte) (string, error) {
	var created server.CreatedResponse
	if err := c.do(ctx, http.MethodPost, server.APIPrefix+"/legs", legJSON, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func racePath(id string) string {
	return server.APIPrefix + "/races/" + url.PathEscape(id)
}

// do sends the request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
