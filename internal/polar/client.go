// ABOUTME: HTTP client for the external polar service
// ABOUTME: Resolves a polar id to the boat label stored on race records

package polar

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultCacheSize = 256

// Config configures a Client
type Config struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration // zero disables caching
	Logger   *slog.Logger

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// Client looks up boat names by polar id. Every failure degrades to ("", false).
type Client struct {
	url    string
	http   *http.Client
	cache  *Cache
	logger *slog.Logger
}

// polarRecord is the subset of the polar payload the service reads
type polarRecord struct {
	ID string `json:"id"`
}

// NewClient creates a Client. An empty URL yields a client that never resolves.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		url:    cfg.URL,
		http:   httpClient,
		logger: logger,
	}
	if cfg.URL != "" && cfg.CacheTTL > 0 {
		c.cache = NewCache(cfg.CacheTTL, defaultCacheSize)
	}
	return c
}

// Resolve returns the boat name of a polar, or ("", false) when it cannot be determined.
func (c *Client) Resolve(ctx context.Context, polarID int) (string, bool) {
	if c.url == "" {
		return "", false
	}

	if c.cache != nil {
		if boat, ok := c.cache.Get(polarID); ok {
			return boat, true
		}
	}

	boat, ok := c.fetch(ctx, polarID)
	if ok && c.cache != nil {
		c.cache.Put(polarID, boat)
	}
	return boat, ok
}

func (c *Client) fetch(ctx context.Context, polarID int) (string, bool) {
	u, err := url.Parse(c.url)
	if err != nil {
		c.logger.Error("invalid polar url", "url", c.url, "error", err)
		return "", false
	}
	q := u.Query()
	q.Set("polar_id", strconv.Itoa(polarID))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		c.logger.Error("creating polar request", "polar_id", polarID, "error", err)
		return "", false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("getting polar", "polar_id", polarID, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("polar not found", "polar_id", polarID, "status", resp.StatusCode)
		return "", false
	}

	var rec polarRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		c.logger.Error("decoding polar", "polar_id", polarID, "error", err)
		return "", false
	}
	if rec.ID == "" {
		c.logger.Warn("polar has no id", "polar_id", polarID)
		return "", false
	}

	c.logger.Info("found polar", "polar_id", polarID, "boat", rec.ID)
	return rec.ID, true
}

// Close releases the cache goroutine.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}
