package watcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
)

// Client fetches aggregated pickups through the proxy, the same way the
// browser dashboard does. It always uses the store_id form so every slot in
// the merged result carries its store id.
type Client struct {
	proxyURL *url.URL
	headers  map[string]string
	hc       *http.Client
	log      *zap.Logger
}

const fetchTimeout = 30 * time.Second

// NewClient builds a Client for the given proxy endpoint. headers is the
// operator's optional extra-header blob, applied to every request.
func NewClient(proxyURL string, headers map[string]string, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(proxyURL))
	if err != nil {
		return nil, fmt.Errorf("parse proxy url %q: %w", proxyURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy url %q must be absolute", proxyURL)
	}
	return &Client{
		proxyURL: u,
		headers:  headers,
		hc:       &http.Client{Timeout: fetchTimeout},
		log:      log,
	}, nil
}

// FetchPickups requests all stores in one proxy round trip and returns the
// flattened slot list.
func (c *Client) FetchPickups(ctx context.Context, storeIDs []string) ([]foodsharing.PickupSlot, error) {
	u := *c.proxyURL
	q := u.Query()
	for _, id := range storeIDs {
		q.Add("store_id", id)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pickups: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		excerpt := body
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, fmt.Errorf("proxy returned HTTP %d: %s", resp.StatusCode, excerpt)
	}

	pickups, err := foodsharing.Flatten(body)
	if err != nil {
		return nil, fmt.Errorf("parse pickups: %w", err)
	}
	return pickups, nil
}

// NotifyURL derives the email endpoint from the proxy origin.
func (c *Client) NotifyURL() string {
	u := *c.proxyURL
	u.Path = "/notify-email"
	u.RawQuery = ""
	return u.String()
}

// Headers returns the extra-header blob for persistence.
func (c *Client) Headers() map[string]string { return c.headers }
