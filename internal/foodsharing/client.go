package foodsharing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the foodsharing API. It never follows redirects (the login
// and 401 semantics depend on seeing the raw response) and never carries a
// cookie jar: session cookies exist only for the single retry the aggregator
// asks for.
type Client struct {
	base  *url.URL
	hc    *http.Client
	creds Credentials
	log   *zap.Logger
}

// Credentials are the operator-level login secrets. Empty values are allowed
// at construction; Login reports them as a per-request error.
type Credentials struct {
	Email    string
	Password string
}

// ForwardHeaders is the caller-supplied subset of headers the proxy is
// willing to pass upstream.
type ForwardHeaders struct {
	Accept    string
	CSRFToken string
}

const (
	userAgent      = "fs-watcher-proxy/1.0"
	loginPath      = "/api/user/login"
	requestTimeout = 15 * time.Second
)

var (
	// ErrMissingCredentials means login was needed but the operator never
	// configured FOODWATCH_LOGIN_EMAIL / FOODWATCH_LOGIN_PASSWORD.
	ErrMissingCredentials = errors.New("missing FOODWATCH_LOGIN_EMAIL or FOODWATCH_LOGIN_PASSWORD in environment variables")
	// ErrLoginFailed means the login exchange came back without a usable
	// session cookie. The original request must not be retried.
	ErrLoginFailed = errors.New("login failed")
)

// New builds a Client for the given upstream base URL.
func New(baseURL string, creds Credentials, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream base url %q must be absolute", baseURL)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		hc: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		creds: creds,
		log:   log,
	}, nil
}

// Host returns the fixed upstream host the proxy is allowed to reach.
func (c *Client) Host() string { return c.base.Hostname() }

// Allowed reports whether u targets the upstream host under /api/. Anything
// else would turn the proxy into an open relay.
func (c *Client) Allowed(u *url.URL) bool {
	return u.Hostname() == c.base.Hostname() && strings.HasPrefix(u.Path, "/api/")
}

// PickupsURL builds the absolute pickups endpoint for one store.
func (c *Client) PickupsURL(storeID string) string {
	return c.base.String() + "/api/stores/" + url.PathEscape(storeID) + "/pickups"
}

// Get performs one upstream GET with the forward-header allow-list applied.
// Caller cookies are never forwarded; only a cookie obtained by Login and
// passed in explicitly goes upstream. The caller owns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, fwd ForwardHeaders, cookie string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	accept := fwd.Accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if fwd.CSRFToken != "" {
		req.Header.Set("X-Csrf-Token", fwd.CSRFToken)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	return resp, nil
}

// Login performs the credential exchange and returns the session cookie
// string, multiple cookies joined with "; ". Success means HTTP 200 plus at
// least one Set-Cookie header; anything else is ErrLoginFailed and the caller
// must not retry its original request.
func (c *Client) Login(ctx context.Context) (string, error) {
	email := strings.TrimSpace(c.creds.Email)
	password := strings.TrimSpace(c.creds.Password)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	if email != c.creds.Email || password != c.creds.Password {
		c.log.Warn("login credentials had surrounding whitespace, trimmed")
	}

	payload, err := json.Marshal(map[string]any{
		"email":       email,
		"password":    password,
		"remember_me": true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	cookies := resp.Header.Values("Set-Cookie")
	if resp.StatusCode != http.StatusOK || len(cookies) == 0 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		c.log.Error("login failed",
			zap.Int("status", resp.StatusCode),
			zap.Bool("has_cookies", len(cookies) > 0),
			zap.ByteString("body", excerpt))
		return "", fmt.Errorf("%w (status=%d)", ErrLoginFailed, resp.StatusCode)
	}

	values := make([]string, 0, len(cookies))
	for _, sc := range cookies {
		// keep only the name=value pair, drop cookie attributes
		if i := strings.Index(sc, ";"); i >= 0 {
			sc = sc[:i]
		}
		values = append(values, strings.TrimSpace(sc))
	}
	return strings.Join(values, "; "), nil
}
