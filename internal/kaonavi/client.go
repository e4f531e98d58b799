// Package kaonavi implements the upstream HTTP collaborator: token
// acquisition and raw member/sheet batch fetches against the Kaonavi
// public API.
package kaonavi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"github.com/otokawa-k/kaonavi-mcp-server/config"
)

// ErrUpstreamUnavailable indicates a transport, auth, or HTTP-status
// failure talking to the Kaonavi API. It is fatal for the calling tool
// operation; no retries happen at this layer.
var ErrUpstreamUnavailable = errors.New("kaonavi: upstream unavailable")

// Credentials carries the immutable upstream identity. It is fixed at
// startup and never mutated by concurrent requests.
type Credentials struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// CredentialsFromEnv reads the upstream configuration from the
// environment, failing when any variable is missing.
func CredentialsFromEnv(getenv func(string) string) (Credentials, error) {
	c := Credentials{
		BaseURL:        strings.TrimRight(strings.TrimSpace(getenv(config.EnvBaseURL)), "/"),
		ConsumerKey:    strings.TrimSpace(getenv(config.EnvConsumerKey)),
		ConsumerSecret: strings.TrimSpace(getenv(config.EnvConsumerSecret)),
	}
	switch {
	case c.BaseURL == "":
		return Credentials{}, fmt.Errorf("kaonavi: %s is not set", config.EnvBaseURL)
	case c.ConsumerKey == "":
		return Credentials{}, fmt.Errorf("kaonavi: %s is not set", config.EnvConsumerKey)
	case c.ConsumerSecret == "":
		return Credentials{}, fmt.Errorf("kaonavi: %s is not set", config.EnvConsumerSecret)
	}
	return c, nil
}

// Client fetches raw member and sheet batches. The access token is cached
// under a mutex and refreshed shortly before expiry.
type Client struct {
	creds Credentials
	httpc *http.Client
	clock func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient constructs a Client. httpc defaults to one with the upstream
// timeout; clock defaults to time.Now when nil.
func NewClient(creds Credentials, httpc *http.Client, clock func() time.Time) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: config.DefaultUpstreamTimeout}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Client{creds: creds, httpc: httpc, clock: clock}
}

// FetchMembers returns the raw member_data JSON array for the members
// dataset.
func (c *Client) FetchMembers(ctx context.Context) ([]byte, error) {
	return c.fetch(ctx, "/members")
}

// FetchSheet returns the raw member_data JSON array for one sheet.
func (c *Client) FetchSheet(ctx context.Context, sheetID int) ([]byte, error) {
	return c.fetch(ctx, fmt.Sprintf("/sheets/%d", sheetID))
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.creds.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Kaonavi-Token", token)

	start := c.clock()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstreamUnavailable, path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	batch, vt, _, err := jsonparser.Get(body, "member_data")
	if err != nil || vt != jsonparser.Array {
		return nil, fmt.Errorf("%w: %s response has no member_data array", ErrUpstreamUnavailable, path)
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Int("bytes", len(batch)).
		Dur("duration", c.clock().Sub(start)).
		Msg("upstream fetch completed")

	return batch, nil
}

// accessToken returns a cached token or acquires a fresh one via the
// client-credentials grant. A 60 second margin avoids handing out tokens
// about to expire mid-request.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock().Add(time.Minute).Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", ErrUpstreamUnavailable, err)
	}
	req.SetBasicAuth(c.creds.ConsumerKey, c.creds.ConsumerSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: token: read body: %v", ErrUpstreamUnavailable, err)
	}

	token, err := jsonparser.GetString(body, "access_token")
	if err != nil || token == "" {
		return "", fmt.Errorf("%w: token response has no access_token", ErrUpstreamUnavailable)
	}
	expires, err := jsonparser.GetInt(body, "expires_in")
	if err != nil || expires <= 0 {
		expires = 3600
	}

	c.token = token
	c.tokenExp = c.clock().Add(time.Duration(expires) * time.Second)
	return c.token, nil
}
