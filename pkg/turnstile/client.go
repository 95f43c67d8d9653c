// Package turnstile verifies Cloudflare Turnstile challenge tokens.
package turnstile

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Turnstile siteverify API.
const defaultBaseURL = "https://challenges.cloudflare.com/turnstile/v0"

// Client defines the Turnstile operations used by this application.
type Client interface {
	// Verify checks a challenge token, optionally pinned to the caller's IP.
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// verifyResponse is the parsed siteverify response.
type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Option configures the Turnstile client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	secret  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Turnstile client with the given site secret.
func NewClient(secret string, opts ...Option) Client {
	c := &httpClient{
		secret:  secret,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 8 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/siteverify", strings.NewReader(form.Encode()))
	if err != nil {
		return false, eris.Wrap(err, "turnstile: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "turnstile: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, eris.Wrap(err, "turnstile: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return false, eris.Errorf("turnstile: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, eris.Wrap(err, "turnstile: unmarshal response")
	}

	return result.Success, nil
}
