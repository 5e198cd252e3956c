// Package webhook delivers final analysis envelopes to the downstream
// consumer.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// Client posts envelopes to a configured webhook URL. An optional token is
// appended as a query parameter.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a webhook client.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver posts a single envelope. A non-empty per-job token overrides the
// configured one. Callers log failures rather than propagating them; a lost
// delivery never fails a job.
func (c *Client) Deliver(ctx context.Context, env model.Envelope, token string) error {
	if c.baseURL == "" {
		return eris.New("webhook: no url configured")
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return eris.Wrap(err, "webhook: marshal envelope")
	}

	if token == "" {
		token = c.token
	}

	reqURL := c.baseURL
	if token != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return eris.Wrap(err, "webhook: parse url")
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "webhook: request")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return eris.Errorf("webhook: returned status %d", resp.StatusCode)
	}
	return nil
}
