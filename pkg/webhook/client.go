// Package webhook implements the HTTP client for the external automation
// collaborator (a Zapier-style catch hook that creates the calendar event and
// sends the confirmation email).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
)

// Client posts webhook payloads over HTTP. Implements ports.WebhookClient.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets a bearer token sent with each dispatch.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient injects a custom http.Client. Test hook and timeout control.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a webhook client for the given destination URL.
// An empty URL is allowed at construction time; Dispatch will fail with
// domain.ErrWebhookNotConfigured.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether a destination URL is set.
func (c *Client) IsConfigured() bool {
	return c.url != ""
}

// Dispatch posts the payload and returns the collaborator's response body.
// 200/201/202 are success; a non-JSON success body is tolerated and wrapped.
// Any other status is an error carrying the response body.
func (c *Client) Dispatch(ctx context.Context, payload domain.WebhookPayload) (map[string]any, error) {
	if c.url == "" {
		return nil, domain.ErrWebhookNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Info("dispatching webhook",
		"appointment_id", payload.AppointmentID,
		"title", payload.Title,
		"attendee", payload.AttendeeEmail,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	c.logger.Info("webhook response", "status", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return nil, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil || result == nil {
		// Some hooks answer 200 with plain text.
		result = map[string]any{"status": "accepted", "raw": string(respBody)}
	}
	return result, nil
}
