package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docflow/internal/middleware"
)

// WebhookMirror forwards team chat messages to an external webhook (e.g. a
// Slack-compatible endpoint). An empty URL disables the mirror.
type WebhookMirror struct {
	url    string
	client *http.Client
}

// NewWebhookMirror creates a mirror posting to the given URL.
func NewWebhookMirror(url string) *WebhookMirror {
	return &WebhookMirror{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Enabled reports whether a webhook URL is configured.
func (m *WebhookMirror) Enabled() bool {
	return m != nil && m.url != ""
}

// Post sends the message to the webhook. Failures are the caller's to log;
// they must never fail the originating request.
func (m *WebhookMirror) Post(ctx context.Context, username, text string) error {
	if !m.Enabled() {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"username": username,
		"text":     text,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// PostAsync fires the webhook in the background and records failures without
// surfacing them.
func (m *WebhookMirror) PostAsync(username, text string) {
	if !m.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Post(ctx, username, text); err != nil {
			middleware.SideChannelFailures.WithLabelValues("chat_webhook").Inc()
			middleware.Logger.Warn("chat webhook mirror failed", "error", err)
		}
	}()
}
