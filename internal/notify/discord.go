package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Discord posts messages to a Discord webhook.
type Discord struct {
	webhookURL string
	httpClient *http.Client
}

var _ Notifier = (*Discord)(nil)

// NewDiscord creates a Discord notifier for the given webhook URL.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the message as webhook content, prefixed with the event name.
func (d *Discord) Notify(ctx context.Context, event Event, message string) error {
	payload, err := json.Marshal(map[string]string{
		"content": fmt.Sprintf("**%s** %s", event, message),
	})
	if err != nil {
		return fmt.Errorf("notify/discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify/discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify/discord: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify/discord: webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
