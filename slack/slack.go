// Package slack posts operator alerts to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"liftbot"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// Alerter sends every alert to one channel.
type Alerter struct {
	client  liftbot.SlackClient
	channel string
}

func NewAlerter(client liftbot.SlackClient, channel string) *Alerter {
	return &Alerter{client: client, channel: channel}
}

func (a *Alerter) Alert(ctx context.Context, message string) error {
	if err := a.client.PostMessage(ctx, a.channel, message); err != nil {
		return fmt.Errorf("slack alert to %s: %w", a.channel, err)
	}
	return nil
}

// LogAlerter is used when no webhook is configured.
type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, message string) error {
	slog.WarnContext(ctx, "ALERT: "+message)
	return nil
}
