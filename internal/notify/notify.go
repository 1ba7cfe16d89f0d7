package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Provider delivers a notification to a single recipient.
type Provider interface {
	Send(ctx context.Context, message, recipient string) error
}

// Config selects the delivery mechanism. Kind is one of "log", "noop" or
// "webhook"; an http(s) URL is shorthand for a webhook.
type Config struct {
	Kind         string
	WebhookURL   string
	WebhookToken string
	Timeout      time.Duration
}

func New(cfg Config, log *slog.Logger) Provider {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case cfg.Kind == "" || cfg.Kind == "log":
		return logProvider{log: log}
	case cfg.Kind == "noop":
		return noopProvider{}
	case cfg.Kind == "webhook":
		if cfg.WebhookURL == "" {
			return logProvider{log: log}
		}
		return newWebhookProvider(cfg.WebhookURL, cfg.WebhookToken, cfg.Timeout)
	case strings.HasPrefix(cfg.Kind, "http://") || strings.HasPrefix(cfg.Kind, "https://"):
		return newWebhookProvider(cfg.Kind, cfg.WebhookToken, cfg.Timeout)
	}
	return logProvider{log: log}
}

type logProvider struct {
	log *slog.Logger
}

func (p logProvider) Send(ctx context.Context, message, recipient string) error {
	p.log.Info("notification sent",
		slog.String("recipient", recipient),
		slog.String("message", message),
	)
	return nil
}

type noopProvider struct{}

func (noopProvider) Send(ctx context.Context, message, recipient string) error {
	return nil
}

type webhookProvider struct {
	url    string
	token  string
	client *http.Client
}

func newWebhookProvider(url, token string, timeout time.Duration) webhookProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return webhookProvider{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (p webhookProvider) Send(ctx context.Context, message, recipient string) error {
	body, err := json.Marshal(map[string]string{
		"recipient": recipient,
		"message":   message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
