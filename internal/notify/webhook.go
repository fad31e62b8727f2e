package notify

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

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/permanent"
)

// WebhookSender posts notifications as JSON to one HTTP endpoint.
// Params: endpoint settings, HTTP client, and retry policy.
// Returns: Sender implementation for the webhook channel.
type WebhookSender struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
	retry   config.NotifyRetry
	logger  *slog.Logger
}

// NewWebhookSender creates a webhook channel sender.
// Params: webhook notifier config section and logger.
// Returns: initialized sender.
func NewWebhookSender(cfg config.WebhookNotifier, logger *slog.Logger) *WebhookSender {
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}
	return &WebhookSender{
		url:     cfg.URL,
		method:  method,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		retry:   cfg.Retry,
		logger:  logger,
	}
}

// Name returns channel label used in logs and metrics.
// Params: none.
// Returns: "webhook".
func (s *WebhookSender) Name() string { return "webhook" }

// Send posts one notification payload to the endpoint.
// Params: context and notification payload.
// Returns: nil on 2xx response or retry-exhausted error. 4xx responses other
// than 408 and 429 are marked permanent since retrying the same payload
// cannot succeed.
func (s *WebhookSender) Send(ctx context.Context, notification domain.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return permanent.Mark(fmt.Errorf("encode notification: %w", err))
	}
	return sendWithRetry(ctx, s.retry, s.logger, s.Name(), func(ctx context.Context) error {
		return s.post(ctx, body)
	})
}

// post performs one HTTP delivery attempt.
// Params: context and encoded payload.
// Returns: nil on 2xx status or classified error.
func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, s.method, s.url, bytes.NewReader(body))
	if err != nil {
		return permanent.Mark(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = fmt.Errorf("webhook endpoint returned %s", resp.Status)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return permanent.Mark(err)
	}
	return err
}
