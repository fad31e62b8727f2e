package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sitewatch/internal/clock"
	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/obs"
	"sitewatch/internal/permanent"
)

// Sender delivers one notification over a single channel.
// Params: context for cancellation and the notification payload.
// Returns: nil on delivery; permanent-marked errors stop retrying.
type Sender interface {
	Name() string
	Send(ctx context.Context, notification domain.Notification) error
}

// Dispatcher fans one alert out to all configured channels.
// Params: severity gate, recipient list, and channel senders.
// Returns: best-effort delivery; a channel failure never blocks the pipeline
// or another channel.
type Dispatcher struct {
	minSeverity    domain.Severity
	recipients     []string
	deliveryMethod string
	senders        []Sender
	clock          clock.Clock
	logger         *slog.Logger
}

// NewDispatcher builds dispatcher from notify configuration.
// Params: notify config section, channel senders, clock, and logger.
// Returns: initialized dispatcher or severity parse error.
func NewDispatcher(cfg config.NotifyConfig, senders []Sender, clk clock.Clock, logger *slog.Logger) (*Dispatcher, error) {
	minSeverity, err := domain.ParseSeverity(cfg.MinSeverity)
	if err != nil {
		return nil, fmt.Errorf("notify min severity: %w", err)
	}
	return &Dispatcher{
		minSeverity:    minSeverity,
		recipients:     append([]string(nil), cfg.Recipients...),
		deliveryMethod: cfg.DeliveryMethod,
		senders:        senders,
		clock:          clk,
		logger:         logger,
	}, nil
}

// ShouldNotify reports whether one alert passes the severity gate.
// Params: candidate alert.
// Returns: true when alert severity is at or above the configured floor.
func (d *Dispatcher) ShouldNotify(alert domain.Alert) bool {
	return alert.Severity.AtLeast(d.minSeverity)
}

// Build assembles the notification payload for one alert.
// Params: stored alert.
// Returns: channel-agnostic notification with rendered message text.
func (d *Dispatcher) Build(alert domain.Alert) domain.Notification {
	return domain.Notification{
		AlertID:        alert.ID,
		Severity:       alert.Severity,
		ZoneID:         alert.ZoneID,
		Location:       alert.Location,
		Recipients:     append([]string(nil), d.recipients...),
		Message:        FormatMessage(alert),
		DeliveryMethod: d.deliveryMethod,
		Timestamp:      d.clock.Now(),
	}
}

// Dispatch delivers one notification through every configured sender.
// Params: context and assembled notification.
// Returns: joined per-channel errors; one failed channel never blocks another.
func (d *Dispatcher) Dispatch(ctx context.Context, notification domain.Notification) error {
	var errs []error
	for _, sender := range d.senders {
		if err := sender.Send(ctx, notification); err != nil {
			obs.NotificationFailures.WithLabelValues(sender.Name()).Inc()
			d.logger.Error("notification delivery failed",
				"channel", sender.Name(),
				"alert_id", notification.AlertID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sender.Name(), err))
			continue
		}
		obs.NotificationsSent.WithLabelValues(sender.Name()).Inc()
		d.logger.Info("notification delivered",
			"channel", sender.Name(),
			"alert_id", notification.AlertID,
			"severity", notification.Severity)
	}
	return errors.Join(errs...)
}

// FormatMessage renders plain-text message for one alert.
// Params: stored alert.
// Returns: one-line message with severity tag and location context.
func FormatMessage(alert domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Description)
	if alert.Location != "" {
		fmt.Fprintf(&b, " @ %s", alert.Location)
	}
	fmt.Fprintf(&b, " (source: %s)", alert.SourceID)
	return b.String()
}

// sendWithRetry retries one delivery according to the channel retry policy.
// Params: context, retry policy, logger, channel label, and send callback.
// Returns: nil on success, last error after exhausted attempts, or immediately
// on permanent-marked errors and context cancellation.
func sendWithRetry(ctx context.Context, retry config.NotifyRetry, logger *slog.Logger, channel string, send func(context.Context) error) error {
	if !retry.Enabled {
		return send(ctx)
	}

	delay := time.Duration(retry.InitialMS) * time.Millisecond
	maxDelay := time.Duration(retry.MaxMS) * time.Millisecond
	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		lastErr = send(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent.Is(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == retry.MaxAttempts {
			break
		}

		if retry.LogEachAttempt {
			logger.Warn("notification attempt failed",
				"channel", channel,
				"attempt", attempt,
				"next_delay", delay,
				"error", lastErr)
		}

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if retry.Backoff == "exponential" {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}
	return fmt.Errorf("delivery failed after %d attempts: %w", retry.MaxAttempts, lastErr)
}
