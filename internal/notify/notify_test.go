package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sitewatch/internal/clock"
	"sitewatch/internal/config"
	"sitewatch/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRetry() config.NotifyRetry {
	return config.NotifyRetry{
		Enabled:     true,
		Backoff:     "exponential",
		InitialMS:   1,
		MaxMS:       4,
		MaxAttempts: 3,
	}
}

// stubSender records deliveries and fails on demand.
type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(context.Context, domain.Notification) error {
	s.calls++
	return s.err
}

func TestDispatcherSeverityGate(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	dispatcher, err := NewDispatcher(config.NotifyConfig{
		MinSeverity:    "high",
		Recipients:     []string{"ops@example.com"},
		DeliveryMethod: "webhook",
	}, nil, clk, discardLogger())
	if err != nil {
		t.Fatalf("dispatcher setup failed: %v", err)
	}

	if dispatcher.ShouldNotify(domain.Alert{Severity: domain.SeverityMedium}) {
		t.Fatal("medium must not pass a high floor")
	}
	if !dispatcher.ShouldNotify(domain.Alert{Severity: domain.SeverityHigh}) {
		t.Fatal("high must pass a high floor")
	}
	if !dispatcher.ShouldNotify(domain.Alert{Severity: domain.SeverityCritical}) {
		t.Fatal("critical must pass a high floor")
	}
}

func TestDispatcherBuildsNotification(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	dispatcher, err := NewDispatcher(config.NotifyConfig{
		MinSeverity:    "high",
		Recipients:     []string{"ops@example.com", "safety@example.com"},
		DeliveryMethod: "webhook",
	}, nil, clk, discardLogger())
	if err != nil {
		t.Fatalf("dispatcher setup failed: %v", err)
	}

	alert := domain.Alert{
		ID:          "a1",
		Severity:    domain.SeverityCritical,
		ZoneID:      "dock",
		Location:    "Loading Dock",
		SourceID:    "mic-7",
		Description: "noise_level threshold exceeded: 42dB (critical: 30dB)",
	}
	notification := dispatcher.Build(alert)

	if notification.AlertID != "a1" || notification.Severity != domain.SeverityCritical {
		t.Fatalf("identity fields wrong: %+v", notification)
	}
	if len(notification.Recipients) != 2 || notification.DeliveryMethod != "webhook" {
		t.Fatalf("routing fields wrong: %+v", notification)
	}
	if !notification.Timestamp.Equal(clk.Current) {
		t.Fatalf("timestamp must come from the clock: %v", notification.Timestamp)
	}
	want := "[CRITICAL] noise_level threshold exceeded: 42dB (critical: 30dB) @ Loading Dock (source: mic-7)"
	if notification.Message != want {
		t.Fatalf("message = %q, want %q", notification.Message, want)
	}
}

func TestDispatchContinuesPastFailedChannel(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	failing := &stubSender{name: "telegram", err: errors.New("api down")}
	working := &stubSender{name: "webhook"}
	dispatcher, err := NewDispatcher(config.NotifyConfig{MinSeverity: "high"},
		[]Sender{failing, working}, clk, discardLogger())
	if err != nil {
		t.Fatalf("dispatcher setup failed: %v", err)
	}

	dispatchErr := dispatcher.Dispatch(context.Background(), domain.Notification{AlertID: "a1"})
	if dispatchErr == nil {
		t.Fatal("expected joined error from failed channel")
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Fatalf("every channel must be attempted: telegram=%d webhook=%d", failing.calls, working.calls)
	}
}

func TestWebhookSenderRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			writer.WriteHeader(http.StatusBadGateway)
			return
		}
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.WebhookNotifier{
		Enabled:    true,
		URL:        server.URL,
		TimeoutSec: 2,
		Retry:      testRetry(),
	}, discardLogger())

	err := sender.Send(context.Background(), domain.Notification{AlertID: "a1", Message: "m"})
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestWebhookSenderStopsOnPermanentFailure(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writer.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.WebhookNotifier{
		Enabled:    true,
		URL:        server.URL,
		TimeoutSec: 2,
		Retry:      testRetry(),
	}, discardLogger())

	err := sender.Send(context.Background(), domain.Notification{AlertID: "a1"})
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	if hits.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", hits.Load())
	}
}

func TestWebhookSenderExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writer.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.WebhookNotifier{
		Enabled:    true,
		URL:        server.URL,
		TimeoutSec: 2,
		Retry:      testRetry(),
	}, discardLogger())

	err := sender.Send(context.Background(), domain.Notification{AlertID: "a1"})
	if err == nil {
		t.Fatal("expected exhausted-attempts error")
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestSendWithRetryDisabledSendsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := sendWithRetry(context.Background(), config.NotifyRetry{}, discardLogger(), "test", func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 1 {
		t.Fatalf("disabled retry must send exactly once: calls=%d err=%v", calls, err)
	}
}
