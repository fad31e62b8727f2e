package lifecycle

import (
	"errors"
	"testing"
	"time"

	"sitewatch/internal/clock"
	"sitewatch/internal/domain"
	"sitewatch/internal/store"
)

func seedAlert(t *testing.T, alerts *store.Store, id string) {
	t.Helper()
	err := alerts.Append(domain.Alert{
		ID:        id,
		Type:      "noise_level",
		Severity:  domain.SeverityHigh,
		Status:    domain.StatusActive,
		CreatedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed alert failed: %v", err)
	}
}

func TestAcknowledgeSetsActorAndTimestamp(t *testing.T) {
	t.Parallel()

	alerts := store.New()
	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC)}
	controller := NewController(alerts, clk)
	seedAlert(t, alerts, "a1")

	alert, err := controller.Acknowledge("a1", "operator-7")
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if alert.Status != domain.StatusAcknowledged || alert.AcknowledgedBy != "operator-7" {
		t.Fatalf("unexpected transition result: %+v", alert)
	}
	if alert.AcknowledgedAt == nil || !alert.AcknowledgedAt.Equal(clk.Current) {
		t.Fatalf("acknowledged_at must come from the clock: %+v", alert.AcknowledgedAt)
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	t.Parallel()

	alerts := store.New()
	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC)}
	controller := NewController(alerts, clk)
	seedAlert(t, alerts, "a1")

	first, err := controller.Acknowledge("a1", "operator-7")
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	clk.Advance(5 * time.Minute)

	second, err := controller.Acknowledge("a1", "operator-9")
	if err != nil {
		t.Fatalf("redundant acknowledge must succeed: %v", err)
	}
	if second.AcknowledgedBy != first.AcknowledgedBy || !second.AcknowledgedAt.Equal(*first.AcknowledgedAt) {
		t.Fatalf("redundant acknowledge must keep original actor/timestamp: %+v", second)
	}
}

func TestResolveDirectlyFromActive(t *testing.T) {
	t.Parallel()

	alerts := store.New()
	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC)}
	controller := NewController(alerts, clk)
	seedAlert(t, alerts, "a1")

	alert, err := controller.Resolve("a1", "operator-7")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if alert.Status != domain.StatusResolved || alert.ResolvedBy != "operator-7" {
		t.Fatalf("unexpected transition result: %+v", alert)
	}
	if alert.AcknowledgedAt != nil {
		t.Fatalf("direct resolve must not fabricate acknowledgement: %+v", alert)
	}
}

func TestResolveAfterAcknowledge(t *testing.T) {
	t.Parallel()

	alerts := store.New()
	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC)}
	controller := NewController(alerts, clk)
	seedAlert(t, alerts, "a1")

	if _, err := controller.Acknowledge("a1", "operator-7"); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	clk.Advance(10 * time.Minute)

	alert, err := controller.Resolve("a1", "operator-8")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if alert.Status != domain.StatusResolved || alert.ResolvedBy != "operator-8" {
		t.Fatalf("unexpected transition result: %+v", alert)
	}
	if alert.AcknowledgedBy != "operator-7" {
		t.Fatalf("resolve must preserve acknowledgement fields: %+v", alert)
	}

	clk.Advance(time.Minute)
	repeat, err := controller.Resolve("a1", "operator-9")
	if err != nil {
		t.Fatalf("redundant resolve must succeed: %v", err)
	}
	if repeat.ResolvedBy != "operator-8" || !repeat.ResolvedAt.Equal(*alert.ResolvedAt) {
		t.Fatalf("redundant resolve must keep original actor/timestamp: %+v", repeat)
	}
}

func TestResolvedAlertCannotBeAcknowledged(t *testing.T) {
	t.Parallel()

	alerts := store.New()
	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC)}
	controller := NewController(alerts, clk)
	seedAlert(t, alerts, "a1")

	if _, err := controller.Resolve("a1", "operator-7"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	alert, err := controller.Acknowledge("a1", "operator-9")
	if err != nil {
		t.Fatalf("acknowledge on resolved alert must be a no-op success: %v", err)
	}
	if alert.Status != domain.StatusResolved || alert.AcknowledgedAt != nil {
		t.Fatalf("resolved is terminal, got %+v", alert)
	}
}

func TestTransitionsOnUnknownAlert(t *testing.T) {
	t.Parallel()

	alerts := store.New()
	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC)}
	controller := NewController(alerts, clk)

	if _, err := controller.Acknowledge("missing", "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from acknowledge, got %v", err)
	}
	if _, err := controller.Resolve("missing", "op"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from resolve, got %v", err)
	}
}
