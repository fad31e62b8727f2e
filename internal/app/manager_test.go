package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"sitewatch/internal/catalog"
	"sitewatch/internal/clock"
	"sitewatch/internal/domain"
	"sitewatch/internal/engine"
	"sitewatch/internal/lifecycle"
	"sitewatch/internal/metrics"
	"sitewatch/internal/store"
)

func newTestManager(t *testing.T, clk clock.Clock) *Manager {
	t.Helper()

	cat := catalog.New()
	err := cat.Seed([]catalog.Zone{
		{
			ID: "dock", Name: "Loading Dock", Active: true,
			Rules: []catalog.Rule{
				{ID: "nz", Metric: "noise_level", Warning: 25, Critical: 30, Enabled: true},
				{ID: "nz-strict", Metric: "noise_level", Warning: 20, Critical: 28, Enabled: true},
				{ID: "aq", Metric: "air_quality", Warning: 50, Critical: 100, Enabled: false},
			},
		},
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	factory, err := engine.NewFactory(nil, clk)
	if err != nil {
		t.Fatalf("factory setup: %v", err)
	}
	next := 0
	factory.SetIDFunc(func() string {
		next++
		return fmt.Sprintf("alert-%d", next)
	})

	alerts := store.New()
	controller := lifecycle.NewController(alerts, clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(cat, factory, alerts, controller, nil, nil, metrics.DefaultWeights(), clk, logger)
}

func reading(zone, metric string, value float64, at time.Time) domain.Reading {
	return domain.Reading{
		SourceID: "sensor-1",
		ZoneID:   zone,
		Metric:   metric,
		Value:    value,
		DT:       at.UnixMilli(),
	}
}

func TestPushCreatesAlertsPerMatchingRule(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clk)

	// 29 violates both noise rules: high for 25/30, critical for 20/28.
	created, err := manager.Push(context.Background(), reading("dock", "noise_level", 29, clk.Current))
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected one alert per matching rule, got %+v", created)
	}
	if created[0].Severity != domain.SeverityHigh || created[1].Severity != domain.SeverityCritical {
		t.Fatalf("unexpected severities: %q %q", created[0].Severity, created[1].Severity)
	}

	stored := manager.Alerts(store.Filter{})
	if len(stored) != 2 {
		t.Fatalf("created alerts must be stored, got %d", len(stored))
	}
}

func TestPushRoutineNonViolations(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clk)
	ctx := context.Background()

	// Unknown zone, unmatched metric, disabled rule, and a calm value are all
	// routine traffic: no alerts and no error.
	cases := []domain.Reading{
		reading("warehouse", "noise_level", 99, clk.Current),
		reading("dock", "humidity", 99, clk.Current),
		reading("dock", "air_quality", 500, clk.Current),
		reading("dock", "noise_level", 5, clk.Current),
	}
	for i, r := range cases {
		created, err := manager.Push(ctx, r)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if len(created) != 0 {
			t.Fatalf("case %d: expected no alerts, got %+v", i, created)
		}
	}
	if got := len(manager.Alerts(store.Filter{})); got != 0 {
		t.Fatalf("store must stay empty, got %d", got)
	}
}

func TestPushBatchKeepsInputOrder(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clk)

	created, err := manager.PushBatch(context.Background(), []domain.Reading{
		reading("dock", "noise_level", 40, clk.Current),
		reading("dock", "humidity", 1, clk.Current),
		reading("dock", "noise_level", 26, clk.Current),
	})
	if err != nil {
		t.Fatalf("batch push failed: %v", err)
	}
	// First reading violates both rules, third violates 25/30 (high) and
	// 20/28 (high band of the strict rule).
	if len(created) != 4 {
		t.Fatalf("expected 4 alerts, got %+v", created)
	}
	if created[0].ID != "alert-1" || created[3].ID != "alert-4" {
		t.Fatalf("alerts must keep input order: %+v", created)
	}
}

func TestSummaryTracksLifecycle(t *testing.T) {
	t.Parallel()

	clk := &clock.FakeClock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clk)
	ctx := context.Background()

	created, err := manager.Push(ctx, reading("dock", "noise_level", 29, clk.Current))
	if err != nil || len(created) != 2 {
		t.Fatalf("push failed: %v %+v", err, created)
	}

	summary := manager.Summary()
	if summary.Total != 2 || summary.ResolutionRate != 0 {
		t.Fatalf("unexpected initial summary: %+v", summary)
	}
	// 100 - (10 high + 20 critical).
	if math.Abs(summary.Score-70) > 1e-9 {
		t.Fatalf("expected score 70, got %v", summary.Score)
	}

	clk.Advance(10 * time.Minute)
	if _, err := manager.Acknowledge(created[0].ID, "operator-7"); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	summary = manager.Summary()
	if math.Abs(summary.AvgAckMinutes-10) > 1e-9 {
		t.Fatalf("expected avg ack 10 minutes, got %v", summary.AvgAckMinutes)
	}

	if _, err := manager.Resolve(created[0].ID, "operator-7"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	summary = manager.Summary()
	if math.Abs(summary.ResolutionRate-50) > 1e-9 {
		t.Fatalf("expected resolution rate 50, got %v", summary.ResolutionRate)
	}

	if _, err := manager.Acknowledge("missing", "op"); err == nil {
		t.Fatal("unknown alert must fail transitions")
	}
}
