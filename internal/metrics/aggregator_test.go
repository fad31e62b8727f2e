package metrics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"sitewatch/internal/domain"
)

func TestComputeEmptyCollection(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	snapshot := Compute(nil, nil, now)

	if snapshot.Total != 0 {
		t.Fatalf("expected zero total, got %d", snapshot.Total)
	}
	if snapshot.AvgAckMinutes != 0 || snapshot.ResolutionRate != 0 {
		t.Fatalf("empty collection must report zero rates, got %+v", snapshot)
	}
	if math.IsNaN(snapshot.AvgAckMinutes) || math.IsNaN(snapshot.ResolutionRate) {
		t.Fatal("rates must never be NaN")
	}
	if snapshot.Score != 100 {
		t.Fatalf("empty collection must score 100, got %v", snapshot.Score)
	}
	if snapshot.Trend != domain.TrendStable {
		t.Fatalf("empty collection must trend stable, got %q", snapshot.Trend)
	}
}

func TestComputeGroupByAndRates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ack := now.Add(-50 * time.Minute)
	alerts := []domain.Alert{
		{ID: "a1", Type: "noise_level", Severity: domain.SeverityHigh, Location: "Dock", Status: domain.StatusResolved, CreatedAt: now.Add(-time.Hour), AcknowledgedAt: &ack},
		{ID: "a2", Type: "noise_level", Severity: domain.SeverityLow, Location: "Dock", Status: domain.StatusResolved, CreatedAt: now.Add(-time.Hour)},
		{ID: "a3", Type: "air_quality", Severity: domain.SeverityCritical, Location: "Lab", Status: domain.StatusActive, CreatedAt: now.Add(-time.Hour)},
		{ID: "a4", Type: "air_quality", Severity: domain.SeverityMedium, Location: "Lab", Status: domain.StatusActive, CreatedAt: now.Add(-time.Hour)},
		{ID: "a5", Type: "ppe_detection", Severity: domain.SeverityHigh, Location: "Gate", Status: domain.StatusAcknowledged, CreatedAt: now.Add(-time.Hour)},
	}

	snapshot := Compute(alerts, DefaultWeights(), now)

	if snapshot.Total != 5 {
		t.Fatalf("expected total 5, got %d", snapshot.Total)
	}
	if snapshot.ByType["noise_level"] != 2 || snapshot.ByType["air_quality"] != 2 || snapshot.ByType["ppe_detection"] != 1 {
		t.Fatalf("type grouping wrong: %+v", snapshot.ByType)
	}
	if snapshot.BySeverity[domain.SeverityHigh] != 2 || snapshot.BySeverity[domain.SeverityCritical] != 1 {
		t.Fatalf("severity grouping wrong: %+v", snapshot.BySeverity)
	}
	if snapshot.ByLocation["Dock"] != 2 || snapshot.ByLocation["Lab"] != 2 || snapshot.ByLocation["Gate"] != 1 {
		t.Fatalf("location grouping wrong: %+v", snapshot.ByLocation)
	}

	// 2 resolved of 5 total.
	if math.Abs(snapshot.ResolutionRate-40) > 1e-9 {
		t.Fatalf("expected resolution rate 40, got %v", snapshot.ResolutionRate)
	}
	// One acknowledged alert with a 10 minute latency.
	if math.Abs(snapshot.AvgAckMinutes-10) > 1e-9 {
		t.Fatalf("expected avg ack 10 minutes, got %v", snapshot.AvgAckMinutes)
	}
	// 100 - (20 + 10 + 10 + 5 + 2).
	if math.Abs(snapshot.Score-53) > 1e-9 {
		t.Fatalf("expected score 53, got %v", snapshot.Score)
	}
}

func TestComputeScoreClampsAtZero(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	alerts := make([]domain.Alert, 0, 8)
	for i := 0; i < 8; i++ {
		alerts = append(alerts, domain.Alert{
			ID: string(rune('a' + i)), Type: "x", Severity: domain.SeverityCritical,
			Status: domain.StatusActive, CreatedAt: now.Add(-time.Hour),
		})
	}
	snapshot := Compute(alerts, DefaultWeights(), now)
	if snapshot.Score != 0 {
		t.Fatalf("score must clamp at 0, got %v", snapshot.Score)
	}
}

func TestComputeTrendBuckets(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * 24 * time.Hour)
	previous := now.Add(-10 * 24 * time.Hour)
	ancient := now.Add(-30 * 24 * time.Hour)

	declining := []domain.Alert{
		{ID: "a1", CreatedAt: recent, Status: domain.StatusActive},
		{ID: "a2", CreatedAt: recent, Status: domain.StatusActive},
		{ID: "a3", CreatedAt: previous, Status: domain.StatusActive},
	}
	if got := Compute(declining, nil, now).Trend; got != domain.TrendDeclining {
		t.Fatalf("more recent than previous must decline, got %q", got)
	}

	improving := []domain.Alert{
		{ID: "a1", CreatedAt: recent, Status: domain.StatusActive},
		{ID: "a2", CreatedAt: previous, Status: domain.StatusActive},
		{ID: "a3", CreatedAt: previous, Status: domain.StatusActive},
	}
	if got := Compute(improving, nil, now).Trend; got != domain.TrendImproving {
		t.Fatalf("fewer recent than previous must improve, got %q", got)
	}

	// Alerts older than both buckets never influence the trend.
	stable := []domain.Alert{
		{ID: "a1", CreatedAt: recent, Status: domain.StatusActive},
		{ID: "a2", CreatedAt: previous, Status: domain.StatusActive},
		{ID: "a3", CreatedAt: ancient, Status: domain.StatusActive},
		{ID: "a4", CreatedAt: ancient, Status: domain.StatusActive},
	}
	if got := Compute(stable, nil, now).Trend; got != domain.TrendStable {
		t.Fatalf("equal buckets must be stable, got %q", got)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ack := now.Add(-30 * time.Minute)
	alerts := []domain.Alert{
		{ID: "a1", Type: "noise_level", Severity: domain.SeverityHigh, Location: "Dock", Status: domain.StatusAcknowledged, CreatedAt: now.Add(-time.Hour), AcknowledgedAt: &ack},
		{ID: "a2", Type: "air_quality", Severity: domain.SeverityLow, Location: "Lab", Status: domain.StatusActive, CreatedAt: now.Add(-8 * 24 * time.Hour)},
	}

	first := Compute(alerts, DefaultWeights(), now)
	second := Compute(alerts, DefaultWeights(), now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("full recomputation must be deterministic:\n%+v\n%+v", first, second)
	}
}
