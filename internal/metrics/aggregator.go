package metrics

import (
	"time"

	"sitewatch/internal/domain"
)

// trendWindow is the width of each of the two trend comparison buckets.
const trendWindow = 7 * 24 * time.Hour

// Weights maps severity tier to composite score penalty per alert.
// Params: per-tier penalty points.
// Returns: tuning table; exact constants are a per-domain choice, not a
// correctness requirement, so profiles configure them.
type Weights map[domain.Severity]float64

// DefaultWeights returns the baseline penalty table.
// Params: none.
// Returns: weight map with critical heaviest and low lightest.
func DefaultWeights() Weights {
	return Weights{
		domain.SeverityCritical: 20,
		domain.SeverityHigh:     10,
		domain.SeverityMedium:   5,
		domain.SeverityLow:      2,
	}
}

// Compute folds the full alert collection into one metrics snapshot.
// Params: alert collection copy, severity weight table, and current time.
// Returns: fully recomputed snapshot. Pure function: no hidden state, no
// cumulative drift, and well-defined defaults for empty input (0 rates and a
// stable trend, never NaN).
func Compute(alerts []domain.Alert, weights Weights, now time.Time) domain.MetricsSnapshot {
	if weights == nil {
		weights = DefaultWeights()
	}

	snapshot := domain.MetricsSnapshot{
		Total:      len(alerts),
		ByType:     make(map[string]int),
		BySeverity: make(map[domain.Severity]int),
		ByLocation: make(map[string]int),
		Score:      100,
		Trend:      domain.TrendStable,
		ComputedAt: now,
	}

	resolved := 0
	ackCount := 0
	ackLatencySum := time.Duration(0)
	penalty := 0.0
	recentCount := 0
	previousCount := 0
	recentCutoff := now.Add(-trendWindow)
	previousCutoff := now.Add(-2 * trendWindow)

	for _, alert := range alerts {
		snapshot.ByType[alert.Type]++
		snapshot.BySeverity[alert.Severity]++
		snapshot.ByLocation[alert.Location]++

		if alert.Resolved() {
			resolved++
		}
		if alert.AcknowledgedAt != nil {
			ackCount++
			latency := alert.AcknowledgedAt.Sub(alert.CreatedAt)
			if latency > 0 {
				ackLatencySum += latency
			}
		}
		penalty += weights[alert.Severity]

		switch {
		case !alert.CreatedAt.Before(recentCutoff):
			recentCount++
		case !alert.CreatedAt.Before(previousCutoff):
			previousCount++
		}
	}

	if ackCount > 0 {
		snapshot.AvgAckMinutes = ackLatencySum.Minutes() / float64(ackCount)
	}
	if snapshot.Total > 0 {
		snapshot.ResolutionRate = float64(resolved) / float64(snapshot.Total) * 100
	}

	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	snapshot.Score = score

	snapshot.Trend = classifyTrend(recentCount, previousCount)
	return snapshot
}

// classifyTrend compares trailing window against the preceding one.
// Params: alert counts in the two 7-day buckets.
// Returns: improving/stable/declining tag. A two-bucket comparison, not a
// statistical trend test.
func classifyTrend(recent, previous int) domain.Trend {
	switch {
	case recent < previous:
		return domain.TrendImproving
	case recent > previous:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}
