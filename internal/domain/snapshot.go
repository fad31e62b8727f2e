package domain

import "time"

// Trend is coarse two-window alert volume comparison.
// Params: improving/stable/declining constants.
// Returns: direction tag for the metrics snapshot.
type Trend string

const (
	// TrendImproving indicates fewer alerts in the trailing window than before it.
	TrendImproving Trend = "improving"
	// TrendStable indicates equal alert volume across both windows.
	TrendStable Trend = "stable"
	// TrendDeclining indicates more alerts in the trailing window than before it.
	TrendDeclining Trend = "declining"
)

// MetricsSnapshot is a derived aggregate view over the full alert collection.
// Params: grouped counts, latency/rate figures, composite score, and trend tag.
// Returns: disposable value object, always fully recomputed and never patched.
type MetricsSnapshot struct {
	Total          int              `json:"total"`
	ByType         map[string]int   `json:"by_type"`
	BySeverity     map[Severity]int `json:"by_severity"`
	ByLocation     map[string]int   `json:"by_location"`
	AvgAckMinutes  float64          `json:"avg_ack_minutes"`
	ResolutionRate float64          `json:"resolution_rate"`
	Score          float64          `json:"score"`
	Trend          Trend            `json:"trend"`
	ComputedAt     time.Time        `json:"computed_at"`
}
