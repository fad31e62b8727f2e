package domain

import (
	"fmt"
	"strings"
)

// Severity ranks how far a reading exceeded its rule thresholds.
// Params: low/medium/high/critical tier constants.
// Returns: ordered tier used by classification and notification gating.
type Severity string

const (
	// SeverityLow marks a reading inside the outer warning sub-band.
	SeverityLow Severity = "low"
	// SeverityMedium marks a reading inside the inner warning sub-band.
	SeverityMedium Severity = "medium"
	// SeverityHigh marks a reading at or above the warning threshold.
	SeverityHigh Severity = "high"
	// SeverityCritical marks a reading at or above the critical threshold.
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns numeric tier position for comparisons.
// Params: none.
// Returns: 1..4 for known tiers, 0 for unknown values.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether severity reaches the given floor tier.
// Params: floor severity.
// Returns: true when receiver tier is equal or above floor.
func (s Severity) AtLeast(floor Severity) bool {
	return s.Rank() >= floor.Rank()
}

// MaxSeverity returns the higher of two tiers.
// Params: two severity values.
// Returns: tier with the greater rank.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseSeverity normalizes one severity token from config or query input.
// Params: raw severity string.
// Returns: severity constant or error for unknown tokens.
func ParseSeverity(raw string) (Severity, error) {
	value := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := severityRank[value]; !ok {
		return "", fmt.Errorf("unsupported severity %q", raw)
	}
	return value, nil
}

// Severities returns all tiers in ascending rank order.
// Params: none.
// Returns: deterministic tier list for validation and grouping.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}
