package engine

import (
	"sitewatch/internal/catalog"
	"sitewatch/internal/domain"
)

// Warning sub-band multipliers. The graded bands below the warning line avoid
// binary alert/no-alert flapping for values hovering near the threshold.
const (
	mediumBandFactor = 0.8
	lowBandFactor    = 0.6
)

// Classify maps one reading value to a severity tier for one rule.
// Params: scalar reading value and threshold rule.
// Returns: severity and true on violation, or false when no alert must be created.
// Evaluation order always checks critical before warning. A warning threshold of
// zero collapses the sub-band arithmetic, so the explicit policy is: with
// warning <= 0 any positive value classifies as critical. Pure; never errors
// for any numeric input.
func Classify(value float64, rule catalog.Rule) (domain.Severity, bool) {
	if outOfBand(value, rule) {
		return domain.SeverityCritical, true
	}
	if value >= rule.Critical {
		return domain.SeverityCritical, true
	}
	if rule.Warning <= 0 {
		if value > 0 {
			return domain.SeverityCritical, true
		}
		return "", false
	}
	switch {
	case value >= rule.Warning:
		return domain.SeverityHigh, true
	case value >= rule.Warning*mediumBandFactor:
		return domain.SeverityMedium, true
	case value >= rule.Warning*lowBandFactor:
		return domain.SeverityLow, true
	default:
		return "", false
	}
}

// Confidence scores how close a value sits to the critical threshold.
// Params: scalar reading value and threshold rule.
// Returns: clamp(value/critical, 0.5, 1.0); 1.0 when critical is not positive.
// Reported independently of severity because report consumers read it on its own.
func Confidence(value float64, rule catalog.Rule) float64 {
	if rule.Critical <= 0 {
		return 1.0
	}
	ratio := value / rule.Critical
	switch {
	case ratio < 0.5:
		return 0.5
	case ratio > 1.0:
		return 1.0
	default:
		return ratio
	}
}

// outOfBand reports whether value escapes the optional min/max band.
// Params: scalar value and rule with optional band pointers.
// Returns: true when value is below min or above max.
func outOfBand(value float64, rule catalog.Rule) bool {
	if rule.Min != nil && value < *rule.Min {
		return true
	}
	if rule.Max != nil && value > *rule.Max {
		return true
	}
	return false
}
