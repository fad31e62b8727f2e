package domain

import "time"

// AlertStatus is runtime alert lifecycle state.
// Params: active/acknowledged/resolved state constants.
// Returns: forward-only lifecycle position of one alert.
type AlertStatus string

const (
	// StatusActive indicates a fresh unhandled alert.
	StatusActive AlertStatus = "active"
	// StatusAcknowledged indicates an operator has claimed the alert.
	StatusAcknowledged AlertStatus = "acknowledged"
	// StatusResolved indicates the alert was closed; terminal state.
	StatusResolved AlertStatus = "resolved"
)

// ParseStatus normalizes one status token from query input.
// Params: raw status string.
// Returns: status constant, or empty string for unknown tokens.
func ParseStatus(raw string) AlertStatus {
	switch AlertStatus(raw) {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return AlertStatus(raw)
	default:
		return ""
	}
}

// Alert stores one persisted rule violation with its lifecycle fields.
// Params: identity, classification, context labels, and actor/timestamp pairs.
// Returns: record owned exclusively by the alert store.
type Alert struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Severity       Severity    `json:"severity"`
	Confidence     float64     `json:"confidence"`
	SourceID       string      `json:"source_id"`
	ZoneID         string      `json:"zone_id"`
	Location       string      `json:"location"`
	Description    string      `json:"description"`
	Status         AlertStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedBy     string      `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
	MediaRefs      []string    `json:"media_refs,omitempty"`
}

// Acknowledged reports whether the alert carries an acknowledge timestamp.
// Params: none.
// Returns: true when acknowledged_at is set.
func (a Alert) Acknowledged() bool {
	return a.AcknowledgedAt != nil
}

// Resolved reports whether the alert reached its terminal state.
// Params: none.
// Returns: true when status is resolved.
func (a Alert) Resolved() bool {
	return a.Status == StatusResolved
}

// Clone returns a detached copy safe to hand outside the store.
// Params: none.
// Returns: deep copy with duplicated pointer/slice fields.
func (a Alert) Clone() Alert {
	out := a
	if a.AcknowledgedAt != nil {
		at := *a.AcknowledgedAt
		out.AcknowledgedAt = &at
	}
	if a.ResolvedAt != nil {
		at := *a.ResolvedAt
		out.ResolvedAt = &at
	}
	if len(a.MediaRefs) > 0 {
		out.MediaRefs = append([]string(nil), a.MediaRefs...)
	}
	return out
}
