package domain

import "time"

// Notification contains one outbound alert payload for the notifier layer.
// Params: alert identity, severity, recipients, rendered message, and delivery method.
// Returns: request consumed by notify channels; delivery status never feeds back.
type Notification struct {
	AlertID        string    `json:"alert_id"`
	Severity       Severity  `json:"severity"`
	ZoneID         string    `json:"zone_id"`
	Location       string    `json:"location,omitempty"`
	Recipients     []string  `json:"recipients"`
	Message        string    `json:"message"`
	DeliveryMethod string    `json:"delivery_method"`
	Timestamp      time.Time `json:"timestamp"`
}
