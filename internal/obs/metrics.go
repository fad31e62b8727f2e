// Package obs exposes operational Prometheus metrics for the service.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsIngested counts accepted readings per transport.
	ReadingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_readings_ingested_total",
		Help: "Number of readings accepted for classification.",
	}, []string{"transport"})

	// ReadingsRejected counts readings dropped before classification.
	ReadingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_readings_rejected_total",
		Help: "Number of readings rejected by validation or routing.",
	}, []string{"transport", "reason"})

	// AlertsCreated counts stored alerts per severity tier.
	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_alerts_created_total",
		Help: "Number of alerts created by the classification pipeline.",
	}, []string{"severity"})

	// ActiveAlerts tracks alerts currently in active status.
	ActiveAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitewatch_active_alerts",
		Help: "Number of alerts in active status.",
	})

	// LifecycleTransitions counts acknowledge/resolve operations.
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_lifecycle_transitions_total",
		Help: "Number of applied alert lifecycle transitions.",
	}, []string{"transition"})

	// NotificationsSent counts successful notification deliveries per channel.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_notifications_sent_total",
		Help: "Number of notifications delivered.",
	}, []string{"channel"})

	// NotificationFailures counts exhausted or permanent delivery failures.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_notification_failures_total",
		Help: "Number of notifications that could not be delivered.",
	}, []string{"channel"})

	// SiteScore mirrors the composite score of the latest metrics snapshot.
	SiteScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitewatch_site_score",
		Help: "Composite 0..100 site score from the latest metrics snapshot.",
	})
)
