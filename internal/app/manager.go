package app

import (
	"context"
	"log/slog"
	"sync"

	"sitewatch/internal/catalog"
	"sitewatch/internal/clock"
	"sitewatch/internal/domain"
	"sitewatch/internal/engine"
	"sitewatch/internal/lifecycle"
	"sitewatch/internal/metrics"
	"sitewatch/internal/notify"
	"sitewatch/internal/notifyqueue"
	"sitewatch/internal/obs"
	"sitewatch/internal/store"
)

// Manager runs the reading-to-alert pipeline and owns the metrics cache.
// Params: catalog, factory, store, lifecycle controller, and notify path.
// Returns: the single processing entry point shared by all ingest transports.
type Manager struct {
	catalog    *catalog.Catalog
	factory    *engine.Factory
	alerts     *store.Store
	lifecycle  *lifecycle.Controller
	dispatcher *notify.Dispatcher
	queue      notifyqueue.Producer
	weights    metrics.Weights
	clock      clock.Clock
	logger     *slog.Logger

	mu       sync.RWMutex
	snapshot domain.MetricsSnapshot
}

// NewManager wires the processing pipeline over its collaborators.
// Params: catalog, factory, alert store, lifecycle controller, dispatcher,
// optional queue producer, weight table, clock, and logger.
// Returns: manager with the metrics cache subscribed to store changes.
func NewManager(
	cat *catalog.Catalog,
	factory *engine.Factory,
	alerts *store.Store,
	controller *lifecycle.Controller,
	dispatcher *notify.Dispatcher,
	queue notifyqueue.Producer,
	weights metrics.Weights,
	clk clock.Clock,
	logger *slog.Logger,
) *Manager {
	m := &Manager{
		catalog:    cat,
		factory:    factory,
		alerts:     alerts,
		lifecycle:  controller,
		dispatcher: dispatcher,
		queue:      queue,
		weights:    weights,
		clock:      clk,
		logger:     logger,
	}
	alerts.OnChange(m.recompute)
	m.recompute()
	return m
}

// Push classifies one reading and stores every resulting alert.
// Params: context and validated reading.
// Returns: created alerts (possibly empty) and store error.
// A reading for an unknown zone or with no matching rules produces no alerts
// and no error; that is routine traffic, not a fault.
func (m *Manager) Push(ctx context.Context, reading domain.Reading) ([]domain.Alert, error) {
	zone, rules, ok := m.catalog.MatchingRules(reading.ZoneID, reading.Metric)
	if !ok {
		obs.ReadingsRejected.WithLabelValues("pipeline", "unknown_zone").Inc()
		m.logger.Debug("reading for unknown zone dropped",
			"zone_id", reading.ZoneID,
			"source_id", reading.SourceID,
			"metric", reading.Metric)
		return nil, nil
	}

	var created []domain.Alert
	for _, rule := range rules {
		alert, ok := m.factory.Create(reading, rule, zone)
		if !ok {
			continue
		}
		if err := m.alerts.Append(alert); err != nil {
			return created, err
		}
		obs.AlertsCreated.WithLabelValues(string(alert.Severity)).Inc()
		m.logger.Info("alert created",
			"alert_id", alert.ID,
			"type", alert.Type,
			"severity", alert.Severity,
			"zone_id", alert.ZoneID,
			"source_id", alert.SourceID)
		created = append(created, alert)
		m.notifyAlert(ctx, alert)
	}
	return created, nil
}

// PushBatch classifies a batch of readings in input order.
// Params: context and validated readings.
// Returns: all created alerts and the first store error encountered.
func (m *Manager) PushBatch(ctx context.Context, readings []domain.Reading) ([]domain.Alert, error) {
	var created []domain.Alert
	for _, reading := range readings {
		alerts, err := m.Push(ctx, reading)
		created = append(created, alerts...)
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

// Acknowledge applies the acknowledge transition to one alert.
// Params: alert id and acting operator.
// Returns: resulting alert copy or store.ErrNotFound.
func (m *Manager) Acknowledge(id, actor string) (domain.Alert, error) {
	alert, err := m.lifecycle.Acknowledge(id, actor)
	if err == nil {
		obs.LifecycleTransitions.WithLabelValues("acknowledge").Inc()
	}
	return alert, err
}

// Resolve applies the resolve transition to one alert.
// Params: alert id and acting operator.
// Returns: resulting alert copy or store.ErrNotFound.
func (m *Manager) Resolve(id, actor string) (domain.Alert, error) {
	alert, err := m.lifecycle.Resolve(id, actor)
	if err == nil {
		obs.LifecycleTransitions.WithLabelValues("resolve").Inc()
	}
	return alert, err
}

// Alerts returns stored alert copies matching one filter.
// Params: filter predicate.
// Returns: append-order alert list.
func (m *Manager) Alerts(filter store.Filter) []domain.Alert {
	return m.alerts.List(filter)
}

// Alert returns one alert copy by id.
// Params: alert id.
// Returns: alert copy or store.ErrNotFound.
func (m *Manager) Alert(id string) (domain.Alert, error) {
	return m.alerts.Get(id)
}

// Summary returns the cached metrics snapshot.
// Params: none.
// Returns: snapshot from the last store change; never recomputed per request.
func (m *Manager) Summary() domain.MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// DeliverJob delivers one queued notification job.
// Params: context and dequeued job.
// Returns: dispatch error; used as the notify queue worker handler.
func (m *Manager) DeliverJob(ctx context.Context, job notifyqueue.Job) error {
	return m.dispatcher.Dispatch(ctx, job.Notification)
}

// notifyAlert routes one created alert through the notification path.
// Params: context and freshly stored alert.
// Returns: none; when the queue rejects the job delivery falls back to the
// inline path so an alert above the severity floor is never silently dropped.
func (m *Manager) notifyAlert(ctx context.Context, alert domain.Alert) {
	if m.dispatcher == nil || !m.dispatcher.ShouldNotify(alert) {
		return
	}
	notification := m.dispatcher.Build(alert)

	if m.queue != nil {
		job := notifyqueue.Job{
			ID:           notifyqueue.BuildJobID(notification),
			Notification: notification,
			CreatedAt:    m.clock.Now(),
		}
		err := m.queue.Enqueue(ctx, job)
		if err == nil {
			return
		}
		m.logger.Error("notify enqueue failed, delivering inline",
			"alert_id", alert.ID,
			"error", err)
	}
	_ = m.dispatcher.Dispatch(ctx, notification)
}

// recompute refreshes the metrics cache from the full alert collection.
// Params: none; registered as the store change listener.
// Returns: none.
func (m *Manager) recompute() {
	alerts := m.alerts.Snapshot()
	snapshot := metrics.Compute(alerts, m.weights, m.clock.Now())

	active := 0
	for _, alert := range alerts {
		if alert.Status == domain.StatusActive {
			active++
		}
	}
	obs.ActiveAlerts.Set(float64(active))
	obs.SiteScore.Set(snapshot.Score)

	m.mu.Lock()
	m.snapshot = snapshot
	m.mu.Unlock()
}
