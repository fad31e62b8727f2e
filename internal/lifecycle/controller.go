package lifecycle

import (
	"sitewatch/internal/clock"
	"sitewatch/internal/domain"
	"sitewatch/internal/store"
)

// Controller applies acknowledge/resolve transitions with actor attribution.
// Params: alert store and clock.
// Returns: the only mutator of alert state after creation.
//
// State machine per alert:
//
//	active --acknowledge--> acknowledged --resolve--> resolved
//	active ------------------resolve----------------> resolved
//
// Transitions are idempotent to tolerate duplicate UI clicks and retried
// network calls; a redundant call never overwrites the original actor or
// timestamp. An unknown alert id is a distinct not-found failure.
type Controller struct {
	store *store.Store
	clock clock.Clock
}

// NewController creates lifecycle controller over one alert store.
// Params: alert store and clock implementation.
// Returns: initialized controller.
func NewController(alerts *store.Store, clk clock.Clock) *Controller {
	return &Controller{store: alerts, clock: clk}
}

// Acknowledge marks one active alert as claimed by an actor.
// Params: alert id and acting operator.
// Returns: resulting alert copy, or store.ErrNotFound for unknown id.
// No-op success when the alert is already acknowledged or resolved.
func (c *Controller) Acknowledge(id, actor string) (domain.Alert, error) {
	now := c.clock.Now()
	return c.store.Transition(id, func(alert *domain.Alert) bool {
		if alert.Status != domain.StatusActive {
			return false
		}
		alert.Status = domain.StatusAcknowledged
		alert.AcknowledgedBy = actor
		alert.AcknowledgedAt = &now
		return true
	})
}

// Resolve closes one alert from active or acknowledged state.
// Params: alert id and acting operator.
// Returns: resulting alert copy, or store.ErrNotFound for unknown id.
// Resolving directly from active skips the acknowledged state; resolving an
// already resolved alert is a no-op success.
func (c *Controller) Resolve(id, actor string) (domain.Alert, error) {
	now := c.clock.Now()
	return c.store.Transition(id, func(alert *domain.Alert) bool {
		if alert.Status == domain.StatusResolved {
			return false
		}
		alert.Status = domain.StatusResolved
		alert.ResolvedBy = actor
		alert.ResolvedAt = &now
		return true
	})
}
