package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"sitewatch/internal/domain"
)

// ErrNotFound indicates absent alert id.
var ErrNotFound = errors.New("not found")

// Filter selects alerts for one query projection.
// Params: optional type/severity/status/zone/source selectors and inclusive time range.
// Returns: predicate applied by List; zero fields match everything.
type Filter struct {
	Type     string
	Severity domain.Severity
	Status   domain.AlertStatus
	ZoneID   string
	SourceID string
	From     time.Time
	To       time.Time
}

// matches applies all set selectors to one alert.
// Params: candidate alert.
// Returns: true when every set field matches.
func (f Filter) matches(alert domain.Alert) bool {
	if f.Type != "" && alert.Type != f.Type {
		return false
	}
	if f.Severity != "" && alert.Severity != f.Severity {
		return false
	}
	if f.Status != "" && alert.Status != f.Status {
		return false
	}
	if f.ZoneID != "" && alert.ZoneID != f.ZoneID {
		return false
	}
	if f.SourceID != "" && alert.SourceID != f.SourceID {
		return false
	}
	if !f.From.IsZero() && alert.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && alert.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// Store is the authoritative in-memory alert collection.
// Params: mutex-serialized map, append order, and change listener list.
// Returns: append-only creation, lifecycle mutation, and filtered read access.
// Every successfully classified reading yields exactly one stored alert; the
// single mutex keeps appends and lifecycle transitions atomic so listeners
// always observe a consistent collection, never a partially-appended one.
type Store struct {
	mu        sync.RWMutex
	alerts    map[string]*domain.Alert
	order     []string
	listeners []func()
}

// New creates empty alert store.
// Params: none.
// Returns: initialized store instance.
func New() *Store {
	return &Store{alerts: make(map[string]*domain.Alert)}
}

// OnChange registers one callback fired after every store mutation.
// Params: callback invoked outside the store lock.
// Returns: none. This is the explicit replacement for UI-reactive state:
// storage stays a plain owned collection, subscribers recompute from it.
func (s *Store) OnChange(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Append stores one freshly created alert.
// Params: alert from the factory in active state.
// Returns: error when the id already exists.
func (s *Store) Append(alert domain.Alert) error {
	s.mu.Lock()
	if _, dup := s.alerts[alert.ID]; dup {
		s.mu.Unlock()
		return fmt.Errorf("alert %q already stored", alert.ID)
	}
	stored := alert.Clone()
	s.alerts[alert.ID] = &stored
	s.order = append(s.order, alert.ID)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners)
	return nil
}

// Get returns one alert copy by id.
// Params: alert id.
// Returns: detached alert copy or ErrNotFound.
func (s *Store) Get(id string) (domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	return alert.Clone(), nil
}

// List returns alert copies matching the filter in append order.
// Params: filter predicate; zero value matches all alerts.
// Returns: non-mutating projection over the full collection.
func (s *Store) List(filter Filter) []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Alert, 0)
	for _, id := range s.order {
		alert, ok := s.alerts[id]
		if !ok {
			continue
		}
		if filter.matches(*alert) {
			out = append(out, alert.Clone())
		}
	}
	return out
}

// Snapshot returns copies of all alerts in append order.
// Params: none.
// Returns: consistent detached view used by metrics recomputation.
func (s *Store) Snapshot() []domain.Alert {
	return s.List(Filter{})
}

// Len returns current alert count.
// Params: none.
// Returns: number of stored alerts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// Transition applies one lifecycle mutation to an alert in place.
// Params: alert id and apply callback returning true when state changed.
// Returns: resulting alert copy or ErrNotFound. Listeners fire only when the
// callback reports an actual change, so idempotent redundant calls stay silent.
func (s *Store) Transition(id string, apply func(*domain.Alert) bool) (domain.Alert, error) {
	s.mu.Lock()
	alert, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return domain.Alert{}, fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	changed := apply(alert)
	result := alert.Clone()
	var listeners []func()
	if changed {
		listeners = s.listenersLocked()
	}
	s.mu.Unlock()

	notify(listeners)
	return result, nil
}

// listenersLocked copies listener list under held lock.
// Params: none.
// Returns: listener snapshot safe to call after unlock.
func (s *Store) listenersLocked() []func() {
	if len(s.listeners) == 0 {
		return nil
	}
	return append([]func(){}, s.listeners...)
}

// notify invokes listener snapshot outside the store lock.
// Params: listener list.
// Returns: none.
func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
