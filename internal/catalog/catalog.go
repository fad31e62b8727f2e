package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"sitewatch/internal/domain"
)

var (
	// ErrNotFound indicates absent zone or rule id.
	ErrNotFound = errors.New("not found")
	// ErrExists indicates duplicate zone or rule id on create.
	ErrExists = errors.New("already exists")
)

// Rule is one threshold policy scoped to a zone and a metric kind.
// Params: identity, warning/critical bounds, optional min/max band, and enable flag.
// Returns: evaluation input for the severity classifier.
type Rule struct {
	ID           string          `json:"id"`
	Metric       string          `json:"metric"`
	Warning      float64         `json:"warning"`
	Critical     float64         `json:"critical"`
	Min          *float64        `json:"min,omitempty"`
	Max          *float64        `json:"max,omitempty"`
	BaseSeverity domain.Severity `json:"base_severity"`
	Enabled      bool            `json:"enabled"`
	Description  string          `json:"description,omitempty"`
}

// Zone is one named physical or logical area owning its rules.
// Params: identity, category tag, active flag, and ordered rule set.
// Returns: rule scope for reading evaluation; soft-deactivated, never deleted.
type Zone struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Active   bool   `json:"active"`
	Rules    []Rule `json:"rules"`
}

// ZonePatch carries sparse zone updates; nil fields stay unchanged.
// Params: optional name, category, and active flag.
// Returns: patch applied atomically by UpdateZone.
type ZonePatch struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// RulePatch carries sparse rule updates; nil fields stay unchanged.
// Params: optional threshold, band, severity, enable, and description fields.
// Returns: patch applied atomically by UpdateRule.
type RulePatch struct {
	Warning      *float64         `json:"warning,omitempty"`
	Critical     *float64         `json:"critical,omitempty"`
	Min          *float64         `json:"min,omitempty"`
	Max          *float64         `json:"max,omitempty"`
	BaseSeverity *domain.Severity `json:"base_severity,omitempty"`
	Enabled      *bool            `json:"enabled,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

// ValidateRule checks threshold invariants for one rule.
// Params: candidate rule.
// Returns: validation error when thresholds are inconsistent.
func ValidateRule(rule Rule) error {
	if strings.TrimSpace(rule.ID) == "" {
		return errors.New("rule id is required")
	}
	if strings.TrimSpace(rule.Metric) == "" {
		return errors.New("rule metric is required")
	}
	if rule.Critical < rule.Warning {
		return fmt.Errorf("rule %q: critical %v must not be below warning %v", rule.ID, rule.Critical, rule.Warning)
	}
	if rule.Warning > 0 && rule.Critical == rule.Warning {
		return fmt.Errorf("rule %q: critical must be more extreme than warning", rule.ID)
	}
	if rule.Min != nil && rule.Max != nil && *rule.Min >= *rule.Max {
		return fmt.Errorf("rule %q: min %v must be below max %v", rule.ID, *rule.Min, *rule.Max)
	}
	if rule.BaseSeverity != "" {
		if _, err := domain.ParseSeverity(string(rule.BaseSeverity)); err != nil {
			return fmt.Errorf("rule %q: %w", rule.ID, err)
		}
	}
	return nil
}

// Catalog is the authoritative in-memory zone/rule collection.
// Params: mutex-guarded zone map and stable insertion order.
// Returns: rule lookup by zone+metric plus management operations.
type Catalog struct {
	mu    sync.RWMutex
	zones map[string]*Zone
	order []string
}

// New creates empty catalog.
// Params: none.
// Returns: initialized catalog instance.
func New() *Catalog {
	return &Catalog{zones: make(map[string]*Zone)}
}

// Seed loads initial zones, replacing any existing content.
// Params: zone list from configuration.
// Returns: validation error when any seeded rule is inconsistent.
func (c *Catalog) Seed(zones []Zone) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]*Zone, len(zones))
	order := make([]string, 0, len(zones))
	for _, zone := range zones {
		if strings.TrimSpace(zone.ID) == "" {
			return errors.New("zone id is required")
		}
		if _, dup := next[zone.ID]; dup {
			return fmt.Errorf("zone %q: %w", zone.ID, ErrExists)
		}
		for _, rule := range zone.Rules {
			if err := ValidateRule(rule); err != nil {
				return fmt.Errorf("zone %q: %w", zone.ID, err)
			}
		}
		copied := cloneZone(zone)
		next[zone.ID] = &copied
		order = append(order, zone.ID)
	}
	c.zones = next
	c.order = order
	return nil
}

// CreateZone adds one zone without rules.
// Params: zone identity fields; rules are added separately.
// Returns: created zone copy or ErrExists for duplicate id.
func (c *Catalog) CreateZone(zone Zone) (Zone, error) {
	if strings.TrimSpace(zone.ID) == "" {
		return Zone{}, errors.New("zone id is required")
	}
	for _, rule := range zone.Rules {
		if err := ValidateRule(rule); err != nil {
			return Zone{}, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.zones[zone.ID]; ok {
		return Zone{}, fmt.Errorf("zone %q: %w", zone.ID, ErrExists)
	}
	copied := cloneZone(zone)
	c.zones[zone.ID] = &copied
	c.order = append(c.order, zone.ID)
	return cloneZone(copied), nil
}

// UpdateZone applies sparse patch to one zone.
// Params: zone id and patch with optional fields.
// Returns: updated zone copy or ErrNotFound.
func (c *Catalog) UpdateZone(id string, patch ZonePatch) (Zone, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	zone, ok := c.zones[id]
	if !ok {
		return Zone{}, fmt.Errorf("zone %q: %w", id, ErrNotFound)
	}
	if patch.Name != nil {
		zone.Name = *patch.Name
	}
	if patch.Category != nil {
		zone.Category = *patch.Category
	}
	if patch.Active != nil {
		zone.Active = *patch.Active
	}
	return cloneZone(*zone), nil
}

// GetZone returns one zone copy by id.
// Params: zone id.
// Returns: zone copy or ErrNotFound.
func (c *Catalog) GetZone(id string) (Zone, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	zone, ok := c.zones[id]
	if !ok {
		return Zone{}, fmt.Errorf("zone %q: %w", id, ErrNotFound)
	}
	return cloneZone(*zone), nil
}

// ListZones returns all zones in insertion order.
// Params: none.
// Returns: detached zone copies.
func (c *Catalog) ListZones() []Zone {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Zone, 0, len(c.order))
	for _, id := range c.order {
		if zone, ok := c.zones[id]; ok {
			out = append(out, cloneZone(*zone))
		}
	}
	return out
}

// AddRule appends one rule to a zone.
// Params: zone id and validated rule.
// Returns: stored rule copy, ErrNotFound for zone, or ErrExists for duplicate rule id.
func (c *Catalog) AddRule(zoneID string, rule Rule) (Rule, error) {
	if err := ValidateRule(rule); err != nil {
		return Rule{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	zone, ok := c.zones[zoneID]
	if !ok {
		return Rule{}, fmt.Errorf("zone %q: %w", zoneID, ErrNotFound)
	}
	for _, existing := range zone.Rules {
		if existing.ID == rule.ID {
			return Rule{}, fmt.Errorf("rule %q: %w", rule.ID, ErrExists)
		}
	}
	zone.Rules = append(zone.Rules, cloneRule(rule))
	return cloneRule(rule), nil
}

// UpdateRule applies sparse patch to one rule in a zone.
// Params: zone id, rule id, and patch.
// Returns: updated rule copy, ErrNotFound, or threshold validation error.
func (c *Catalog) UpdateRule(zoneID, ruleID string, patch RulePatch) (Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	zone, ok := c.zones[zoneID]
	if !ok {
		return Rule{}, fmt.Errorf("zone %q: %w", zoneID, ErrNotFound)
	}
	for i := range zone.Rules {
		if zone.Rules[i].ID != ruleID {
			continue
		}
		next := cloneRule(zone.Rules[i])
		if patch.Warning != nil {
			next.Warning = *patch.Warning
		}
		if patch.Critical != nil {
			next.Critical = *patch.Critical
		}
		if patch.Min != nil {
			next.Min = patch.Min
		}
		if patch.Max != nil {
			next.Max = patch.Max
		}
		if patch.BaseSeverity != nil {
			next.BaseSeverity = *patch.BaseSeverity
		}
		if patch.Enabled != nil {
			next.Enabled = *patch.Enabled
		}
		if patch.Description != nil {
			next.Description = *patch.Description
		}
		if err := ValidateRule(next); err != nil {
			return Rule{}, err
		}
		zone.Rules[i] = next
		return cloneRule(next), nil
	}
	return Rule{}, fmt.Errorf("rule %q: %w", ruleID, ErrNotFound)
}

// DeleteRule removes one rule from a zone.
// Params: zone id and rule id.
// Returns: ErrNotFound when zone or rule is absent.
func (c *Catalog) DeleteRule(zoneID, ruleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	zone, ok := c.zones[zoneID]
	if !ok {
		return fmt.Errorf("zone %q: %w", zoneID, ErrNotFound)
	}
	for i := range zone.Rules {
		if zone.Rules[i].ID == ruleID {
			zone.Rules = append(zone.Rules[:i], zone.Rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("rule %q: %w", ruleID, ErrNotFound)
}

// MatchingRules returns the zone and its rules for one metric kind.
// Params: zone id and metric kind from a reading.
// Returns: zone copy, matching rule copies (enabled or not), and presence flag.
// Disabled rules are included so the alert factory can skip them explicitly.
func (c *Catalog) MatchingRules(zoneID, metric string) (Zone, []Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	zone, ok := c.zones[zoneID]
	if !ok {
		return Zone{}, nil, false
	}
	var rules []Rule
	for _, rule := range zone.Rules {
		if strings.EqualFold(rule.Metric, metric) {
			rules = append(rules, cloneRule(rule))
		}
	}
	zoneCopy := *zone
	zoneCopy.Rules = nil
	return zoneCopy, rules, true
}

// cloneZone duplicates zone with detached rule slice.
// Params: source zone value.
// Returns: deep zone copy.
func cloneZone(zone Zone) Zone {
	out := zone
	out.Rules = make([]Rule, 0, len(zone.Rules))
	for _, rule := range zone.Rules {
		out.Rules = append(out.Rules, cloneRule(rule))
	}
	return out
}

// cloneRule duplicates rule with detached band pointers.
// Params: source rule value.
// Returns: deep rule copy.
func cloneRule(rule Rule) Rule {
	out := rule
	if rule.Min != nil {
		v := *rule.Min
		out.Min = &v
	}
	if rule.Max != nil {
		v := *rule.Max
		out.Max = &v
	}
	return out
}
