package engine

import (
	"fmt"
	"strings"
	"text/template"

	"sitewatch/internal/catalog"
	"sitewatch/internal/clock"
	"sitewatch/internal/domain"
	"sitewatch/internal/templatefmt"

	"github.com/google/uuid"
)

const fallbackDescription = "{{.Metric}} threshold exceeded: {{fmtValue .Value}}{{.Unit}} (critical: {{fmtValue .Critical}}{{.Unit}})"

// DescriptionContext is the data model exposed to description templates.
// Params: reading figures plus rule thresholds and zone labels.
// Returns: render input for per-metric-kind templates.
type DescriptionContext struct {
	Metric   string
	Value    float64
	Unit     string
	Warning  float64
	Critical float64
	Zone     string
	Source   string
}

// Factory builds alert entities from classified readings plus zone context.
// Params: compiled per-metric description templates, clock, and id generator.
// Returns: alert construction helper for the ingestion pipeline.
type Factory struct {
	templates map[string]*template.Template
	fallback  *template.Template
	clock     clock.Clock
	newID     func() string
}

// NewFactory compiles description templates and prepares the factory.
// Params: per-metric-kind template bodies and clock implementation.
// Returns: initialized factory or template compile error.
func NewFactory(templates map[string]string, clk clock.Clock) (*Factory, error) {
	compiled := make(map[string]*template.Template, len(templates))
	for metric, body := range templates {
		key := strings.ToLower(strings.TrimSpace(metric))
		if key == "" {
			continue
		}
		parsed, err := templatefmt.ParseTemplate("description."+key, body)
		if err != nil {
			return nil, fmt.Errorf("compile description template for %q: %w", metric, err)
		}
		compiled[key] = parsed
	}
	fallback, err := templatefmt.ParseTemplate("description.fallback", fallbackDescription)
	if err != nil {
		return nil, fmt.Errorf("compile fallback description template: %w", err)
	}
	return &Factory{
		templates: compiled,
		fallback:  fallback,
		clock:     clk,
		newID:     func() string { return uuid.NewString() },
	}, nil
}

// SetIDFunc overrides alert id generation for deterministic tests.
// Params: replacement id generator.
// Returns: none.
func (f *Factory) SetIDFunc(fn func() string) {
	if fn != nil {
		f.newID = fn
	}
}

// Create builds one active alert from a classified reading.
// Params: reading, matched rule, and owning zone.
// Returns: alert and true, or false when no alert must be created.
// A disabled rule or inactive zone is an expected condition, not a fault, so
// the factory skips silently. Creation time comes from the clock, never from
// the reading timestamp.
func (f *Factory) Create(reading domain.Reading, rule catalog.Rule, zone catalog.Zone) (domain.Alert, bool) {
	if !rule.Enabled || !zone.Active {
		return domain.Alert{}, false
	}
	severity, violated := Classify(reading.Value, rule)
	if !violated {
		return domain.Alert{}, false
	}
	if rule.BaseSeverity != "" {
		severity = domain.MaxSeverity(severity, rule.BaseSeverity)
	}

	return domain.Alert{
		ID:          f.newID(),
		Type:        rule.Metric,
		Severity:    severity,
		Confidence:  Confidence(reading.Value, rule),
		SourceID:    reading.SourceID,
		ZoneID:      zone.ID,
		Location:    zone.Name,
		Description: f.describe(reading, rule, zone),
		Status:      domain.StatusActive,
		CreatedAt:   f.clock.Now(),
	}, true
}

// describe renders human-readable description for one violation.
// Params: reading, rule, and zone context.
// Returns: rendered template output; unknown metric kinds use the generic
// fallback and render failures degrade to a plain formatted string.
func (f *Factory) describe(reading domain.Reading, rule catalog.Rule, zone catalog.Zone) string {
	ctx := DescriptionContext{
		Metric:   rule.Metric,
		Value:    reading.Value,
		Unit:     reading.Unit,
		Warning:  rule.Warning,
		Critical: rule.Critical,
		Zone:     zone.Name,
		Source:   reading.SourceID,
	}
	tmpl, ok := f.templates[strings.ToLower(rule.Metric)]
	if !ok {
		tmpl = f.fallback
	}
	var rendered strings.Builder
	if err := tmpl.Execute(&rendered, ctx); err != nil {
		return fmt.Sprintf("%s threshold exceeded: %v%s (critical: %v%s)",
			rule.Metric, reading.Value, reading.Unit, rule.Critical, reading.Unit)
	}
	return rendered.String()
}
