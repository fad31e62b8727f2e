package templatefmt

import (
	"strings"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	t.Parallel()

	if got := FormatValue(31.5); got != "31.5" {
		t.Fatalf("FormatValue(31.5) = %q", got)
	}
	if got := FormatValue(30.0); got != "30" {
		t.Fatalf("trailing zeros must be dropped, got %q", got)
	}
	v := 0.883
	if got := FormatValue(&v); got != "0.883" {
		t.Fatalf("pointer value not rendered, got %q", got)
	}
	if got := FormatValue((*float64)(nil)); got != "" {
		t.Fatalf("nil pointer must render empty, got %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	if got := FormatDuration(90 * time.Second); got != "1.5m" {
		t.Fatalf("FormatDuration(90s) = %q", got)
	}
	if got := FormatDuration(2 * time.Hour); got != "2.0h" {
		t.Fatalf("FormatDuration(2h) = %q", got)
	}
	if got := FormatDuration(-30 * time.Second); got != "30.0s" {
		t.Fatalf("negative durations render absolute, got %q", got)
	}
}

func TestParseTemplateStrictKeys(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate("t", "{{fmtValue .Value}} in {{.Zone}}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var out strings.Builder
	data := map[string]any{"Value": 26.5, "Zone": "Dock"}
	if err := tmpl.Execute(&out, data); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out.String() != "26.5 in Dock" {
		t.Fatalf("unexpected render: %q", out.String())
	}

	var missing strings.Builder
	if err := tmpl.Execute(&missing, map[string]any{"Value": 1.0}); err == nil {
		t.Fatal("missing key must fail under strict lookup")
	}

	if _, err := ParseTemplate("bad", "{{.Broken"); err == nil {
		t.Fatal("malformed template must fail to parse")
	}
}
