package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sitewatch/internal/domain"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func TestFromCLI(t *testing.T) {
	t.Parallel()

	if _, err := FromCLI("", ""); err == nil {
		t.Fatal("expected error when no source is given")
	}
	if _, err := FromCLI("a.toml", "dir"); err == nil {
		t.Fatal("expected error when both sources are given")
	}
	src, err := FromCLI(" a.toml ", "")
	if err != nil || src.File != "a.toml" {
		t.Fatalf("unexpected file source: %+v, %v", src, err)
	}
	src, err = FromCLI("", "conf.d")
	if err != nil || src.Dir != "conf.d" {
		t.Fatalf("unexpected dir source: %+v, %v", src, err)
	}
}

func TestLoadSnapshotDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "sitewatch.toml", `
[service]
name = "sitewatch-test"

[zone.dock]
name = "Loading Dock"
category = "logistics"

[[zone.dock.rule]]
id = "nz"
metric = "Noise_Level"
warning = 25.0
critical = 30.0
`)

	cfg, err := LoadSnapshot(ConfigSource{File: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Service.Mode != ServiceModeSingle {
		t.Fatalf("default mode must be single, got %q", cfg.Service.Mode)
	}
	if !cfg.Log.Console.Enabled || cfg.Log.Console.Format != "line" || cfg.Log.Console.Level != "info" {
		t.Fatalf("console log defaults not applied: %+v", cfg.Log.Console)
	}
	if !cfg.Ingest.HTTP.Enabled {
		t.Fatal("http ingest must default on when nats ingest is off")
	}
	if cfg.Ingest.HTTP.Listen != ":8080" || cfg.Ingest.HTTP.MaxBodyBytes != 1<<20 {
		t.Fatalf("http ingest defaults not applied: %+v", cfg.Ingest.HTTP)
	}
	if cfg.Notify.MinSeverity != string(domain.SeverityHigh) {
		t.Fatalf("default min severity must be high, got %q", cfg.Notify.MinSeverity)
	}
	if cfg.Profile.Name != ProfileSafety {
		t.Fatalf("default profile must be safety, got %q", cfg.Profile.Name)
	}

	if len(cfg.Zones) != 1 {
		t.Fatalf("expected one seeded zone, got %+v", cfg.Zones)
	}
	zone := cfg.Zones[0]
	if zone.ID != "dock" || !zone.Active {
		t.Fatalf("zone defaults not applied: %+v", zone)
	}
	rule := BuildRule(zone.Rule[0])
	if rule.Metric != "noise_level" || !rule.Enabled || rule.BaseSeverity != domain.SeverityLow {
		t.Fatalf("rule normalization failed: %+v", rule)
	}
}

func TestLoadSnapshotValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"bad mode",
			"[service]\nmode = \"cluster\"\n",
			"service.mode",
		},
		{
			"bad min severity",
			"[notify]\nmin_severity = \"urgent\"\n",
			"min_severity",
		},
		{
			"telegram without token",
			"[notify.telegram]\nenabled = true\nchat_id = \"42\"\n",
			"bot_token",
		},
		{
			"webhook without url",
			"[notify.webhook]\nenabled = true\n",
			"webhook.url",
		},
		{
			"queue in single mode",
			"[notify.queue]\nenabled = true\n",
			"service.mode",
		},
		{
			"nats ingest in single mode",
			"[ingest.nats]\nenabled = true\n",
			"service.mode",
		},
		{
			"inconsistent rule",
			"[zone.dock]\nname = \"Dock\"\n[[zone.dock.rule]]\nid = \"r\"\nmetric = \"m\"\nwarning = 30.0\ncritical = 25.0\n",
			"warning",
		},
		{
			"bad profile template",
			"[profile]\nname = \"safety\"\n[profile.template]\nnoise_level = \"{{.Broken\"\n",
			"profile.template",
		},
	}

	dir := t.TempDir()
	for i, tc := range cases {
		path := writeConfig(t, dir, tc.name+".toml", tc.body)
		_, err := LoadSnapshot(ConfigSource{File: path})
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("case %d (%s): expected error containing %q, got %v", i, tc.name, tc.want, err)
		}
	}
}

func TestLoadSnapshotDirMerge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "00-service.toml", "[service]\nname = \"merged\"\nmode = \"nats\"\n\n[ingest]\n[ingest.nats]\nenabled = true\n")
	writeConfig(t, dir, "10-zones-a.toml", "[zone.dock]\nname = \"Dock\"\n")
	writeConfig(t, dir, "20-zones-b.toml", "[zone.lab]\nname = \"Lab\"\n")

	cfg, err := LoadSnapshot(ConfigSource{Dir: dir})
	if err != nil {
		t.Fatalf("dir load failed: %v", err)
	}
	if cfg.Service.Name != "merged" || cfg.Service.Mode != ServiceModeNATS {
		t.Fatalf("service fragment not merged: %+v", cfg.Service)
	}
	if len(cfg.Zones) != 2 {
		t.Fatalf("zones must accumulate across fragments: %+v", cfg.Zones)
	}
}

func TestLoadSnapshotDirRejectsDuplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "a.toml", "[service]\nname = \"a\"\n")
	writeConfig(t, dir, "b.toml", "[service]\nname = \"b\"\n")
	if _, err := LoadSnapshot(ConfigSource{Dir: dir}); err == nil || !strings.Contains(err.Error(), "[service]") {
		t.Fatalf("duplicate section must be rejected, got %v", err)
	}

	dupZones := t.TempDir()
	writeConfig(t, dupZones, "a.toml", "[zone.dock]\nname = \"A\"\n")
	writeConfig(t, dupZones, "b.toml", "[zone.dock]\nname = \"B\"\n")
	if _, err := LoadSnapshot(ConfigSource{Dir: dupZones}); err == nil || !strings.Contains(err.Error(), "zone \"dock\"") {
		t.Fatalf("duplicate zone must be rejected, got %v", err)
	}
}

func TestProfileTables(t *testing.T) {
	t.Parallel()

	weights := SeverityWeights(ProfileConfig{Name: ProfileSafety, Weights: map[string]float64{"low": 3}})
	if weights[domain.SeverityCritical] != 25 {
		t.Fatalf("safety preset must weigh critical 25, got %v", weights[domain.SeverityCritical])
	}
	if weights[domain.SeverityLow] != 3 {
		t.Fatalf("configured override must win, got %v", weights[domain.SeverityLow])
	}

	templates := DescriptionTemplates(ProfileConfig{
		Name:     ProfileSafety,
		Template: map[string]string{"Noise_Level": "custom {{fmtValue .Value}}"},
	})
	if templates["noise_level"] != "custom {{fmtValue .Value}}" {
		t.Fatalf("profile template override must win: %q", templates["noise_level"])
	}
	if _, ok := templates["temperature_sensor"]; !ok {
		t.Fatal("built-in templates must survive merges")
	}
}
