package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sitewatch/internal/catalog"
	"sitewatch/internal/domain"
	"sitewatch/internal/metrics"
	"sitewatch/internal/templatefmt"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultHTTPListen        = ":8080"
	defaultHealthPath        = "/healthz"
	defaultReadyPath         = "/readyz"
	defaultIngestPath        = "/ingest"
	defaultMetricsPath       = "/metrics"
	defaultMaxBodyBytes      = 1 << 20
	defaultNATSURL           = "nats://127.0.0.1:4222"
	defaultNATSSubject       = "sitewatch.readings"
	defaultNATSStream        = "SITEWATCH_READINGS"
	defaultNATSConsumer      = "sitewatch-ingest"
	defaultNATSGroup         = "sitewatch-workers"
	defaultNATSWorkers       = 1
	defaultNATSAckWaitSec    = 30
	defaultNATSNackDelayMS   = 1000
	defaultNATSMaxDeliver    = -1
	defaultNATSMaxAckPending = 2048
	defaultQueueSubject      = "sitewatch.notify"
	defaultQueueStream       = "SITEWATCH_NOTIFY"
	defaultQueueConsumer     = "sitewatch-notify"
	defaultQueueGroup        = "sitewatch-notify-workers"
	defaultNotifyTimeoutSec  = 10
	defaultRetryInitialMS    = 500
	defaultRetryMaxMS        = 5000
	defaultRetryMaxAttempts  = 5

	// ServiceModeSingle keeps single-instance mode without NATS dependencies.
	ServiceModeSingle = "single"
	// ServiceModeNATS enables NATS-backed reading ingest and notify queue.
	ServiceModeNATS = "nats"

	// ProfileSafety selects the worker-safety domain preset.
	ProfileSafety = "safety"
	// ProfileEquipment selects the equipment-health domain preset.
	ProfileEquipment = "equipment"
	// ProfileEnvironment selects the environment-sensor domain preset.
	ProfileEnvironment = "environment"
)

// Config holds service runtime settings, domain profile, and seeded zones.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service ServiceConfig `toml:"service"`
	Log     LogConfig     `toml:"log"`
	Ingest  IngestConfig  `toml:"ingest"`
	Notify  NotifyConfig  `toml:"notify"`
	Profile ProfileConfig `toml:"profile"`
	Zones   []ZoneConfig  `toml:"zone"`
}

// rawConfig mirrors TOML model before runtime normalization.
// Params: decoded sections from one TOML source.
// Returns: raw zone map keyed by zone id.
type rawConfig struct {
	Service ServiceConfig            `toml:"service"`
	Log     LogConfig                `toml:"log"`
	Ingest  IngestConfig             `toml:"ingest"`
	Notify  NotifyConfig             `toml:"notify"`
	Profile ProfileConfig            `toml:"profile"`
	Zone    map[string]rawZoneConfig `toml:"zone"`
}

// rawZoneConfig stores one zone body from `[zone.<id>]` table.
// Params: zone fields except the table-key-derived id.
// Returns: intermediate zone body used for normalization.
type rawZoneConfig struct {
	Name     string       `toml:"name"`
	Category string       `toml:"category"`
	Active   *bool        `toml:"active"`
	Rule     []RuleConfig `toml:"rule"`
}

// ServiceConfig contains process-level settings.
// Params: service name and runtime mode.
// Returns: service behavior defaults.
type ServiceConfig struct {
	Name string `toml:"name"`
	Mode string `toml:"mode"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// IngestConfig defines inbound reading interfaces.
// Params: embedded HTTP and NATS subscription controls.
// Returns: ingestion runtime options.
type IngestConfig struct {
	HTTP HTTPIngestConfig `toml:"http"`
	NATS NATSIngestConfig `toml:"nats"`
}

// HTTPIngestConfig configures the HTTP API endpoint set.
// Params: listen address, well-known paths, and body size limit.
// Returns: HTTP serving behavior.
type HTTPIngestConfig struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen"`
	HealthPath   string `toml:"health_path"`
	ReadyPath    string `toml:"ready_path"`
	IngestPath   string `toml:"ingest_path"`
	MetricsPath  string `toml:"metrics_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// NATSIngestConfig configures JetStream queue-consumer ingestion.
// Params: connection + worker/ack/redelivery policy; routing keys are runtime-fixed.
// Returns: NATS ingest behavior.
type NATSIngestConfig struct {
	Enabled       bool     `toml:"enabled"`
	URL           []string `toml:"url"`
	Subject       string   `toml:"-"`
	Stream        string   `toml:"-"`
	ConsumerName  string   `toml:"-"`
	DeliverGroup  string   `toml:"-"`
	Workers       int      `toml:"workers"`
	AckWaitSec    int      `toml:"ack_wait_sec"`
	NackDelayMS   int      `toml:"nack_delay_ms"`
	MaxDeliver    int      `toml:"max_deliver"`
	MaxAckPending int      `toml:"max_ack_pending"`
}

// NotifyConfig defines outbound notification behavior.
// Params: severity gate, recipients, queue, and per-channel transport settings.
// Returns: notification controls.
type NotifyConfig struct {
	MinSeverity    string           `toml:"min_severity"`
	Recipients     []string         `toml:"recipients"`
	DeliveryMethod string           `toml:"delivery_method"`
	Queue          NotifyQueue      `toml:"queue"`
	Telegram       TelegramNotifier `toml:"telegram"`
	Webhook        WebhookNotifier  `toml:"webhook"`
}

// NotifyQueue defines asynchronous delivery queue settings.
// Params: enable flag and worker/ack policy; stream routing keys are runtime-fixed.
// Returns: async notify pipeline controls.
type NotifyQueue struct {
	Enabled       bool     `toml:"enabled"`
	URL           []string `toml:"-"`
	Subject       string   `toml:"-"`
	Stream        string   `toml:"-"`
	ConsumerName  string   `toml:"-"`
	DeliverGroup  string   `toml:"-"`
	AckWaitSec    int      `toml:"ack_wait_sec"`
	NackDelayMS   int      `toml:"nack_delay_ms"`
	MaxDeliver    int      `toml:"max_deliver"`
	MaxAckPending int      `toml:"max_ack_pending"`
}

// NotifyRetry configures outbound delivery retries.
// Params: retry toggle, backoff, attempt limits, and logging.
// Returns: retry policy for notifications.
type NotifyRetry struct {
	Enabled        bool   `toml:"enabled"`
	Backoff        string `toml:"backoff"`
	InitialMS      int    `toml:"initial_ms"`
	MaxMS          int    `toml:"max_ms"`
	MaxAttempts    int    `toml:"max_attempts"`
	LogEachAttempt bool   `toml:"log_each_attempt"`
}

// TelegramNotifier defines Telegram channel settings.
// Params: enabled flag, bot token, chat ID, API base URL, and retry policy.
// Returns: Telegram sender configuration.
type TelegramNotifier struct {
	Enabled  bool        `toml:"enabled"`
	BotToken string      `toml:"bot_token"`
	ChatID   string      `toml:"chat_id"`
	APIBase  string      `toml:"api_base"`
	Retry    NotifyRetry `toml:"retry"`
}

// WebhookNotifier defines generic outbound HTTP endpoint settings.
// Params: URL, method, timeout, optional static headers, and retry policy.
// Returns: webhook sender configuration.
type WebhookNotifier struct {
	Enabled    bool              `toml:"enabled"`
	URL        string            `toml:"url"`
	Method     string            `toml:"method"`
	TimeoutSec int               `toml:"timeout_sec"`
	Headers    map[string]string `toml:"headers"`
	Retry      NotifyRetry       `toml:"retry"`
}

// ProfileConfig selects the domain preset and its tuning tables.
// Params: profile name, severity weight overrides, and description templates.
// Returns: parameterization shared by factory and metrics aggregator.
type ProfileConfig struct {
	Name     string             `toml:"name"`
	Weights  map[string]float64 `toml:"weights"`
	Template map[string]string  `toml:"template"`
}

// ZoneConfig describes one seeded zone with its rules.
// Params: zone identity fields and nested rule array.
// Returns: boot-time zone definition.
type ZoneConfig struct {
	ID       string       `toml:"-"`
	Name     string       `toml:"name"`
	Category string       `toml:"category"`
	Active   bool         `toml:"active"`
	Rule     []RuleConfig `toml:"rule"`
}

// RuleConfig describes one threshold rule inside a zone table.
// Params: rule id, metric kind, thresholds, optional band, and flags.
// Returns: boot-time rule definition.
type RuleConfig struct {
	ID          string   `toml:"id"`
	Metric      string   `toml:"metric"`
	Warning     float64  `toml:"warning"`
	Critical    float64  `toml:"critical"`
	Min         *float64 `toml:"min"`
	Max         *float64 `toml:"max"`
	Severity    string   `toml:"severity"`
	Enabled     *bool    `toml:"enabled"`
	Description string   `toml:"description"`
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		cfg, err = loadFile(src.File)
	} else {
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile reads one TOML configuration file.
// Params: file path to config snapshot.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var raw rawConfig
	if err := toml.Unmarshal(body, &raw); err != nil {
		return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return normalizeRawConfig(raw)
}

// loadDir reads and merges TOML files from one directory.
// Params: directory containing config fragments.
// Returns: merged config snapshot or load/decode error.
// Zones accumulate across fragments; every other top-level section may be
// defined in at most one fragment to keep the merge unambiguous.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged Config
	seenSections := make(map[string]string)
	seenZones := make(map[string]string)
	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", file, err)
		}
		var present map[string]any
		if err := toml.Unmarshal(body, &present); err != nil {
			return Config{}, fmt.Errorf("decode config file %q: %w", file, err)
		}
		var raw rawConfig
		if err := toml.Unmarshal(body, &raw); err != nil {
			return Config{}, fmt.Errorf("decode config file %q: %w", file, err)
		}

		for section := range present {
			if section == "zone" {
				continue
			}
			if origin, dup := seenSections[section]; dup {
				return Config{}, fmt.Errorf("section [%s] defined in both %q and %q", section, origin, file)
			}
			seenSections[section] = file
			switch section {
			case "service":
				merged.Service = raw.Service
			case "log":
				merged.Log = raw.Log
			case "ingest":
				merged.Ingest = raw.Ingest
			case "notify":
				merged.Notify = raw.Notify
			case "profile":
				merged.Profile = raw.Profile
			default:
				return Config{}, fmt.Errorf("unknown section [%s] in %q", section, file)
			}
		}

		fragment, err := normalizeRawConfig(rawConfig{Zone: raw.Zone})
		if err != nil {
			return Config{}, fmt.Errorf("decode config file %q: %w", file, err)
		}
		for _, zone := range fragment.Zones {
			if origin, dup := seenZones[zone.ID]; dup {
				return Config{}, fmt.Errorf("zone %q defined in both %q and %q", zone.ID, origin, file)
			}
			seenZones[zone.ID] = file
			merged.Zones = append(merged.Zones, zone)
		}
	}
	return merged, nil
}

// normalizeRawConfig converts raw TOML model to runtime config.
// Params: decoded raw config from one source.
// Returns: normalized config snapshot with zones in stable id order.
func normalizeRawConfig(raw rawConfig) (Config, error) {
	cfg := Config{
		Service: raw.Service,
		Log:     raw.Log,
		Ingest:  raw.Ingest,
		Notify:  raw.Notify,
		Profile: raw.Profile,
	}
	if len(raw.Zone) == 0 {
		return cfg, nil
	}

	ids := make([]string, 0, len(raw.Zone))
	for id := range raw.Zone {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cfg.Zones = make([]ZoneConfig, 0, len(ids))
	for _, id := range ids {
		body := raw.Zone[id]
		zone := ZoneConfig{
			ID:       id,
			Name:     body.Name,
			Category: body.Category,
			Active:   true,
			Rule:     body.Rule,
		}
		if body.Active != nil {
			zone.Active = *body.Active
		}
		cfg.Zones = append(cfg.Zones, zone)
	}
	return cfg, nil
}

// applyDefaults fills unset fields with runtime defaults.
// Params: mutable config snapshot.
// Returns: snapshot mutated in place.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = "sitewatch"
	}
	cfg.Service.Mode = NormalizeServiceMode(cfg.Service.Mode)

	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	applySinkDefaults(&cfg.Log.Console, "line")
	applySinkDefaults(&cfg.Log.File, "json")

	if !cfg.Ingest.HTTP.Enabled && !cfg.Ingest.NATS.Enabled {
		cfg.Ingest.HTTP.Enabled = true
	}
	httpCfg := &cfg.Ingest.HTTP
	if strings.TrimSpace(httpCfg.Listen) == "" {
		httpCfg.Listen = defaultHTTPListen
	}
	if strings.TrimSpace(httpCfg.HealthPath) == "" {
		httpCfg.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(httpCfg.ReadyPath) == "" {
		httpCfg.ReadyPath = defaultReadyPath
	}
	if strings.TrimSpace(httpCfg.IngestPath) == "" {
		httpCfg.IngestPath = defaultIngestPath
	}
	if strings.TrimSpace(httpCfg.MetricsPath) == "" {
		httpCfg.MetricsPath = defaultMetricsPath
	}
	if httpCfg.MaxBodyBytes <= 0 {
		httpCfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	natsCfg := &cfg.Ingest.NATS
	natsCfg.URL = normalizeNATSURLs(natsCfg.URL)
	if len(natsCfg.URL) == 0 {
		natsCfg.URL = []string{defaultNATSURL}
	}
	natsCfg.Subject = defaultNATSSubject
	natsCfg.Stream = defaultNATSStream
	natsCfg.ConsumerName = defaultNATSConsumer
	natsCfg.DeliverGroup = defaultNATSGroup
	if natsCfg.Workers <= 0 {
		natsCfg.Workers = defaultNATSWorkers
	}
	if natsCfg.AckWaitSec <= 0 {
		natsCfg.AckWaitSec = defaultNATSAckWaitSec
	}
	if natsCfg.NackDelayMS <= 0 {
		natsCfg.NackDelayMS = defaultNATSNackDelayMS
	}
	if natsCfg.MaxDeliver == 0 {
		natsCfg.MaxDeliver = defaultNATSMaxDeliver
	}
	if natsCfg.MaxAckPending <= 0 {
		natsCfg.MaxAckPending = defaultNATSMaxAckPending
	}

	notifyCfg := &cfg.Notify
	if strings.TrimSpace(notifyCfg.MinSeverity) == "" {
		notifyCfg.MinSeverity = string(domain.SeverityHigh)
	}
	if strings.TrimSpace(notifyCfg.DeliveryMethod) == "" {
		notifyCfg.DeliveryMethod = "webhook"
	}
	queue := &notifyCfg.Queue
	queue.URL = cfg.Ingest.NATS.URL
	queue.Subject = defaultQueueSubject
	queue.Stream = defaultQueueStream
	queue.ConsumerName = defaultQueueConsumer
	queue.DeliverGroup = defaultQueueGroup
	if queue.AckWaitSec <= 0 {
		queue.AckWaitSec = defaultNATSAckWaitSec
	}
	if queue.NackDelayMS <= 0 {
		queue.NackDelayMS = defaultNATSNackDelayMS
	}
	if queue.MaxDeliver == 0 {
		queue.MaxDeliver = defaultNATSMaxDeliver
	}
	if queue.MaxAckPending <= 0 {
		queue.MaxAckPending = defaultNATSMaxAckPending
	}
	applyRetryDefaults(&notifyCfg.Telegram.Retry)
	applyRetryDefaults(&notifyCfg.Webhook.Retry)
	if notifyCfg.Webhook.TimeoutSec <= 0 {
		notifyCfg.Webhook.TimeoutSec = defaultNotifyTimeoutSec
	}

	if strings.TrimSpace(cfg.Profile.Name) == "" {
		cfg.Profile.Name = ProfileSafety
	}

	for i := range cfg.Zones {
		for j := range cfg.Zones[i].Rule {
			rule := &cfg.Zones[i].Rule[j]
			if rule.Enabled == nil {
				enabled := true
				rule.Enabled = &enabled
			}
			if strings.TrimSpace(rule.Severity) == "" {
				rule.Severity = string(domain.SeverityLow)
			}
		}
	}
}

// applySinkDefaults fills one log sink with defaults.
// Params: mutable sink and default format.
// Returns: sink mutated in place.
func applySinkDefaults(sink *LogSinkConfig, format string) {
	if strings.TrimSpace(sink.Level) == "" {
		sink.Level = "info"
	}
	if strings.TrimSpace(sink.Format) == "" {
		sink.Format = format
	}
}

// applyRetryDefaults fills one retry policy with defaults.
// Params: mutable retry policy.
// Returns: policy mutated in place.
func applyRetryDefaults(retry *NotifyRetry) {
	if strings.TrimSpace(retry.Backoff) == "" {
		retry.Backoff = "exponential"
	}
	if retry.InitialMS <= 0 {
		retry.InitialMS = defaultRetryInitialMS
	}
	if retry.MaxMS <= 0 {
		retry.MaxMS = defaultRetryMaxMS
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultRetryMaxAttempts
	}
}

// validateConfig checks one normalized config snapshot.
// Params: config after defaults.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	switch cfg.Service.Mode {
	case ServiceModeSingle, ServiceModeNATS:
	default:
		return fmt.Errorf("service.mode must be %q or %q", ServiceModeSingle, ServiceModeNATS)
	}

	if err := validateSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}

	if _, err := domain.ParseSeverity(cfg.Notify.MinSeverity); err != nil {
		return fmt.Errorf("notify.min_severity: %w", err)
	}
	if cfg.Notify.Webhook.Enabled && strings.TrimSpace(cfg.Notify.Webhook.URL) == "" {
		return errors.New("notify.webhook.url is required when webhook channel is enabled")
	}
	if cfg.Notify.Telegram.Enabled {
		if strings.TrimSpace(cfg.Notify.Telegram.BotToken) == "" {
			return errors.New("notify.telegram.bot_token is required when telegram channel is enabled")
		}
		if strings.TrimSpace(cfg.Notify.Telegram.ChatID) == "" {
			return errors.New("notify.telegram.chat_id is required when telegram channel is enabled")
		}
	}
	if cfg.Notify.Queue.Enabled && cfg.Service.Mode == ServiceModeSingle {
		return errors.New("notify.queue requires service.mode = \"nats\"")
	}
	if cfg.Ingest.NATS.Enabled && cfg.Service.Mode == ServiceModeSingle {
		return errors.New("ingest.nats requires service.mode = \"nats\"")
	}
	if cfg.Service.Mode == ServiceModeSingle && !cfg.Ingest.HTTP.Enabled {
		return errors.New("ingest.http.enabled must be true when service.mode = \"single\"")
	}

	if err := validateProfile(cfg.Profile); err != nil {
		return err
	}

	seenZone := make(map[string]struct{}, len(cfg.Zones))
	for _, zone := range cfg.Zones {
		if _, dup := seenZone[zone.ID]; dup {
			return fmt.Errorf("duplicate zone id %q", zone.ID)
		}
		seenZone[zone.ID] = struct{}{}
		seenRule := make(map[string]struct{}, len(zone.Rule))
		for _, rule := range zone.Rule {
			if _, dup := seenRule[rule.ID]; dup {
				return fmt.Errorf("zone %q: duplicate rule id %q", zone.ID, rule.ID)
			}
			seenRule[rule.ID] = struct{}{}
			if err := catalog.ValidateRule(BuildRule(rule)); err != nil {
				return fmt.Errorf("zone %q: %w", zone.ID, err)
			}
		}
	}
	return nil
}

// validateSink checks one log sink settings.
// Params: sink label, sink config, and path requirement flag.
// Returns: validation error.
func validateSink(label string, sink LogSinkConfig, needsPath bool) error {
	if !sink.Enabled {
		return nil
	}
	switch sink.Format {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format must be \"line\" or \"json\"", label)
	}
	switch strings.ToLower(sink.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level %q is not supported", label, sink.Level)
	}
	if needsPath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when file sink is enabled", label)
	}
	return nil
}

// validateProfile checks profile name, weight table, and templates.
// Params: profile section.
// Returns: validation error.
func validateProfile(profile ProfileConfig) error {
	switch profile.Name {
	case ProfileSafety, ProfileEquipment, ProfileEnvironment:
	default:
		return fmt.Errorf("profile.name %q is not supported", profile.Name)
	}
	for key, weight := range profile.Weights {
		if _, err := domain.ParseSeverity(key); err != nil {
			return fmt.Errorf("profile.weights: %w", err)
		}
		if weight < 0 {
			return fmt.Errorf("profile.weights.%s must not be negative", key)
		}
	}
	for metric, body := range profile.Template {
		if _, err := templatefmt.ParseTemplate("profile.template."+metric, body); err != nil {
			return fmt.Errorf("profile.template.%s: %w", metric, err)
		}
	}
	return nil
}

// NormalizeServiceMode maps empty/padded mode values to canonical constants.
// Params: raw mode string.
// Returns: canonical mode; empty input defaults to single mode.
func NormalizeServiceMode(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	if mode == "" {
		return ServiceModeSingle
	}
	return mode
}

// normalizeNATSURLs trims and drops empty URL entries.
// Params: raw URL list from TOML.
// Returns: cleaned URL list.
func normalizeNATSURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		trimmed := strings.TrimSpace(url)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// BuildRule converts one rule config into a catalog rule.
// Params: rule section from zone table.
// Returns: runtime rule value.
func BuildRule(rule RuleConfig) catalog.Rule {
	enabled := true
	if rule.Enabled != nil {
		enabled = *rule.Enabled
	}
	return catalog.Rule{
		ID:           rule.ID,
		Metric:       strings.ToLower(strings.TrimSpace(rule.Metric)),
		Warning:      rule.Warning,
		Critical:     rule.Critical,
		Min:          rule.Min,
		Max:          rule.Max,
		BaseSeverity: domain.Severity(strings.ToLower(strings.TrimSpace(rule.Severity))),
		Enabled:      enabled,
		Description:  rule.Description,
	}
}

// BuildZones converts seeded zone configs into catalog zones.
// Params: zone sections from config.
// Returns: runtime zone list.
func BuildZones(zones []ZoneConfig) []catalog.Zone {
	out := make([]catalog.Zone, 0, len(zones))
	for _, zone := range zones {
		built := catalog.Zone{
			ID:       zone.ID,
			Name:     zone.Name,
			Category: zone.Category,
			Active:   zone.Active,
			Rules:    make([]catalog.Rule, 0, len(zone.Rule)),
		}
		if strings.TrimSpace(built.Name) == "" {
			built.Name = zone.ID
		}
		for _, rule := range zone.Rule {
			built.Rules = append(built.Rules, BuildRule(rule))
		}
		out = append(out, built)
	}
	return out
}

// SeverityWeights builds the aggregator weight table for one profile.
// Params: profile section after validation.
// Returns: preset weights for the profile name, overridden per configured tier.
func SeverityWeights(profile ProfileConfig) metrics.Weights {
	weights := profileWeightPreset(profile.Name)
	for key, weight := range profile.Weights {
		severity, err := domain.ParseSeverity(key)
		if err != nil {
			continue
		}
		weights[severity] = weight
	}
	return weights
}

// profileWeightPreset returns built-in weight table per domain preset.
// Params: profile name.
// Returns: copy of the preset weight map.
func profileWeightPreset(name string) metrics.Weights {
	switch name {
	case ProfileEquipment:
		return metrics.Weights{
			domain.SeverityCritical: 20,
			domain.SeverityHigh:     10,
			domain.SeverityMedium:   5,
			domain.SeverityLow:      2,
		}
	case ProfileEnvironment:
		return metrics.Weights{
			domain.SeverityCritical: 15,
			domain.SeverityHigh:     8,
			domain.SeverityMedium:   4,
			domain.SeverityLow:      1,
		}
	default:
		return metrics.Weights{
			domain.SeverityCritical: 25,
			domain.SeverityHigh:     12,
			domain.SeverityMedium:   6,
			domain.SeverityLow:      2,
		}
	}
}

// DescriptionTemplates merges built-in metric templates with profile overrides.
// Params: profile section after validation.
// Returns: per-metric-kind template bodies for the alert factory.
func DescriptionTemplates(profile ProfileConfig) map[string]string {
	templates := map[string]string{
		"temperature_sensor": "Temperature anomaly: {{fmtValue .Value}}{{.Unit}} (threshold: {{fmtValue .Critical}}{{.Unit}})",
		"air_quality":        "Air quality degraded in {{.Zone}}: index {{fmtValue .Value}} (threshold: {{fmtValue .Critical}})",
		"noise_level":        "Noise level exceeded: {{fmtValue .Value}}{{.Unit}} (threshold: {{fmtValue .Critical}}{{.Unit}})",
		"vibration_limit":    "Vibration above safe limit on {{.Source}}: {{fmtValue .Value}}{{.Unit}} (threshold: {{fmtValue .Critical}}{{.Unit}})",
		"ppe_detection":      "PPE violation detected in {{.Zone}} (confidence {{fmtValue .Value}})",
		"restricted_area":    "Restricted area entry detected in {{.Zone}} (confidence {{fmtValue .Value}})",
		"equipment_health":   "Equipment performance degraded on {{.Source}}: {{fmtValue .Value}}{{.Unit}} (threshold: {{fmtValue .Critical}}{{.Unit}})",
	}
	for metric, body := range profile.Template {
		templates[strings.ToLower(strings.TrimSpace(metric))] = body
	}
	return templates
}
