// Package config loads the campaignctl configuration from a YAML
// file with CAMPAIGNS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"digital.vasic.campaigns/pkg/env"
	"digital.vasic.campaigns/pkg/logging"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "campaigns.yaml"

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "CAMPAIGNS_"

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config is the complete campaignctl configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
	Runner   RunnerConfig   `yaml:"runner"`
	Reports  ReportsConfig  `yaml:"reports"`
}

// StoreConfig selects where campaigns and executions live.
type StoreConfig struct {
	Kind string `yaml:"kind"`
	// Path is the root directory of the file store.
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ArchiveConfig points at the S3-compatible bucket finished
// execution reports are copied to.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MonitorConfig struct {
	Addr string `yaml:"addr"`
}

// NotifyConfig posts campaign events to a webhook. Nothing is sent
// while WebhookURL is empty; Events defaults to finished campaigns.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Token      string        `yaml:"token"`
	Events     []string      `yaml:"events"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig selects the logger. Format is json or console;
// an empty Output writes to stdout. File additionally keeps JSON
// lines of console output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

type RunnerConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	MaxRetries     int           `yaml:"max_retries"`
	Timeout        time.Duration `yaml:"timeout"`
	StaleThreshold time.Duration `yaml:"stale_threshold"`
}

// ReportsConfig says where rendered reports and the execution
// history log are written.
type ReportsConfig struct {
	Dir         string `yaml:"dir"`
	HistoryFile string `yaml:"history_file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{Kind: StoreFile, Path: "data"},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Archive: ArchiveConfig{
			Bucket: "campaign-reports",
			Prefix: "executions",
			UseSSL: true,
		},
		Monitor: MonitorConfig{Addr: ":8089"},
		Notify:  NotifyConfig{Timeout: 10 * time.Second},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Runner: RunnerConfig{
			MaxConcurrency: 4,
			MaxRetries:     1,
			Timeout:        30 * time.Minute,
		},
		Reports: ReportsConfig{
			Dir:         "reports",
			HistoryFile: "reports/history.jsonl",
		},
	}
}

// Load reads path on top of the defaults. A missing file is not
// an error. Environment overrides are applied afterwards and the
// result is validated.
func Load(path string, loader *env.DefaultLoader) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf(
				"failed to parse config %s: %w", path, err,
			)
		}
	}

	if loader != nil {
		if err := ApplyEnv(&cfg, loader); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the CAMPAIGNS_* variables known to
// loader. Malformed values are collected and returned together.
func ApplyEnv(cfg *Config, loader *env.DefaultLoader) error {
	str := func(key string, dst *string) {
		if v, ok := loader.Lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		n, err := loader.GetInt(key, *dst)
		errs = append(errs, err)
		*dst = n
	}
	flag := func(key string, dst *bool) {
		b, err := loader.GetBool(key, *dst)
		errs = append(errs, err)
		*dst = b
	}
	dur := func(key string, dst *time.Duration) {
		d, err := loader.GetDuration(key, *dst)
		errs = append(errs, err)
		*dst = d
	}

	str("STORE_KIND", &cfg.Store.Kind)
	str("STORE_PATH", &cfg.Store.Path)

	str("POSTGRES_URL", &cfg.Postgres.URL)
	num("POSTGRES_MAX_OPEN_CONNS", &cfg.Postgres.MaxOpenConns)
	num("POSTGRES_MAX_IDLE_CONNS", &cfg.Postgres.MaxIdleConns)
	dur("POSTGRES_CONN_MAX_LIFETIME", &cfg.Postgres.ConnMaxLifetime)

	flag("ARCHIVE_ENABLED", &cfg.Archive.Enabled)
	str("ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint)
	str("ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKey)
	str("ARCHIVE_SECRET_KEY", &cfg.Archive.SecretKey)
	str("ARCHIVE_BUCKET", &cfg.Archive.Bucket)
	str("ARCHIVE_PREFIX", &cfg.Archive.Prefix)
	str("ARCHIVE_REGION", &cfg.Archive.Region)
	flag("ARCHIVE_USE_SSL", &cfg.Archive.UseSSL)

	str("MONITOR_ADDR", &cfg.Monitor.Addr)

	str("NOTIFY_WEBHOOK_URL", &cfg.Notify.WebhookURL)
	str("NOTIFY_TOKEN", &cfg.Notify.Token)
	if v, ok := loader.Lookup("NOTIFY_EVENTS"); ok {
		cfg.Notify.Events = splitList(v)
	}
	dur("NOTIFY_TIMEOUT", &cfg.Notify.Timeout)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_OUTPUT", &cfg.Logging.Output)
	str("LOG_FILE", &cfg.Logging.File)

	num("RUNNER_MAX_CONCURRENCY", &cfg.Runner.MaxConcurrency)
	num("RUNNER_MAX_RETRIES", &cfg.Runner.MaxRetries)
	dur("RUNNER_TIMEOUT", &cfg.Runner.Timeout)
	dur("RUNNER_STALE_THRESHOLD", &cfg.Runner.StaleThreshold)

	str("REPORTS_DIR", &cfg.Reports.Dir)
	str("REPORTS_HISTORY_FILE", &cfg.Reports.HistoryFile)

	return errors.Join(errs...)
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file store"))
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind: %q", c.Store.Kind))
	}

	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, errors.New("archive.endpoint is required when the archive is enabled"))
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("archive.bucket is required when the archive is enabled"))
		}
	}

	if c.Notify.WebhookURL != "" {
		if !strings.HasPrefix(c.Notify.WebhookURL, "http://") &&
			!strings.HasPrefix(c.Notify.WebhookURL, "https://") {
			errs = append(errs, errors.New("notify.webhook_url must be an http or https url"))
		}
		for _, e := range c.Notify.Events {
			if !knownEvents[e] {
				errs = append(errs, fmt.Errorf("unknown notify event: %q", e))
			}
		}
	}
	if c.Notify.Timeout < 0 {
		errs = append(errs, errors.New("notify.timeout must not be negative"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown logging format: %q", c.Logging.Format))
	}

	if c.Runner.MaxConcurrency < 1 {
		errs = append(errs, errors.New("runner.max_concurrency must be at least 1"))
	}
	if c.Runner.MaxRetries < 0 {
		errs = append(errs, errors.New("runner.max_retries must not be negative"))
	}
	if c.Runner.Timeout < 0 || c.Runner.StaleThreshold < 0 {
		errs = append(errs, errors.New("runner durations must not be negative"))
	}

	return errors.Join(errs...)
}

// Secrets lists the credentials that must never reach a log.
func (c Config) Secrets() []string {
	return []string{
		env.URLPassword(c.Postgres.URL),
		c.Archive.SecretKey,
		c.Notify.Token,
	}
}

// Redacted returns a copy of c that is safe to print.
func (c Config) Redacted() Config {
	out := c
	out.Postgres.URL = env.RedactURL(c.Postgres.URL)
	out.Archive.SecretKey = env.RedactSecret(c.Archive.SecretKey)
	out.Notify.Token = env.RedactSecret(c.Notify.Token)
	return out
}

// knownEvents are the event types a webhook can subscribe to.
var knownEvents = map[string]bool{
	"campaign_started":   true,
	"campaign_completed": true,
	"campaign_stopped":   true,
	"scenario_started":   true,
	"scenario_completed": true,
	"scenario_failed":    true,
	"scenario_retried":   true,
	"scenario_skipped":   true,
}

// splitList parses a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
