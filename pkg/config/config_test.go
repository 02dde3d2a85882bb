package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.campaigns/pkg/env"
	"digital.vasic.campaigns/pkg/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaigns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StoreFile, cfg.Store.Kind)
	assert.Equal(t, 4, cfg.Runner.MaxConcurrency)
	assert.Equal(t, 1, cfg.Runner.MaxRetries)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  kind: postgres
postgres:
  url: postgres://campaigns:pw@db:5432/campaigns
  max_open_conns: 20
archive:
  enabled: true
  endpoint: minio:9000
  bucket: reports
  use_ssl: false
monitor:
  addr: ":9000"
logging:
  level: debug
  format: json
runner:
  max_concurrency: 8
  timeout: 5m
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Kind)
	assert.Equal(t, 20, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 2, cfg.Postgres.MaxIdleConns)
	assert.True(t, cfg.Archive.Enabled)
	assert.False(t, cfg.Archive.UseSSL)
	assert.Equal(t, "executions", cfg.Archive.Prefix)
	assert.Equal(t, ":9000", cfg.Monitor.Addr)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Runner.MaxConcurrency)
	assert.Equal(t, 1, cfg.Runner.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Runner.Timeout)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, "store: [unclosed")

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  kind: file\n  path: data\n")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"CAMPAIGNS_STORE_KIND=memory\n"+
			"CAMPAIGNS_RUNNER_MAX_RETRIES=3\n"+
			"CAMPAIGNS_ARCHIVE_USE_SSL=false\n",
	), 0644))

	loader := env.NewPrefixedLoader(EnvPrefix)
	require.NoError(t, loader.Load(envFile))
	t.Setenv("CAMPAIGNS_RUNNER_TIMEOUT", "45s")

	cfg, err := Load(path, loader)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, 3, cfg.Runner.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Runner.Timeout)
	assert.False(t, cfg.Archive.UseSSL)
	assert.Equal(t, "data", cfg.Store.Path)
}

func TestLoad_NotifyEnv(t *testing.T) {
	t.Setenv("CAMPAIGNS_NOTIFY_WEBHOOK_URL", "https://hooks.example.com/c")
	t.Setenv("CAMPAIGNS_NOTIFY_EVENTS", "campaign_completed, scenario_failed,")
	t.Setenv("CAMPAIGNS_NOTIFY_TIMEOUT", "3s")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), env.NewPrefixedLoader(EnvPrefix))
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/c", cfg.Notify.WebhookURL)
	assert.Equal(t, []string{"campaign_completed", "scenario_failed"}, cfg.Notify.Events)
	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)
}

func TestApplyEnv_CollectsMalformedValues(t *testing.T) {
	t.Setenv("CAMPAIGNS_RUNNER_MAX_CONCURRENCY", "many")
	t.Setenv("CAMPAIGNS_RUNNER_TIMEOUT", "soon")

	cfg := Default()
	err := ApplyEnv(&cfg, env.NewPrefixedLoader(EnvPrefix))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPAIGNS_RUNNER_MAX_CONCURRENCY")
	assert.Contains(t, err.Error(), "CAMPAIGNS_RUNNER_TIMEOUT")
	assert.Equal(t, 4, cfg.Runner.MaxConcurrency)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Store.Kind = StorePostgres
	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = ""
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Runner.MaxConcurrency = 0
	cfg.Runner.MaxRetries = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"postgres.url", "archive.endpoint", "archive.bucket",
		"unknown log level", "unknown logging format",
		"max_concurrency", "max_retries",
	} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = Default()
	cfg.Notify.WebhookURL = "hooks.example.com"
	cfg.Notify.Events = []string{"campaign_completed", "exploded"}
	err = cfg.Validate()
	assert.ErrorContains(t, err, "notify.webhook_url")
	assert.ErrorContains(t, err, `unknown notify event: "exploded"`)

	cfg = Default()
	cfg.Store.Kind = "redis"
	assert.ErrorContains(t, cfg.Validate(), `unknown store kind: "redis"`)
}

func TestConfig_RedactedAndSecrets(t *testing.T) {
	cfg := Default()
	cfg.Postgres.URL = "postgres://campaigns:topsecretpw@db/campaigns"
	cfg.Archive.SecretKey = "minio-secret-key"
	cfg.Notify.Token = "hook-token-value"

	red := cfg.Redacted()
	assert.Equal(t, "hook********alue", red.Notify.Token)
	assert.NotContains(t, red.Postgres.URL, "topsecretpw")
	assert.NotEqual(t, cfg.Archive.SecretKey, red.Archive.SecretKey)
	assert.Equal(t, "postgres://campaigns:topsecretpw@db/campaigns", cfg.Postgres.URL)

	assert.Equal(t,
		[]string{"topsecretpw", "minio-secret-key", "hook-token-value"},
		cfg.Secrets(),
	)
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	logger, err := LoggingConfig{Level: "warn", Format: "console"}.NewLogger()
	require.NoError(t, err)
	assert.IsType(t, &logging.ConsoleLogger{}, logger)

	out := filepath.Join(t.TempDir(), "logs", "campaigns.log")
	logger, err = LoggingConfig{
		Level: "info", Format: "json", Output: out,
	}.NewLogger("", "s3cret")
	require.NoError(t, err)
	assert.IsType(t, &logging.RedactingLogger{}, logger)

	logger.Info("connecting with s3cret")
	require.NoError(t, logger.Close())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
	assert.Contains(t, string(data), "connecting with ****")

	file := filepath.Join(t.TempDir(), "console.jsonl")
	logger, err = LoggingConfig{Level: "info", Format: "console", File: file}.NewLogger()
	require.NoError(t, err)
	assert.IsType(t, &logging.MultiLogger{}, logger)
	logger.Debug("hidden")
	logger.Warn("kept", logging.CampaignField(3))
	require.NoError(t, logger.Close())
	data, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"campaign_id":3`)

	_, err = LoggingConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
	_, err = LoggingConfig{Format: "xml"}.NewLogger()
	assert.Error(t, err)
}
