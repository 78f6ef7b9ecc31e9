package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// chdirTemp changes to a fresh temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Edgar.UserAgent)
	assert.Equal(t, "https://data.sec.gov", cfg.Edgar.DataURL)
	assert.Equal(t, "https://www.sec.gov", cfg.Edgar.WWWURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Edgar.RequestDelay)
	assert.Equal(t, 30, cfg.Edgar.TimeoutSecs)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, filepath.Join("data", "prospectuses"), cfg.Storage.Root)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.True(t, cfg.Batch.SkipExisting)
	assert.False(t, cfg.Batch.DryRun)
	assert.Zero(t, cfg.Batch.MaxFunds)
	assert.Equal(t, "custom", cfg.Batch.Label)
	assert.Equal(t, 30, cfg.Batch.SupplementWindowDays)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, filepath.Join("data", "prospectus.db"), cfg.Store.DatabaseURL)
	assert.Equal(t, 3, cfg.DLQ.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, filepath.Join("data", "logs"), cfg.Log.Dir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
edgar:
  user_agent: "Fund Research ops@example.com"
  request_delay: 250ms
batch:
  concurrency: 4
  skip_existing: false
store:
  driver: postgres
  database_url: postgres://localhost/prospectus
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Fund Research ops@example.com", cfg.Edgar.UserAgent)
	assert.Equal(t, 250*time.Millisecond, cfg.Edgar.RequestDelay)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.False(t, cfg.Batch.SkipExisting)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "custom", cfg.Batch.Label)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
batch:
  concurrency: 2
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("PROSPECTUS_BATCH_CONCURRENCY", "8")
	t.Setenv("PROSPECTUS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PROSPECTUS_EDGAR_USER_AGENT=\"DotEnv Tester dotenv@example.com\"\n"), 0o644))
	t.Setenv("PROSPECTUS_EDGAR_USER_AGENT", "")
	os.Unsetenv("PROSPECTUS_EDGAR_USER_AGENT") //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "DotEnv Tester dotenv@example.com", cfg.Edgar.UserAgent)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PROSPECTUS_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("PROSPECTUS_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Edgar.UserAgent = "Fund Research ops@example.com"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate(ModeFetch))
	assert.NoError(t, cfg.Validate(ModeLedger))
}

func TestValidate_MissingUserAgent(t *testing.T) {
	cfg := validConfig(t)
	cfg.Edgar.UserAgent = ""

	err := cfg.Validate(ModeFetch)
	var fce *model.FatalConfigurationError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, "edgar.user_agent", fce.Field)
	assert.Equal(t, "is required", fce.Reason)

	// Reading the ledger does not need EDGAR access.
	assert.NoError(t, cfg.Validate(ModeLedger))
}

func TestValidate_UserAgentWithoutEmail(t *testing.T) {
	cfg := validConfig(t)
	cfg.Edgar.UserAgent = "anonymous bot"

	err := cfg.Validate(ModeFetch)
	var fce *model.FatalConfigurationError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, "edgar.user_agent", fce.Field)
	assert.Contains(t, fce.Reason, "contact email")
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	cfg := validConfig(t)
	cfg.Batch.Concurrency = 0

	err := cfg.Validate(ModeFetch)
	var fce *model.FatalConfigurationError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, "batch.concurrency", fce.Field)

	cfg.Batch.Concurrency = 33
	require.Error(t, cfg.Validate(ModeFetch))
}

func TestValidate_StoreDriver(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Driver = "mysql"

	err := cfg.Validate(ModeLedger)
	var fce *model.FatalConfigurationError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, "store.driver", fce.Field)
	assert.Contains(t, fce.Reason, "sqlite postgres")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validConfig(t)
	assert.Error(t, cfg.Validate("serve"))
}

func TestLogFilePath(t *testing.T) {
	got := LogFilePath("logs", time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, filepath.Join("logs", "prospectus_20240309.log"), got)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerWithFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json", Dir: dir}))
	zap.L().Info("written to file")
	_ = zap.L().Sync()

	data, err := os.ReadFile(LogFilePath(dir, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
