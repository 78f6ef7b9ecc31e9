// Package config loads configuration from config.yaml, .env and PROSPECTUS_*
// environment variables, and builds the global logger.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Edgar    EdgarConfig    `yaml:"edgar" mapstructure:"edgar"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Circuit  CircuitConfig  `yaml:"circuit" mapstructure:"circuit"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	DLQ      DLQConfig      `yaml:"dlq" mapstructure:"dlq"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// EdgarConfig configures access to SEC EDGAR.
type EdgarConfig struct {
	// UserAgent must identify the operator with a contact email, as SEC
	// fair-access rules require.
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required,contains=@"`
	DataURL      string        `yaml:"data_url" mapstructure:"data_url" validate:"required,url"`
	WWWURL       string        `yaml:"www_url" mapstructure:"www_url" validate:"required,url"`
	RequestDelay time.Duration `yaml:"request_delay" mapstructure:"request_delay" validate:"gte=0"`
	TimeoutSecs  int           `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=1"`
	MaxBodyMB    int64         `yaml:"max_body_mb" mapstructure:"max_body_mb" validate:"gte=1"`
}

// RetryConfig configures retry of transient HTTP failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// CircuitConfig configures the per-host circuit breaker.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=1"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// StorageConfig configures where prospectuses are written.
type StorageConfig struct {
	Root      string `yaml:"root" mapstructure:"root" validate:"required"`
	MinFreeMB uint64 `yaml:"min_free_mb" mapstructure:"min_free_mb"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency          int    `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=32"`
	SkipExisting         bool   `yaml:"skip_existing" mapstructure:"skip_existing"`
	DryRun               bool   `yaml:"dry_run" mapstructure:"dry_run"`
	MaxFunds             int    `yaml:"max_funds" mapstructure:"max_funds" validate:"gte=0"`
	Label                string `yaml:"label" mapstructure:"label" validate:"required,excludesall=/"`
	SupplementWindowDays int    `yaml:"supplement_window_days" mapstructure:"supplement_window_days" validate:"gte=0"`
}

// ClassifyConfig configures fund classification.
type ClassifyConfig struct {
	// FormsFile is an optional YAML file of form preference overrides.
	FormsFile string `yaml:"forms_file" mapstructure:"forms_file"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"required"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DLQConfig configures the dead letter queue.
type DLQConfig struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
	// Dir receives prospectus_YYYYMMDD.log in addition to stderr. Empty
	// disables the file sink.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Validation modes.
const (
	// ModeFetch validates everything needed to talk to EDGAR.
	ModeFetch = "fetch"
	// ModeLedger validates only what reading the ledger needs.
	ModeLedger = "ledger"
)

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECTUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("edgar.user_agent", "")
	v.SetDefault("edgar.data_url", "https://data.sec.gov")
	v.SetDefault("edgar.www_url", "https://www.sec.gov")
	v.SetDefault("edgar.request_delay", 100*time.Millisecond)
	v.SetDefault("edgar.timeout_secs", 30)
	v.SetDefault("edgar.max_body_mb", 256)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", 500*time.Millisecond)
	v.SetDefault("retry.max_backoff", 30*time.Second)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout", 30*time.Second)
	v.SetDefault("storage.root", filepath.Join("data", "prospectuses"))
	v.SetDefault("storage.min_free_mb", 1)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.skip_existing", true)
	v.SetDefault("batch.dry_run", false)
	v.SetDefault("batch.max_funds", 0)
	v.SetDefault("batch.label", "custom")
	v.SetDefault("batch.supplement_window_days", 30)
	v.SetDefault("classify.forms_file", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", filepath.Join("data", "prospectus.db"))
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("dlq.max_retries", 3)
	v.SetDefault("dlq.base_delay", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.dir", filepath.Join("data", "logs"))

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return eris.Wrapf(godotenv.Load(path), "config: load %s", path)
}

// Validate checks the configuration for the given mode and returns a
// *model.FatalConfigurationError naming the first offending key.
func (c *Config) Validate(mode string) error {
	v := newValidator()

	var target any = c
	var prefix string
	switch mode {
	case ModeFetch:
	case ModeLedger:
		target, prefix = &c.Store, "store."
	default:
		return &model.FatalConfigurationError{Field: "mode", Reason: "unknown validation mode " + mode}
	}

	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return eris.Wrap(err, "config: validate")
	}
	fe := verrs[0]
	return &model.FatalConfigurationError{
		Field:  prefix + fieldPath(fe.Namespace()),
		Reason: reason(fe),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldPath turns "Config.edgar.user_agent" into "edgar.user_agent".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "contains":
		return "must contain " + strings.TrimSpace(fe.Param()) + " (include a contact email)"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a URL"
	default:
		if fe.Param() != "" {
			return "failed " + fe.Tag() + "=" + fe.Param()
		}
		return "failed " + fe.Tag()
	}
}

// LogFilePath returns the daily log file under dir for t.
func LogFilePath(dir string, t time.Time) string {
	return filepath.Join(dir, "prospectus_"+t.Format("20060102")+".log")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return eris.Wrapf(err, "config: create log dir %s", cfg.Dir)
		}
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, LogFilePath(cfg.Dir, time.Now()))
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
