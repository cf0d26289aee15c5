// Package config loads halo settings from a file plus HALO_* environment
// overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/harunnryd/halo/pkg/configutil"
	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/turn"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. HALO_BUDGET_LISTEN_TIMEOUT_MS.
const EnvPrefix = "HALO"

// Async modes.
const (
	AsyncGo     = "go"
	AsyncPool   = "pool"
	AsyncInline = "inline"
)

type Config struct {
	Budget        BudgetConfig        `mapstructure:"budget" json:"budget" yaml:"budget"`
	Hooks         HooksConfig         `mapstructure:"hooks" json:"hooks" yaml:"hooks"`
	Async         AsyncConfig         `mapstructure:"async" json:"async" yaml:"async"`
	Session       SessionConfig       `mapstructure:"session" json:"session" yaml:"session"`
	Observability ObservabilityConfig `mapstructure:"observability" json:"observability" yaml:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy" json:"privacy" yaml:"privacy"`
	Environment   string              `mapstructure:"environment" json:"environment" yaml:"environment"`
	LogLevel      string              `mapstructure:"log_level" json:"log_level" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	LogFormat     string              `mapstructure:"log_format" json:"log_format" yaml:"log_format" jsonschema:"enum=text,enum=json,enum=otel,description=otel forwards to the global OpenTelemetry logger provider and needs a host that installs one"`
}

// BudgetConfig holds the per-phase limits in milliseconds.
type BudgetConfig struct {
	ListenTimeoutMs   int `mapstructure:"listen_timeout_ms" json:"listen_timeout_ms" yaml:"listen_timeout_ms" jsonschema:"minimum=1"`
	ThinkingTimeoutMs int `mapstructure:"thinking_timeout_ms" json:"thinking_timeout_ms" yaml:"thinking_timeout_ms" jsonschema:"minimum=1"`
	ResponseTimeoutMs int `mapstructure:"response_timeout_ms" json:"response_timeout_ms" yaml:"response_timeout_ms" jsonschema:"minimum=1"`
}

type HooksConfig struct {
	Provider   string         `mapstructure:"provider" json:"provider" yaml:"provider" jsonschema:"description=Hook provider: noop or log or console. Join several with commas to combine them"`
	Settings   map[string]any `mapstructure:"settings" json:"settings,omitempty" yaml:"settings,omitempty"`
	Instrument bool           `mapstructure:"instrument" json:"instrument" yaml:"instrument"`
	Speech     SpeechConfig   `mapstructure:"speech" json:"speech" yaml:"speech"`
}

// SpeechConfig shapes response text before the speech hook; zero disables a limit.
type SpeechConfig struct {
	MaxChars     int               `mapstructure:"max_chars" json:"max_chars" yaml:"max_chars"`
	MaxSentences int               `mapstructure:"max_sentences" json:"max_sentences" yaml:"max_sentences"`
	Replacements map[string]string `mapstructure:"replacements" json:"replacements,omitempty" yaml:"replacements,omitempty"`
}

type AsyncConfig struct {
	Mode           string `mapstructure:"mode" json:"mode" yaml:"mode" jsonschema:"enum=go,enum=pool,enum=inline"`
	Workers        int    `mapstructure:"workers" json:"workers" yaml:"workers"`
	QueueSize      int    `mapstructure:"queue_size" json:"queue_size" yaml:"queue_size"`
	TimeoutMs      int    `mapstructure:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms"`
	Retries        int    `mapstructure:"retries" json:"retries" yaml:"retries"`
	RetryBackoffMs int    `mapstructure:"retry_backoff_ms" json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
}

type SessionConfig struct {
	QueueSize int `mapstructure:"queue_size" json:"queue_size" yaml:"queue_size"`
	Fairness  int `mapstructure:"fairness" json:"fairness" yaml:"fairness"`
}

type ObservabilityConfig struct {
	ArtifactsDir      string  `mapstructure:"artifacts_dir" json:"artifacts_dir" yaml:"artifacts_dir"`
	RetentionDays     int     `mapstructure:"retention_days" json:"retention_days" yaml:"retention_days"`
	MetricsSampleRate float64 `mapstructure:"metrics_sample_rate" json:"metrics_sample_rate" yaml:"metrics_sample_rate" jsonschema:"minimum=0,maximum=1"`
	MetricsBuffer     int     `mapstructure:"metrics_buffer" json:"metrics_buffer" yaml:"metrics_buffer"`
	MetricsJSONL      string  `mapstructure:"metrics_jsonl" json:"metrics_jsonl" yaml:"metrics_jsonl" jsonschema:"description=Append every metrics event as one JSON line to this file"`
	Tracing           bool    `mapstructure:"tracing" json:"tracing" yaml:"tracing" jsonschema:"description=Emit turn spans to the global OpenTelemetry tracer provider installed by the host"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii" json:"redact_pii" yaml:"redact_pii"`
}

var defaults = map[string]any{
	"budget.listen_timeout_ms":          8000,
	"budget.thinking_timeout_ms":        15000,
	"budget.response_timeout_ms":        30000,
	"hooks.provider":                    "log",
	"hooks.instrument":                  true,
	"hooks.speech.max_chars":            0,
	"hooks.speech.max_sentences":        0,
	"async.mode":                        AsyncPool,
	"async.workers":                     4,
	"async.queue_size":                  64,
	"async.timeout_ms":                  2000,
	"async.retries":                     0,
	"async.retry_backoff_ms":            200,
	"session.queue_size":                64,
	"session.fairness":                  3,
	"observability.artifacts_dir":       "",
	"observability.retention_days":      0,
	"observability.metrics_sample_rate": 1.0,
	"observability.metrics_buffer":      256,
	"observability.metrics_jsonl":       "",
	"observability.tracing":             false,
	"privacy.redact_pii":                true,
	"environment":                       "development",
	"log_level":                         "info",
	"log_format":                        "text",
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := load(newViper(false))
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func newViper(env bool) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if !env {
		return v
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads path (YAML, TOML or JSON by extension) over the defaults.
// An empty path loads defaults and environment overrides only.
func LoadConfig(path string) (Config, error) {
	v := newViper(true)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsx.Errorf(errorsx.ReasonConfigInvalid, "read config: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsx.Errorf(errorsx.ReasonConfigInvalid, "unmarshal: %w", err)
	}
	expandEnvStrings(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first offending key.
func (c *Config) Validate() error {
	if _, err := c.TurnBudget(); err != nil {
		return err
	}
	if err := configutil.RequireString(c.Hooks.Provider, "hooks.provider"); err != nil {
		return err
	}
	switch c.Async.Mode {
	case AsyncGo, AsyncInline:
	case AsyncPool:
		if c.Async.Workers <= 0 {
			return invalid("async.workers", c.Async.Workers)
		}
		if c.Async.QueueSize <= 0 {
			return invalid("async.queue_size", c.Async.QueueSize)
		}
	default:
		return invalid("async.mode", c.Async.Mode)
	}
	if c.Hooks.Speech.MaxChars < 0 {
		return invalid("hooks.speech.max_chars", c.Hooks.Speech.MaxChars)
	}
	if c.Hooks.Speech.MaxSentences < 0 {
		return invalid("hooks.speech.max_sentences", c.Hooks.Speech.MaxSentences)
	}
	if c.Async.TimeoutMs < 0 {
		return invalid("async.timeout_ms", c.Async.TimeoutMs)
	}
	if c.Async.Retries < 0 {
		return invalid("async.retries", c.Async.Retries)
	}
	if c.Session.QueueSize <= 0 {
		return invalid("session.queue_size", c.Session.QueueSize)
	}
	if c.Session.Fairness <= 0 {
		return invalid("session.fairness", c.Session.Fairness)
	}
	if r := c.Observability.MetricsSampleRate; r < 0 || r > 1 {
		return invalid("observability.metrics_sample_rate", r)
	}
	if c.Observability.RetentionDays < 0 {
		return invalid("observability.retention_days", c.Observability.RetentionDays)
	}
	if _, err := c.Level(); err != nil {
		return invalid("log_level", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json", "otel":
	default:
		return invalid("log_format", c.LogFormat)
	}
	return nil
}

func invalid(key string, value any) error {
	return errorsx.Errorf(errorsx.ReasonConfigInvalid, "%s: invalid value %v", key, value)
}

// TurnBudget converts the budget section into a validated turn.Budget.
func (c *Config) TurnBudget() (turn.Budget, error) {
	fields := []struct {
		key string
		ms  int
	}{
		{"budget.listen_timeout_ms", c.Budget.ListenTimeoutMs},
		{"budget.thinking_timeout_ms", c.Budget.ThinkingTimeoutMs},
		{"budget.response_timeout_ms", c.Budget.ResponseTimeoutMs},
	}
	for _, f := range fields {
		if err := configutil.RequirePositive(ms(f.ms), f.key); err != nil {
			return turn.Budget{}, err
		}
	}
	return turn.NewBudget(ms(c.Budget.ListenTimeoutMs), ms(c.Budget.ThinkingTimeoutMs), ms(c.Budget.ResponseTimeoutMs))
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// HookTimeout is the per-work limit for spawned hooks; zero means none.
func (c *Config) HookTimeout() time.Duration {
	return ms(c.Async.TimeoutMs)
}

// RetentionWindow is the artifact retention age; zero disables purging.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Observability.RetentionDays) * 24 * time.Hour
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	for k, v := range cfg.Hooks.Settings {
		cfg.Hooks.Settings[k] = expandAny(v)
	}
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = expandAny(item)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer:
		if !v.IsNil() {
			expandValue(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				v.SetMapIndex(key, reflect.ValueOf(os.ExpandEnv(v.MapIndex(key).String())))
			}
		}
	}
}
