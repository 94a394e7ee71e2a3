// Package config loads the runtime configuration of the execution core:
// per-node resilience policies, rate-limit rules, event dispatch and
// model selection. Sources compose as defaults, then YAML file, then
// environment overrides.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Events configures the notification dispatcher.
	Events EventsConfig `yaml:"events" env:"EVENTS"`

	// Models configures the model-selection collaborator.
	Models ModelsConfig `yaml:"models" env:"MODELS"`

	// DefaultLimit is the token-bucket rule for operations without an
	// explicit entry in Limits.
	DefaultLimit LimitConfig `yaml:"default_limit" env:"DEFAULT_LIMIT"`

	// Limits holds per-operation token-bucket rules.
	Limits map[string]LimitConfig `yaml:"limits" env:"-"`

	// Policies holds per-node resilience policies.
	Policies map[string]PolicyConfig `yaml:"policies" env:"-"`

	// MaxSteps bounds one graph walk.
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// EventsConfig configures the notification dispatcher and its sinks.
type EventsConfig struct {
	// QueueSize is the bounded notification queue length.
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
	// RedisAddr enables the Redis sink when non-empty.
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	// RedisChannel is the pub/sub channel of the Redis sink.
	RedisChannel string `yaml:"redis_channel" env:"REDIS_CHANNEL"`
}

// ModelsConfig configures model selection.
type ModelsConfig struct {
	// Default is the model identifier used when the selector has no
	// opinion or cannot answer.
	Default string `yaml:"default" env:"DEFAULT"`
	// SelectTimeout bounds one selector call.
	SelectTimeout time.Duration `yaml:"select_timeout" env:"SELECT_TIMEOUT"`
	// Table maps agent names to model identifiers for the static selector.
	Table map[string]string `yaml:"table" env:"-"`
}

// LimitConfig is the YAML form of one token-bucket rule.
type LimitConfig struct {
	Capacity   float64 `yaml:"capacity" env:"CAPACITY"`
	RefillRate float64 `yaml:"refill_rate" env:"REFILL_RATE"`
}

// PolicyConfig is the YAML form of one node's resilience policy.
type PolicyConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	BackoffBase float64       `yaml:"backoff_base"`
	Jitter      bool          `yaml:"jitter"`
	Timeout     time.Duration `yaml:"timeout"`

	// Fallback selects the driver strategy on retry exhaustion; empty
	// means fail.
	Fallback        string `yaml:"fallback"`
	SubstituteAgent string `yaml:"substitute_agent"`

	// CircuitBreaker is nil when the node declares no breaker.
	CircuitBreaker *BreakerConfig `yaml:"circuit_breaker"`
}

// BreakerConfig is the YAML form of a circuit-breaker configuration.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the AGENTCORE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTCORE"}
}

// WithConfigPath sets the YAML file to load. A missing file is not an
// error; defaults and env overrides still apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation step run after all sources loaded.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults, then YAML, then env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}

	if c.Events.QueueSize <= 0 {
		return fmt.Errorf("config: events queue_size must be positive, got %d", c.Events.QueueSize)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("config: max_steps must be positive, got %d", c.MaxSteps)
	}

	for op, rule := range c.Limits {
		if rule.Capacity <= 0 || rule.RefillRate <= 0 {
			return fmt.Errorf("config: limit %q needs positive capacity and refill_rate", op)
		}
	}
	return nil
}
