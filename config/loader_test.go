package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/ratelimit"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 256, cfg.Events.QueueSize)
	assert.Equal(t, "agentcore:events", cfg.Events.RedisChannel)
	assert.Equal(t, 2*time.Second, cfg.Models.SelectTimeout)
	assert.Equal(t, 32, cfg.MaxSteps)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/does/not/exist.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: debug
events:
  queue_size: 64
  redis_addr: localhost:6379
models:
  default: small-model
  select_timeout: 500ms
  table:
    answer_agent: big-model
limits:
  model_select:
    capacity: 5
    refill_rate: 1
policies:
  data_query:
    max_retries: 2
    base_delay: 100ms
    timeout: 5s
    fallback: skip_node
    circuit_breaker:
      failure_threshold: 4
      recovery_timeout: 10s
      success_threshold: 2
      half_open_max_calls: 3
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Events.QueueSize)
	assert.Equal(t, "localhost:6379", cfg.Events.RedisAddr)
	assert.Equal(t, "small-model", cfg.Models.Default)
	assert.Equal(t, 500*time.Millisecond, cfg.Models.SelectTimeout)
	assert.Equal(t, "big-model", cfg.Models.Table["answer_agent"])

	require.Contains(t, cfg.Limits, "model_select")
	assert.Equal(t, 5.0, cfg.Limits["model_select"].Capacity)

	require.Contains(t, cfg.Policies, "data_query")
	pc := cfg.Policies["data_query"]
	assert.Equal(t, 2, pc.MaxRetries)
	assert.Equal(t, "skip_node", pc.Fallback)
	require.NotNil(t, pc.CircuitBreaker)
	assert.Equal(t, 4, pc.CircuitBreaker.FailureThreshold)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: debug\n")
	t.Setenv("AGENTCORE_LOG_LEVEL", "warn")
	t.Setenv("AGENTCORE_EVENTS_QUEUE_SIZE", "16")
	t.Setenv("AGENTCORE_MODELS_SELECT_TIMEOUT", "250ms")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Events.QueueSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Models.SelectTimeout)
}

func TestLoad_ValidationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad log level", "log:\n  level: loud\n", "log level"},
		{"zero queue", "events:\n  queue_size: -1\n", "queue_size"},
		{"bad limit", "limits:\n  x:\n    capacity: 0\n    refill_rate: 1\n", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := NewLoader().WithConfigPath(path).Load()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_CustomValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.Models.Default == "default" {
				return assert.AnError
			}
			return nil
		}).
		Load()
	require.Error(t, err)
}

func TestApplyPolicies(t *testing.T) {
	path := writeConfigFile(t, `
policies:
  guarded:
    max_retries: 1
    timeout: 2s
    fallback: partial_result
    circuit_breaker:
      failure_threshold: 3
      recovery_timeout: 5s
      success_threshold: 1
      half_open_max_calls: 1
`)
	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	reg := policy.NewRegistry(nil, zap.NewNop())
	cfg.ApplyPolicies(reg)

	p := reg.Get("guarded")
	assert.Equal(t, 1, p.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, p.Timeout)
	assert.Equal(t, policy.FallbackPartialResult, p.Fallback)
	assert.NotNil(t, reg.Breaker("guarded"), "breaker instantiated from config")
}

func TestApplyLimits(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  model_select:
    capacity: 1
    refill_rate: 0.001
`)
	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	reg := ratelimit.NewRegistry(ratelimit.DefaultRule(), zap.NewNop())
	cfg.ApplyLimits(reg)

	assert.True(t, reg.Consume("model_select", 1))
	assert.False(t, reg.Consume("model_select", 1), "configured capacity of 1 enforced")
}

func TestToPolicy_EmptyFallbackIsFail(t *testing.T) {
	p := PolicyConfig{}.ToPolicy()
	assert.Equal(t, policy.FallbackFail, p.Fallback)
	assert.Equal(t, 30*time.Second, p.Timeout)
	assert.Nil(t, p.Breaker)
}
