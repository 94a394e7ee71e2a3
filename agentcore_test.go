package agentcore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduflow/agentcore/circuitbreaker"
	"github.com/eduflow/agentcore/config"
	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/graph"
	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/types"
)

func TestNewRuntime_DefaultsAndDriver(t *testing.T) {
	rt, err := NewRuntime(nil, nil, prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	g := graph.New("hello").
		AddNode(executor.NewAgentFunc("hello", func(_ context.Context, s types.State) (types.State, error) {
			s[types.KeyAnswer] = "hi"
			return s, nil
		}))

	driver, err := rt.NewDriver(g)
	require.NoError(t, err)

	out, err := driver.Run(context.Background(), types.NewState())
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Answer())
}

func TestNewRuntime_RedisSinkWired(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := config.DefaultConfig()
	cfg.Events.RedisAddr = srv.Addr()

	rt, err := NewRuntime(cfg, nil, prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, rt.Dispatcher)
	require.NoError(t, rt.Close())
}

func TestNewRuntime_ModelTableFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Models.Table = map[string]string{"answer_agent": "big-model"}

	rt, err := NewRuntime(cfg, nil, prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "big-model", rt.Resolver.Resolve(context.Background(), "answer_agent"))
	assert.Equal(t, "default", rt.Resolver.Resolve(context.Background(), "other_agent"))
}

func TestNewRuntime_BreakerTransitionsReachGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt, err := NewRuntime(nil, nil, reg, zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	p := policy.Default()
	p.Breaker = &circuitbreaker.Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour,
		SuccessThreshold: 1,
		HalfOpenMaxCalls: 1,
	}
	rt.Policies.Set("data_query", p)
	rt.Policies.Breaker("data_query").RecordFailure()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "agentcore_circuit_breaker_state" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		assert.Equal(t, float64(circuitbreaker.StateOpen), mf.GetMetric()[0].GetGauge().GetValue())
		return
	}
	t.Fatal("circuit_breaker_state gauge not registered")
}

func TestNewLogger_RejectsBadLevel(t *testing.T) {
	_, err := NewLogger(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}
