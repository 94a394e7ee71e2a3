// Package agentcore is the execution and routing core of the assistant
// backend: resilient agent execution (timeout, retry, circuit breaker),
// the pending-action protocol with its guided CRUD wizard, router-driven
// graph traversal, token-bucket rate limiting and best-effort lifecycle
// events.
//
// Usage:
//
//	cfg, err := config.NewLoader().WithConfigPath("agentcore.yaml").Load()
//	rt, err := agentcore.NewRuntime(cfg, nil, nil, nil)
//	defer rt.Close()
//
//	g := graph.New("intent_classifier").
//	    AddNode(classifier.NewAgent(nil, rt.Logger)).
//	    AddNode(wizard.NewAgent(rt.Logger))
//	driver, err := rt.NewDriver(g)
//	state, err := driver.Run(ctx, state)
package agentcore

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eduflow/agentcore/circuitbreaker"
	"github.com/eduflow/agentcore/config"
	"github.com/eduflow/agentcore/events"
	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/graph"
	"github.com/eduflow/agentcore/internal/metrics"
	"github.com/eduflow/agentcore/modelsel"
	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/ratelimit"
)

// Runtime bundles the shared long-lived components of one process:
// registries, dispatcher, envelope and model resolver. Construct it once
// at startup and build graph drivers from it.
type Runtime struct {
	Logger     *zap.Logger
	Policies   *policy.Registry
	Limits     *ratelimit.Registry
	Dispatcher *events.Dispatcher
	Envelope   *executor.Envelope
	Resolver   *modelsel.Resolver

	cfg       *config.Config
	collector *metrics.Collector
	redis     *redis.Client
}

// NewRuntime wires a runtime from configuration.
//
// selector may be nil; model lookups then come from the configured static
// table, or resolve to the default model when the table is empty too.
// registerer may be nil to use the prometheus default. logger may be nil
// to build one from cfg.Log.
func NewRuntime(cfg *config.Config, selector modelsel.Selector, registerer prometheus.Registerer, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		var err error
		logger, err = NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	collector := metrics.NewCollector("agentcore", registerer, logger)

	policies := policy.NewRegistry(func(node string, _, to circuitbreaker.State) {
		collector.SetBreakerState(node, to)
	}, logger)
	cfg.ApplyPolicies(policies)

	limits := ratelimit.NewRegistry(ratelimit.Rule{
		Capacity:   cfg.DefaultLimit.Capacity,
		RefillRate: cfg.DefaultLimit.RefillRate,
	}, logger)
	limits.OnRejection(collector.RecordRateLimitRejection)
	cfg.ApplyLimits(limits)

	rt := &Runtime{
		Logger:    logger,
		Policies:  policies,
		Limits:    limits,
		cfg:       cfg,
		collector: collector,
	}

	sinks := []events.Sink{events.NewLogSink(logger)}
	if cfg.Events.RedisAddr != "" {
		rt.redis = redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
		sinks = append(sinks, events.NewRedisSink(rt.redis, cfg.Events.RedisChannel))
	}
	rt.Dispatcher = events.NewDispatcher(cfg.Events.QueueSize, logger, sinks...)
	rt.Dispatcher.OnDrop(collector.RecordEventDropped)

	rt.Envelope = executor.NewEnvelope(policies, rt.Dispatcher, collector, logger)

	if selector == nil && len(cfg.Models.Table) > 0 {
		selector = &modelsel.StaticSelector{Models: cfg.Models.Table}
	}
	rt.Resolver = modelsel.NewResolver(selector, limits, cfg.Models.Default, cfg.Models.SelectTimeout, logger)

	return rt, nil
}

// NewDriver builds a graph driver over the runtime's envelope and
// policies, bounded by the configured step budget.
func (rt *Runtime) NewDriver(g *graph.Graph) (*graph.Driver, error) {
	return graph.NewDriver(g, rt.Envelope, rt.Policies, rt.cfg.MaxSteps, rt.Logger)
}

// Close drains the event dispatcher and releases the Redis connection.
func (rt *Runtime) Close() error {
	rt.Dispatcher.Close()
	if rt.redis != nil {
		return rt.redis.Close()
	}
	return nil
}

// NewLogger builds a zap logger from the log configuration.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("agentcore: bad log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
