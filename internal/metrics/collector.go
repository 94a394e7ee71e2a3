// Package metrics provides internal metrics collection for the runtime.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/eduflow/agentcore/circuitbreaker"
)

// Collector owns the prometheus instruments of the runtime.
type Collector struct {
	agentExecutionsTotal   *prometheus.CounterVec
	agentExecutionDuration *prometheus.HistogramVec
	agentRetriesTotal      *prometheus.CounterVec
	breakerState           *prometheus.GaugeVec
	rateLimitRejections    *prometheus.CounterVec
	eventsDroppedTotal     prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a collector registered with reg. A nil reg falls
// back to the default prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.agentExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Total number of agent envelope executions",
		},
		[]string{"agent", "status"},
	)

	c.agentExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_execution_duration_seconds",
			Help:      "Agent execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent"},
	)

	c.agentRetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_retries_total",
			Help:      "Total number of retry attempts per agent",
		},
		[]string{"agent"},
	)

	c.breakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per node (0=closed, 1=open, 2=half_open)",
		},
		[]string{"node"},
	)

	c.rateLimitRejections = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of refused token bucket consumptions",
		},
		[]string{"operation"},
	)

	c.eventsDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Lifecycle notifications dropped due to a full queue",
		},
	)

	return c
}

// RecordExecution records one finished envelope call.
func (c *Collector) RecordExecution(agent string, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.agentExecutionsTotal.WithLabelValues(agent, status).Inc()
	c.agentExecutionDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// RecordRetry records one retry attempt for agent.
func (c *Collector) RecordRetry(agent string) {
	c.agentRetriesTotal.WithLabelValues(agent).Inc()
}

// SetBreakerState reflects a breaker transition on the state gauge.
func (c *Collector) SetBreakerState(node string, state circuitbreaker.State) {
	c.breakerState.WithLabelValues(node).Set(float64(state))
}

// RecordRateLimitRejection counts a refused bucket consumption.
func (c *Collector) RecordRateLimitRejection(operation string) {
	c.rateLimitRejections.WithLabelValues(operation).Inc()
}

// RecordEventDropped counts a dropped lifecycle notification.
func (c *Collector) RecordEventDropped() {
	c.eventsDroppedTotal.Inc()
}
