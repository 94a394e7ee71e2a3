package config

import (
	"time"

	"github.com/eduflow/agentcore/circuitbreaker"
	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/ratelimit"
	"github.com/eduflow/agentcore/retry"
)

// ApplyPolicies installs every configured node policy into reg.
func (c *Config) ApplyPolicies(reg *policy.Registry) {
	for node, pc := range c.Policies {
		reg.Set(node, pc.ToPolicy())
	}
}

// ApplyLimits installs every configured rate-limit rule into reg.
func (c *Config) ApplyLimits(reg *ratelimit.Registry) {
	for op, rule := range c.Limits {
		reg.SetRule(op, ratelimit.Rule{
			Capacity:   rule.Capacity,
			RefillRate: rule.RefillRate,
		})
	}
}

// ToPolicy converts the YAML form into a runtime ErrorPolicy. Zero-valued
// retry fields inherit the defaults through Normalize; an unknown
// fallback string degrades to fail inside the registry.
func (pc PolicyConfig) ToPolicy() policy.ErrorPolicy {
	p := policy.ErrorPolicy{
		Retry: retry.Policy{
			MaxRetries:  pc.MaxRetries,
			BaseDelay:   pc.BaseDelay,
			MaxDelay:    pc.MaxDelay,
			BackoffBase: pc.BackoffBase,
			Jitter:      pc.Jitter,
		},
		Timeout:         pc.Timeout,
		Fallback:        policy.FallbackStrategy(pc.Fallback),
		SubstituteAgent: pc.SubstituteAgent,
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	if pc.Fallback == "" {
		p.Fallback = policy.FallbackFail
	}
	if pc.CircuitBreaker != nil {
		p.Breaker = &circuitbreaker.Config{
			FailureThreshold: pc.CircuitBreaker.FailureThreshold,
			RecoveryTimeout:  pc.CircuitBreaker.RecoveryTimeout,
			SuccessThreshold: pc.CircuitBreaker.SuccessThreshold,
			HalfOpenMaxCalls: pc.CircuitBreaker.HalfOpenMaxCalls,
		}
	}
	return p
}
