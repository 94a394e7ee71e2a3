package policy

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/circuitbreaker"
)

// Registry holds one ErrorPolicy per node name plus the breakers those
// policies declare. It is constructed once per process, shared read-mostly,
// and mutated only under its lock.
type Registry struct {
	policies map[string]ErrorPolicy
	breakers *circuitbreaker.Registry
	onChange circuitbreaker.StateChangeFunc
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewRegistry creates a policy registry. onChange, when non-nil, observes
// every breaker transition (wired to the metrics collector by the caller).
func NewRegistry(onChange circuitbreaker.StateChangeFunc, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		policies: make(map[string]ErrorPolicy),
		breakers: circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(), onChange, logger),
		onChange: onChange,
		logger:   logger.With(zap.String("component", "policy_registry")),
	}
}

// Get returns the policy for node, falling back to Default() when the node
// was never registered.
func (r *Registry) Get(node string) ErrorPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.policies[node]; ok {
		return p
	}
	return Default()
}

// Set installs (or replaces) the policy for node. If the policy declares a
// circuit breaker, the node's breaker is (re)initialized with that config;
// an existing breaker's accumulated state is discarded.
func (r *Registry) Set(node string, p ErrorPolicy) {
	p.Retry = p.Retry.Normalize()
	if !p.Fallback.Valid() {
		p.Fallback = FallbackFail
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies[node] = p
	if p.Breaker != nil {
		r.breakers.Put(node, circuitbreaker.New(node, *p.Breaker, r.onChange, r.logger))
	}

	r.logger.Info("error policy set",
		zap.String("node", node),
		zap.Int("max_retries", p.Retry.MaxRetries),
		zap.Duration("timeout", p.Timeout),
		zap.Bool("circuit_breaker", p.Breaker != nil),
		zap.String("fallback", string(p.Fallback)))
}

// Breaker returns the circuit breaker for node, nil when the node's policy
// declares none.
func (r *Registry) Breaker(node string) *circuitbreaker.Breaker {
	r.mu.RLock()
	p, registered := r.policies[node]
	r.mu.RUnlock()

	if !registered || p.Breaker == nil {
		return nil
	}
	return r.breakers.Get(node)
}

// BreakerStates exposes the state of all registered breakers.
func (r *Registry) BreakerStates() map[string]circuitbreaker.State {
	return r.breakers.GetAllStates()
}
