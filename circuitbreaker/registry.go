package circuitbreaker

import (
	"sync"

	"go.uber.org/zap"
)

// Registry manages one breaker per node name. Breakers are shared across
// concurrent workflow runs and created lazily.
type Registry struct {
	breakers map[string]*Breaker
	config   Config
	onChange StateChangeFunc
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewRegistry creates a breaker registry with the given default config.
func NewRegistry(config Config, onChange StateChangeFunc, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   config,
		onChange: onChange,
		logger:   logger,
	}
}

// GetOrCreate returns the breaker for node, creating it with the registry
// default config on first use.
func (r *Registry) GetOrCreate(node string) *Breaker {
	r.mu.RLock()
	if b, ok := r.breakers[node]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[node]; ok {
		return b
	}

	b := New(node, r.config, r.onChange, r.logger)
	r.breakers[node] = b
	return b
}

// Put installs a breaker for node, replacing any previous one. Used when a
// node's policy declares its own breaker configuration.
func (r *Registry) Put(node string, b *Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[node] = b
}

// Get returns the breaker for node, nil if none exists.
func (r *Registry) Get(node string) *Breaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[node]
}

// GetAllStates returns the current state of every registered breaker.
func (r *Registry) GetAllStates() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for node, b := range r.breakers {
		states[node] = b.GetState()
	}
	return states
}

// ResetAll resets every registered breaker to closed.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
