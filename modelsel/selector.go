// Package modelsel resolves the model identifier an agent should run
// with. The selector itself is an external collaborator; this package
// bounds it with a call-rate limit and a timeout so the workflow never
// blocks indefinitely on model selection, and degrades to a default
// identifier whenever the selector cannot answer.
package modelsel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/ratelimit"
)

// Operation is the rate-limit bucket the resolver draws from.
const Operation = "model_select"

// Selector looks up the model identifier for an agent name. An empty
// identifier with a nil error means the selector has no opinion.
type Selector interface {
	Select(ctx context.Context, agentName string) (string, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(ctx context.Context, agentName string) (string, error)

// Select implements Selector.
func (f SelectorFunc) Select(ctx context.Context, agentName string) (string, error) {
	return f(ctx, agentName)
}

// StaticSelector serves model identifiers from a fixed table.
type StaticSelector struct {
	Models map[string]string
}

// Select implements Selector. An agent missing from the table yields an
// empty identifier.
func (s *StaticSelector) Select(_ context.Context, agentName string) (string, error) {
	return s.Models[agentName], nil
}

// Resolver wraps a Selector with rate limiting, a per-call timeout and a
// default model identifier.
type Resolver struct {
	selector     Selector
	limiter      *ratelimit.Registry
	defaultModel string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewResolver builds a resolver. selector may be nil, in which case every
// lookup resolves to defaultModel. A non-positive timeout defaults to two
// seconds.
func NewResolver(selector Selector, limiter *ratelimit.Registry, defaultModel string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		selector:     selector,
		limiter:      limiter,
		defaultModel: defaultModel,
		timeout:      timeout,
		logger:       logger.With(zap.String("component", "model_resolver")),
	}
}

// Resolve returns the model identifier for an agent. It never fails:
// rate-limit refusals, selector errors, timeouts and empty answers all
// degrade to the default model.
func (r *Resolver) Resolve(ctx context.Context, agentName string) string {
	if r.selector == nil {
		return r.defaultModel
	}

	if r.limiter != nil && !r.limiter.Consume(Operation, 1) {
		r.logger.Warn("model selection rate limited, using default",
			zap.String("agent", agentName),
			zap.String("model", r.defaultModel))
		return r.defaultModel
	}

	selectCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type answer struct {
		model string
		err   error
	}
	done := make(chan answer, 1)
	go func() {
		model, err := r.selector.Select(selectCtx, agentName)
		done <- answer{model: model, err: err}
	}()

	select {
	case <-selectCtx.Done():
		r.logger.Warn("model selection timed out, using default",
			zap.String("agent", agentName),
			zap.Duration("timeout", r.timeout))
		return r.defaultModel

	case a := <-done:
		if a.err != nil {
			r.logger.Warn("model selection failed, using default",
				zap.String("agent", agentName),
				zap.Error(a.err))
			return r.defaultModel
		}
		if a.model == "" {
			return r.defaultModel
		}
		return a.model
	}
}
