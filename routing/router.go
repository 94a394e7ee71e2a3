// Package routing holds the fork-point decision functions of the workflow
// graph. Each router is a pure function over the execution state that picks
// the next node from a statically declared legal set; a computed target
// outside that set is clamped to the router's documented fallback and
// logged, never propagated as an error.
package routing

import (
	"go.uber.org/zap"

	"github.com/eduflow/agentcore/types"
)

// Terminal is the pseudo node id that ends the current run. The graph
// driver stops walking when a router returns it.
const Terminal = "__terminal__"

// DecisionFunc computes the raw next-node id from the execution state. The
// surrounding Router clamps the result to the legal set, so decision
// functions stay free of defensive checks.
type DecisionFunc func(types.State) string

// Router guards one fork point of the graph. It owns the declared legal
// set and the documented fallback for its call site.
type Router struct {
	name     string
	legal    map[string]struct{}
	fallback string
	decide   DecisionFunc
	logger   *zap.Logger
}

// NewRouter builds a router for one fork point. legal is the full set of
// node ids this call site may route to; fallback must be a member and is
// returned whenever the decision function computes a target outside the
// set. Terminal is always legal.
func NewRouter(name string, legal []string, fallback string, decide DecisionFunc, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(legal)+1)
	for _, id := range legal {
		set[id] = struct{}{}
	}
	set[Terminal] = struct{}{}
	if _, ok := set[fallback]; !ok {
		// A router whose fallback is itself illegal is a wiring bug; fail
		// toward stopping the walk rather than looping on a bad id.
		logger.Error("router fallback outside legal set, using terminal",
			zap.String("router", name),
			zap.String("fallback", fallback))
		fallback = Terminal
	}
	return &Router{
		name:     name,
		legal:    set,
		fallback: fallback,
		decide:   decide,
		logger:   logger.With(zap.String("router", name)),
	}
}

// Name returns the router's fork-point name.
func (r *Router) Name() string { return r.name }

// Fallback returns the documented fallback node id.
func (r *Router) Fallback() string { return r.fallback }

// Route runs the decision function and clamps the result to the legal set.
// An out-of-set target logs one invariant-violation record and yields the
// fallback.
func (r *Router) Route(state types.State) string {
	next := r.decide(state)
	if _, ok := r.legal[next]; ok {
		return next
	}
	r.logger.Error("router computed illegal target, clamping to fallback",
		zap.String("computed", next),
		zap.String("fallback", r.fallback))
	return r.fallback
}
