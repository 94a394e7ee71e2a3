package graph

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/routing"
	"github.com/eduflow/agentcore/types"
)

// DefaultMaxSteps bounds one run of the driver. A walk that exceeds it is
// cut off as a wiring bug rather than looping forever.
const DefaultMaxSteps = 32

// Driver executes one workflow graph. It is safe for concurrent runs; the
// per-node result cache is shared across runs and guarded by a lock.
type Driver struct {
	graph    *Graph
	envelope *executor.Envelope
	policies *policy.Registry
	maxSteps int
	logger   *zap.Logger

	// cache holds the last successful state of each node, consumed by the
	// use_cached_result fallback.
	cacheMu sync.Mutex
	cache   map[string]types.State
}

// NewDriver builds a driver over a validated graph. maxSteps <= 0 selects
// DefaultMaxSteps.
func NewDriver(g *Graph, envelope *executor.Envelope, policies *policy.Registry, maxSteps int, logger *zap.Logger) (*Driver, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		graph:    g,
		envelope: envelope,
		policies: policies,
		maxSteps: maxSteps,
		logger:   logger.With(zap.String("component", "graph_driver")),
		cache:    make(map[string]types.State),
	}, nil
}

// Run walks the graph from the entry node until a router returns the
// terminal branch, a node without a router completes, or a node failure
// propagates under the fail strategy. The returned state is the shared
// execution state, also on fallback-degraded runs.
func (d *Driver) Run(ctx context.Context, state types.State) (types.State, error) {
	if state == nil {
		state = types.NewState()
	}
	state.EnsureBookkeeping()

	// These routing hints are scoped to a single turn; stale values from
	// the previous turn must not short-circuit this one.
	meta := state.AgentMeta()
	delete(meta, "prompt_issued")
	delete(meta, "wizard_bailed")

	node := d.graph.Entry()
	for step := 0; step < d.maxSteps; step++ {
		agent := d.graph.Node(node)
		if agent == nil {
			return nil, types.NewExecutionError(node, errors.New("node not registered in graph"))
		}

		out, err := d.envelope.Execute(ctx, agent, state)
		if err != nil {
			cont, fbErr := d.applyFallback(ctx, node, state, err)
			if fbErr != nil {
				return nil, fbErr
			}
			if !cont {
				return state, nil
			}
		} else {
			state = out
			d.storeCache(node, state)
		}

		router := d.graph.Router(node)
		if router == nil {
			return state, nil
		}
		next := router.Route(state)
		if next == routing.Terminal {
			return state, nil
		}
		node = next
	}

	return nil, types.NewExecutionError(node, errors.New("step budget exceeded"))
}

// applyFallback handles an exhausted node according to its configured
// strategy. cont reports whether the walk should continue past the node.
func (d *Driver) applyFallback(ctx context.Context, node string, state types.State, execErr error) (cont bool, err error) {
	pol := d.policies.Get(node)

	d.logger.Warn("node exhausted retries, applying fallback",
		zap.String("node", node),
		zap.String("fallback", string(pol.Fallback)),
		zap.Error(execErr))

	switch pol.Fallback {
	case policy.FallbackSkipNode:
		markDegraded(state, node, "skipped")
		return true, nil

	case policy.FallbackUseCachedResult:
		if cached := d.loadCache(node); cached != nil {
			state.Merge(cached)
			markDegraded(state, node, "cached_result")
			return true, nil
		}
		// Nothing cached yet, degrade to a skip.
		markDegraded(state, node, "skipped_no_cache")
		return true, nil

	case policy.FallbackPartialResult:
		// Keep whatever earlier nodes contributed and route onward.
		markDegraded(state, node, "partial_result")
		return true, nil

	case policy.FallbackSubstituteAgent:
		sub := d.graph.Node(pol.SubstituteAgent)
		if sub == nil {
			d.logger.Error("substitute agent not registered, propagating",
				zap.String("node", node),
				zap.String("substitute", pol.SubstituteAgent))
			return false, execErr
		}
		out, subErr := d.envelope.Execute(ctx, sub, state)
		if subErr != nil {
			// The stand-in failed too; the original error wins.
			return false, execErr
		}
		state.Merge(out)
		markDegraded(state, node, "substituted:"+pol.SubstituteAgent)
		return true, nil

	default: // policy.FallbackFail
		return false, execErr
	}
}

func (d *Driver) storeCache(node string, state types.State) {
	snapshot := state.Clone()
	// The cache outlives the run that filled it; identity keys must not
	// leak into a later run through a cached-result merge.
	delete(snapshot, types.KeyWorkflowID)
	delete(snapshot, types.KeyCorrelationID)
	delete(snapshot, types.KeyExecutionID)

	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.cache[node] = snapshot
}

func (d *Driver) loadCache(node string) types.State {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return d.cache[node]
}

// markDegraded records a fallback application in execution_metadata.
func markDegraded(state types.State, node, reason string) {
	meta, _ := state[types.KeyExecutionMeta].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
		state[types.KeyExecutionMeta] = meta
	}
	meta["degraded"] = true
	applied, _ := meta["fallbacks"].([]string)
	meta["fallbacks"] = append(applied, node+":"+reason)
}
