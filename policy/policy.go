// Package policy maps node names to resilience policies and owns the
// circuit breaker of every node whose policy declares one.
package policy

import (
	"time"

	"github.com/eduflow/agentcore/circuitbreaker"
	"github.com/eduflow/agentcore/retry"
)

// FallbackStrategy tells the graph driver what to do once a node's retries
// are exhausted. Selection is configuration, never hardcoded per node.
type FallbackStrategy string

const (
	// FallbackFail propagates the node error and aborts the run.
	FallbackFail FallbackStrategy = "fail"
	// FallbackSkipNode drops the node's contribution and routes onward.
	FallbackSkipNode FallbackStrategy = "skip_node"
	// FallbackUseCachedResult proceeds with the last successful state of
	// this node, if any.
	FallbackUseCachedResult FallbackStrategy = "use_cached_result"
	// FallbackPartialResult keeps whatever the node managed to merge and
	// marks the run degraded.
	FallbackPartialResult FallbackStrategy = "partial_result"
	// FallbackSubstituteAgent runs a configured stand-in agent once.
	FallbackSubstituteAgent FallbackStrategy = "substitute_agent"
)

// Valid reports whether s is a known strategy.
func (s FallbackStrategy) Valid() bool {
	switch s {
	case FallbackFail, FallbackSkipNode, FallbackUseCachedResult,
		FallbackPartialResult, FallbackSubstituteAgent:
		return true
	}
	return false
}

// ErrorPolicy is the immutable resilience configuration of one node.
// Guards compose in fixed order, outermost to innermost:
// timeout → circuit breaker → retry. A slow call is first cut off by the
// timeout, the breaker counts those failures, and the retry loop wraps
// both.
type ErrorPolicy struct {
	Retry   retry.Policy
	Timeout time.Duration
	// Breaker is nil when the node declares no circuit breaker.
	Breaker  *circuitbreaker.Config
	Fallback FallbackStrategy
	// SubstituteAgent names the stand-in for FallbackSubstituteAgent.
	SubstituteAgent string
}

// Default returns the fallback policy for unregistered nodes: 3 retries,
// 30 second timeout, no breaker, propagate on exhaustion.
func Default() ErrorPolicy {
	return ErrorPolicy{
		Retry:    retry.DefaultPolicy(),
		Timeout:  30 * time.Second,
		Fallback: FallbackFail,
	}
}
