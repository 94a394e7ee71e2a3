package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/eduflow/agentcore/types"
)

// FlakyAgent fails its first FailuresBeforeSuccess runs, then succeeds by
// setting OnSuccessKey to true. Call counting is atomic so the agent can
// be shared across concurrent runs.
type FlakyAgent struct {
	AgentName             string
	FailuresBeforeSuccess int32
	OnSuccessKey          string
	Err                   error

	calls atomic.Int32
}

// Name implements executor.Agent.
func (a *FlakyAgent) Name() string { return a.AgentName }

// Run implements executor.Agent.
func (a *FlakyAgent) Run(_ context.Context, s types.State) (types.State, error) {
	if a.calls.Add(1) <= a.FailuresBeforeSuccess {
		return nil, a.Err
	}
	if a.OnSuccessKey != "" {
		s[a.OnSuccessKey] = true
	}
	return s, nil
}

// Calls returns how many times the agent ran.
func (a *FlakyAgent) Calls() int { return int(a.calls.Load()) }

// SlowAgent blocks for Delay or until the context is done.
type SlowAgent struct {
	AgentName string
	Delay     time.Duration
}

// Name implements executor.Agent.
func (a *SlowAgent) Name() string { return a.AgentName }

// Run implements executor.Agent.
func (a *SlowAgent) Run(ctx context.Context, s types.State) (types.State, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(a.Delay):
		return s, nil
	}
}
