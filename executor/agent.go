package executor

import (
	"context"

	"github.com/eduflow/agentcore/types"
)

// Agent is one unit of work in the workflow graph. Run receives a snapshot
// of the shared execution state and returns the state it wants merged back;
// it must respect ctx cancellation. Failures should be reported as
// *types.Error (timeout / recoverable / fatal); anything else is wrapped as
// an execution error by the envelope.
type Agent interface {
	// Name returns the node name the agent executes under.
	Name() string
	// Run executes the unit of work.
	Run(ctx context.Context, state types.State) (types.State, error)
}

// AgentFunc adapts a function to the Agent interface.
type AgentFunc struct {
	name string
	fn   func(ctx context.Context, state types.State) (types.State, error)
}

// NewAgentFunc creates a function-backed agent.
func NewAgentFunc(name string, fn func(ctx context.Context, state types.State) (types.State, error)) *AgentFunc {
	return &AgentFunc{name: name, fn: fn}
}

// Name implements Agent.
func (a *AgentFunc) Name() string { return a.name }

// Run implements Agent.
func (a *AgentFunc) Run(ctx context.Context, state types.State) (types.State, error) {
	return a.fn(ctx, state)
}
