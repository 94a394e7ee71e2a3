package wizard

import (
	"context"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/types"
)

// Agent exposes the wizard as a workflow graph node. On a turn with an
// awaiting wizard pending action it feeds the user's raw reply into the
// dialog; otherwise it starts a new dialog from the classifier's intent
// hints in agent_output_meta.
type Agent struct {
	wizard *Wizard
}

// NewAgent creates the wizard graph node.
func NewAgent(logger *zap.Logger) *Agent {
	return &Agent{wizard: New(logger)}
}

// Name implements executor.Agent.
func (a *Agent) Name() string { return Owner }

// Run implements executor.Agent.
func (a *Agent) Run(_ context.Context, state types.State) (types.State, error) {
	if types.HasAwaitingPendingAction(state) && types.PendingActionOwner(state) == Owner {
		a.wizard.HandleReply(state, state.UserInput())
		return state, nil
	}

	operation := state.MetaString("intent_operation")
	collection := state.MetaString("intent_collection")
	if collection == "" {
		// Nothing to guide; leave a usable answer instead of failing.
		state[types.KeyAnswer] = "Which collection would you like to work with?"
		state.AgentMeta()["prompt_issued"] = true
		return state, nil
	}
	if operation == "" {
		operation = "read"
	}

	a.wizard.Begin(state, operation, collection, collection, nil)
	return state, nil
}

var _ executor.Agent = (*Agent)(nil)
