package classifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/types"
)

// Agent exposes the classifier as a graph node. It reads the user's raw
// input and publishes the intent as routing hints in agent_output_meta.
type Agent struct {
	classifier *Classifier
}

// NewAgent creates the classifier graph node.
func NewAgent(model Model, logger *zap.Logger) *Agent {
	return &Agent{classifier: New(model, logger)}
}

// Name implements executor.Agent.
func (a *Agent) Name() string { return "intent_classifier" }

// Run implements executor.Agent.
func (a *Agent) Run(_ context.Context, state types.State) (types.State, error) {
	intent := a.classifier.Classify(state.UserInput())

	meta := state.AgentMeta()
	meta["intent_operation"] = intent.Operation
	meta["intent_collection"] = intent.Collection
	meta["intent_confidence"] = intent.Confidence
	return state, nil
}

var _ executor.Agent = (*Agent)(nil)
