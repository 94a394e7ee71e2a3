package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduflow/agentcore/classifier"
	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/policy"
	"github.com/eduflow/agentcore/retry"
	"github.com/eduflow/agentcore/routing"
	"github.com/eduflow/agentcore/testutil"
	"github.com/eduflow/agentcore/types"
	"github.com/eduflow/agentcore/wizard"
)

func fastPolicy(maxRetries int, fallback policy.FallbackStrategy) policy.ErrorPolicy {
	return policy.ErrorPolicy{
		Retry: retry.Policy{
			MaxRetries:  maxRetries,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			BackoffBase: 2,
		},
		Timeout:  time.Second,
		Fallback: fallback,
	}
}

func newTestDriver(t *testing.T, g *Graph, reg *policy.Registry, maxSteps int) *Driver {
	t.Helper()
	env := executor.NewEnvelope(reg, nil, nil, zap.NewNop())
	d, err := NewDriver(g, env, reg, maxSteps, zap.NewNop())
	require.NoError(t, err)
	return d
}

func stampAgent(name, key string, value any) executor.Agent {
	return executor.NewAgentFunc(name, func(_ context.Context, s types.State) (types.State, error) {
		s[key] = value
		return s, nil
	})
}

func failingAgent(name string) executor.Agent {
	return executor.NewAgentFunc(name, func(_ context.Context, _ types.State) (types.State, error) {
		return nil, errors.New(name + " failed")
	})
}

func TestDriver_LinearWalk(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	g := New("first").
		AddNode(stampAgent("first", "a", 1)).
		AddNode(stampAgent("second", "b", 2))
	g.SetRouter("first", routing.NewRouter("after_first", []string{"second"}, "second",
		func(types.State) string { return "second" }, zap.NewNop()))

	d := newTestDriver(t, g, reg, 0)
	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	assert.Equal(t, 1, out["a"])
	assert.Equal(t, 2, out["b"], "second node reached and merged")
}

func TestDriver_NodeWithoutRouterIsTerminal(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	g := New("only").AddNode(stampAgent("only", "done", true))

	d := newTestDriver(t, g, reg, 0)
	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)
	assert.Equal(t, true, out["done"])
}

func TestDriver_StepBudgetCutsLoops(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	g := New("loop").AddNode(stampAgent("loop", "x", 1))
	g.SetRouter("loop", routing.NewRouter("self", []string{"loop"}, "loop",
		func(types.State) string { return "loop" }, zap.NewNop()))

	d := newTestDriver(t, g, reg, 5)
	out, err := d.Run(context.Background(), types.NewState())

	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorContains(t, err, "step budget")
}

func TestDriver_ValidateRejectsMissingEntry(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	env := executor.NewEnvelope(reg, nil, nil, zap.NewNop())

	_, err := NewDriver(New("ghost"), env, reg, 0, zap.NewNop())
	require.Error(t, err)
	assert.ErrorContains(t, err, "entry node")
}

func TestDriver_FallbackFailPropagates(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("bad", fastPolicy(0, policy.FallbackFail))

	g := New("bad").AddNode(failingAgent("bad"))
	d := newTestDriver(t, g, reg, 0)

	out, err := d.Run(context.Background(), types.NewState())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, types.KindExecution, types.KindOf(err))
}

func TestDriver_FallbackSkipNodeContinues(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("bad", fastPolicy(0, policy.FallbackSkipNode))

	g := New("bad").
		AddNode(failingAgent("bad")).
		AddNode(stampAgent("next", "reached", true))
	g.SetRouter("bad", routing.NewRouter("after_bad", []string{"next"}, "next",
		func(types.State) string { return "next" }, zap.NewNop()))

	d := newTestDriver(t, g, reg, 0)
	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	assert.Equal(t, true, out["reached"])
	meta := out[types.KeyExecutionMeta].(map[string]any)
	assert.Equal(t, true, meta["degraded"])
	assert.Contains(t, meta["fallbacks"], "bad:skipped")
}

func TestDriver_FallbackUsesCachedResult(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("flaky", fastPolicy(0, policy.FallbackUseCachedResult))

	healthy := true
	agent := executor.NewAgentFunc("flaky", func(_ context.Context, s types.State) (types.State, error) {
		if !healthy {
			return nil, errors.New("backend down")
		}
		s["lookup"] = "fresh"
		return s, nil
	})

	g := New("flaky").AddNode(agent)
	d := newTestDriver(t, g, reg, 0)

	// First run fills the cache.
	_, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	healthy = false
	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	assert.Equal(t, "fresh", out["lookup"], "cached contribution replayed")
	meta := out[types.KeyExecutionMeta].(map[string]any)
	assert.Contains(t, meta["fallbacks"], "flaky:cached_result")
}

func TestDriver_CachedResultKeepsRunIdentity(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("flaky", fastPolicy(0, policy.FallbackUseCachedResult))

	healthy := true
	agent := executor.NewAgentFunc("flaky", func(_ context.Context, s types.State) (types.State, error) {
		if !healthy {
			return nil, errors.New("down")
		}
		return s, nil
	})

	g := New("flaky").AddNode(agent)
	d := newTestDriver(t, g, reg, 0)

	_, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	healthy = false
	second := types.NewState()
	wantID := second.WorkflowID()
	out, err := d.Run(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, wantID, out.WorkflowID(), "cache must not overwrite run identity")
}

func TestDriver_FallbackWithoutCacheDegradesToSkip(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("bad", fastPolicy(0, policy.FallbackUseCachedResult))

	g := New("bad").AddNode(failingAgent("bad"))
	d := newTestDriver(t, g, reg, 0)

	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)
	meta := out[types.KeyExecutionMeta].(map[string]any)
	assert.Contains(t, meta["fallbacks"], "bad:skipped_no_cache")
}

func TestDriver_FallbackPartialResultKeepsState(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("enrich", fastPolicy(0, policy.FallbackPartialResult))

	g := New("base").
		AddNode(stampAgent("base", "base_data", "present")).
		AddNode(failingAgent("enrich"))
	g.SetRouter("base", routing.NewRouter("after_base", []string{"enrich"}, "enrich",
		func(types.State) string { return "enrich" }, zap.NewNop()))

	d := newTestDriver(t, g, reg, 0)
	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	assert.Equal(t, "present", out["base_data"], "earlier contributions survive")
	meta := out[types.KeyExecutionMeta].(map[string]any)
	assert.Contains(t, meta["fallbacks"], "enrich:partial_result")
}

func TestDriver_FallbackSubstituteAgent(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	p := fastPolicy(0, policy.FallbackSubstituteAgent)
	p.SubstituteAgent = "backup"
	reg.Set("primary", p)

	g := New("primary").
		AddNode(failingAgent("primary")).
		AddNode(stampAgent("backup", "source", "backup"))

	d := newTestDriver(t, g, reg, 0)
	out, err := d.Run(context.Background(), types.NewState())
	require.NoError(t, err)

	assert.Equal(t, "backup", out["source"])
	meta := out[types.KeyExecutionMeta].(map[string]any)
	assert.Contains(t, meta["fallbacks"], "primary:substituted:backup")
}

func TestDriver_SubstituteMissingPropagatesOriginal(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	p := fastPolicy(0, policy.FallbackSubstituteAgent)
	p.SubstituteAgent = "nowhere"
	reg.Set("primary", p)

	g := New("primary").AddNode(failingAgent("primary"))
	d := newTestDriver(t, g, reg, 0)

	_, err := d.Run(context.Background(), types.NewState())
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary failed")
}

func TestDriver_RetriedNodeRecoversInPlace(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	reg.Set("flaky", fastPolicy(2, policy.FallbackFail))

	agent := &testutil.FlakyAgent{
		AgentName:             "flaky",
		FailuresBeforeSuccess: 2,
		OnSuccessKey:          "recovered",
		Err:                   errors.New("transient"),
	}

	g := New("flaky").AddNode(agent)
	d := newTestDriver(t, g, reg, 0)

	out, err := d.Run(testutil.TestContext(t), types.NewState())
	require.NoError(t, err)
	assert.Equal(t, true, out["recovered"])
	assert.Equal(t, 3, agent.Calls())
}

func TestDriver_TimedOutNodeSkipped(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	p := fastPolicy(0, policy.FallbackSkipNode)
	p.Timeout = 20 * time.Millisecond
	reg.Set("slow", p)

	g := New("slow").
		AddNode(&testutil.SlowAgent{AgentName: "slow", Delay: 5 * time.Second}).
		AddNode(stampAgent("next", "reached", true))
	g.SetRouter("slow", routing.NewRouter("after_slow", []string{"next"}, "next",
		func(types.State) string { return "next" }, zap.NewNop()))

	d := newTestDriver(t, g, reg, 0)
	out, err := d.Run(testutil.TestContext(t), types.NewState())
	require.NoError(t, err)
	assert.Equal(t, true, out["reached"])
}

// TestDriver_WizardConversation walks the full guided-dialog workflow:
// classify, pause for confirmation, pause for details, then query.
func TestDriver_WizardConversation(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	logger := zap.NewNop()

	query := executor.NewAgentFunc("data_query", func(_ context.Context, s types.State) (types.State, error) {
		payload, _ := s[types.WizardResultKey("students", "read")].(map[string]any)
		require.NotNil(t, payload)
		s[types.KeyAnswer] = "Found 12 students matching " + payload["details_text"].(string)
		return s, nil
	})

	g := New("intent_classifier").
		AddNode(classifier.NewAgent(nil, logger)).
		AddNode(wizard.NewAgent(logger)).
		AddNode(query)
	g.SetRouter("intent_classifier",
		routing.AfterClassify(wizard.Owner, "crud_wizard", "data_query", logger))
	g.SetRouter("crud_wizard",
		routing.AfterWizard(wizard.Owner, "data_query", logger))

	d := newTestDriver(t, g, reg, 0)
	state := types.NewState()

	// Turn 1: intent recognized, wizard asks for table confirmation.
	state[types.KeyUserInput] = "query students"
	out, err := d.Run(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, types.HasAwaitingPendingAction(out))
	assert.Equal(t, wizard.Owner, types.PendingActionOwner(out))
	assert.Contains(t, out.Answer(), "students")

	// Turn 2: confirmation accepted, wizard asks for details.
	out[types.KeyUserInput] = "yes"
	out, err = d.Run(context.Background(), out)
	require.NoError(t, err)
	assert.True(t, types.HasAwaitingPendingAction(out))
	assert.Equal(t, types.WizardCollectDetails, types.PendingActionType(out))

	// Turn 3: details collected, dialog clears and the query node answers.
	out[types.KeyUserInput] = "grade = 5"
	out, err = d.Run(context.Background(), out)
	require.NoError(t, err)

	assert.Nil(t, types.WizardStateOf(out))
	assert.False(t, types.HasAwaitingPendingAction(out))
	assert.Equal(t, "Found 12 students matching grade = 5", out.Answer())
}

// TestDriver_WizardCancelMidDialog cancels on the second turn.
func TestDriver_WizardCancelMidDialog(t *testing.T) {
	reg := policy.NewRegistry(nil, zap.NewNop())
	logger := zap.NewNop()

	g := New("intent_classifier").
		AddNode(classifier.NewAgent(nil, logger)).
		AddNode(wizard.NewAgent(logger)).
		AddNode(stampAgent("data_query", "queried", true))
	g.SetRouter("intent_classifier",
		routing.AfterClassify(wizard.Owner, "crud_wizard", "data_query", logger))
	g.SetRouter("crud_wizard",
		routing.AfterWizard(wizard.Owner, "data_query", logger))

	d := newTestDriver(t, g, reg, 0)
	state := types.NewState()

	state[types.KeyUserInput] = "delete teachers"
	out, err := d.Run(context.Background(), state)
	require.NoError(t, err)
	require.True(t, types.HasAwaitingPendingAction(out))

	out[types.KeyUserInput] = "cancel"
	out, err = d.Run(context.Background(), out)
	require.NoError(t, err)

	assert.Nil(t, types.WizardStateOf(out))
	assert.False(t, types.HasAwaitingPendingAction(out))
	assert.Contains(t, out.Answer(), "cancelled")
	assert.NotContains(t, out, "queried", "cancelled dialog must not reach the query node")
}
