// Package wizard implements the guided three-turn CRUD dialog built on the
// pending-action protocol: confirm the target table, collect free-form
// details, finish. The dialog can be cancelled at any turn.
package wizard

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eduflow/agentcore/types"
)

// Owner is the pending-action owner tag of the wizard. Routers outside the
// wizard's domain must not block on actions carrying this tag.
const Owner = "crud_wizard"

// cancelTokens end the dialog at any turn.
var cancelTokens = map[string]struct{}{
	"cancel":     {},
	"stop":       {},
	"abort":      {},
	"quit":       {},
	"exit":       {},
	"nevermind":  {},
	"never mind": {},
}

// affirmTokens accept the proposed table name on the confirm turn.
var affirmTokens = map[string]struct{}{
	"yes":     {},
	"y":       {},
	"ok":      {},
	"okay":    {},
	"sure":    {},
	"yep":     {},
	"yeah":    {},
	"confirm": {},
	"correct": {},
}

// Wizard drives the dialog over the shared execution state.
type Wizard struct {
	logger *zap.Logger
}

// New creates a wizard.
func New(logger *zap.Logger) *Wizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{logger: logger.With(zap.String("component", "crud_wizard"))}
}

// Begin starts the dialog for one collection/operation pair, raises the
// pending action and emits the confirm-table prompt in the same state
// mutation step.
func (w *Wizard) Begin(state types.State, operation, collection, proposedTable string, entityMeta map[string]any) string {
	if proposedTable == "" {
		proposedTable = collection
	}
	ws := &types.WizardState{
		Collection:    collection,
		Operation:     operation,
		PendingAction: types.WizardConfirmTable,
		TableName:     proposedTable,
		EntityMeta:    entityMeta,
	}
	types.SetWizardState(state, ws)

	prompt := fmt.Sprintf(
		"I will run a %s on the %q table for collection %q. Reply yes to continue, type another table name to change it, or cancel to stop.",
		operation, proposedTable, collection)
	w.emitPrompt(state, prompt, types.WizardConfirmTable)

	w.logger.Info("wizard started",
		zap.String("collection", collection),
		zap.String("operation", operation))
	return prompt
}

// HandleReply advances the dialog with the user's raw reply. done reports
// that the dialog reached a terminal state (completed, cancelled, or reset
// after a protocol violation).
func (w *Wizard) HandleReply(state types.State, reply string) (prompt string, done bool) {
	normalized := strings.ToLower(strings.TrimSpace(reply))

	ws := types.WizardStateOf(state)
	if ws == nil {
		return w.recoverProtocolViolation(state, "reply received with no wizard state")
	}

	if _, isCancel := cancelTokens[normalized]; isCancel {
		return w.cancel(state, ws), true
	}

	switch ws.PendingAction {
	case types.WizardConfirmTable:
		return w.confirmTable(state, ws, reply, normalized), false

	case types.WizardCollectDetails:
		return w.collectDetails(state, ws, reply), true

	default:
		return w.recoverProtocolViolation(state,
			fmt.Sprintf("unknown wizard pending action %q", ws.PendingAction))
	}
}

// confirmTable handles the first turn: an affirmation keeps the proposed
// table name, any other non-empty reply overrides it. Either way the
// dialog moves on to detail collection and re-raises the pending action.
func (w *Wizard) confirmTable(state types.State, ws *types.WizardState, reply, normalized string) string {
	if _, affirmed := affirmTokens[normalized]; !affirmed && normalized != "" {
		ws.TableName = strings.TrimSpace(reply)
	}
	ws.PendingAction = types.WizardCollectDetails
	types.SetWizardState(state, ws)

	prompt := w.detailsPrompt(ws)
	w.emitPrompt(state, prompt, types.WizardCollectDetails)
	return prompt
}

// collectDetails handles the second turn: the raw reply becomes the detail
// text of the result payload, stored under the deterministic result key,
// and the wizard clears itself. No further pending action is raised.
func (w *Wizard) collectDetails(state types.State, ws *types.WizardState, reply string) string {
	payload := map[string]any{
		"operation":    ws.Operation,
		"collection":   ws.Collection,
		"table_name":   ws.TableName,
		"entity_meta":  ws.EntityMeta,
		"details_text": strings.TrimSpace(reply),
	}
	state[types.WizardResultKey(ws.Collection, ws.Operation)] = payload

	types.ClearWizardState(state)
	types.ClearPendingAction(state, Owner)

	msg := fmt.Sprintf("Recorded the %s request for table %q.", ws.Operation, ws.TableName)
	state[types.KeyAnswer] = msg

	w.logger.Info("wizard completed",
		zap.String("collection", ws.Collection),
		zap.String("operation", ws.Operation),
		zap.String("table", ws.TableName))
	return msg
}

// cancel clears the wizard regardless of which turn it was in and writes a
// cancellation acknowledgement into the answer slot.
func (w *Wizard) cancel(state types.State, ws *types.WizardState) string {
	types.ClearWizardState(state)
	types.ClearPendingAction(state, Owner)
	state.AgentMeta()["wizard_bailed"] = true

	msg := fmt.Sprintf("Okay, I cancelled the %s request. Nothing was changed.", ws.Operation)
	state[types.KeyAnswer] = msg

	w.logger.Info("wizard cancelled",
		zap.String("collection", ws.Collection),
		zap.String("operation", ws.Operation),
		zap.String("turn", ws.PendingAction))
	return msg
}

// recoverProtocolViolation resets the wizard to a clean slate and returns a
// plain-language apology. This is a recoverable, user-visible failure and
// never a crash.
func (w *Wizard) recoverProtocolViolation(state types.State, detail string) (string, bool) {
	violation := types.NewProtocolError("crud_wizard", detail)
	w.logger.Error("wizard protocol violation", zap.Error(violation))

	types.ClearWizardState(state)
	types.ClearPendingAction(state, Owner)

	msg := "Sorry, I lost track of that request. Could you start over?"
	state[types.KeyAnswer] = msg
	return msg, true
}

// detailsPrompt returns the operation-specific follow-up for turn two.
func (w *Wizard) detailsPrompt(ws *types.WizardState) string {
	switch ws.Operation {
	case "read":
		return fmt.Sprintf("What would you like to look up in %q? Describe any filters.", ws.TableName)
	case "create":
		return fmt.Sprintf("What values should the new %q record contain?", ws.TableName)
	case "update":
		return fmt.Sprintf("Which %q records should change, and to what values?", ws.TableName)
	case "delete":
		return fmt.Sprintf("Which %q records should be removed? Please be specific.", ws.TableName)
	default:
		return fmt.Sprintf("Tell me more about what you need from %q.", ws.TableName)
	}
}

// emitPrompt writes the user-facing prompt and raises the pending action in
// the same mutation step, per the producer contract.
func (w *Wizard) emitPrompt(state types.State, prompt, actionType string) {
	state[types.KeyAnswer] = prompt
	state.AgentMeta()["prompt_issued"] = true
	types.SetPendingAction(state, Owner, actionType)
}
