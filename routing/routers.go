package routing

import (
	"go.uber.org/zap"

	"github.com/eduflow/agentcore/types"
)

// AfterDataQuery builds the router placed after a data-query node.
//
// Precedence, highest first: an awaiting pending action owned by owner, a
// prompt issued this turn, or an explicit wizard bail-out all end the run
// so the caller can surface the prompt or acknowledgement already written.
// A wizard carrying a write operation routes to the narration node for a
// human-readable summary before anything is applied. An answer already in
// state ends the run rather than re-answering. Everything else falls
// through to the answer node.
func AfterDataQuery(owner, narrateNode, answerNode string, logger *zap.Logger) *Router {
	decide := func(state types.State) string {
		if types.HasAwaitingPendingAction(state) && types.PendingActionOwner(state) == owner {
			return Terminal
		}
		if state.MetaBool("prompt_issued") {
			return Terminal
		}
		if state.MetaBool("wizard_bailed") {
			return Terminal
		}
		if ws := types.WizardStateOf(state); ws != nil && types.IsWriteOperation(ws.Operation) {
			return narrateNode
		}
		if state.Answer() != "" {
			return Terminal
		}
		return answerNode
	}
	return NewRouter("after_data_query",
		[]string{narrateNode, answerNode}, answerNode, decide, logger)
}

// AfterClassify builds the router placed after the intent classifier. An
// awaiting wizard-owned pending action or a classified collection both
// route to the wizard node; anything else goes straight to the answer
// node.
func AfterClassify(wizardOwner, wizardNode, answerNode string, logger *zap.Logger) *Router {
	decide := func(state types.State) string {
		if types.HasAwaitingPendingAction(state) && types.PendingActionOwner(state) == wizardOwner {
			return wizardNode
		}
		if state.MetaString("intent_collection") != "" {
			return wizardNode
		}
		return answerNode
	}
	return NewRouter("after_classify",
		[]string{wizardNode, answerNode}, answerNode, decide, logger)
}

// AfterWizard builds the router placed after the wizard node. A dialog
// still awaiting a reply, or one that was cancelled, ends the run; a
// completed dialog continues to the data-query node.
func AfterWizard(owner, queryNode string, logger *zap.Logger) *Router {
	decide := func(state types.State) string {
		if types.HasAwaitingPendingAction(state) && types.PendingActionOwner(state) == owner {
			return Terminal
		}
		if state.MetaBool("wizard_bailed") {
			return Terminal
		}
		if types.WizardStateOf(state) == nil {
			return queryNode
		}
		return Terminal
	}
	return NewRouter("after_wizard", []string{queryNode}, Terminal, decide, logger)
}
