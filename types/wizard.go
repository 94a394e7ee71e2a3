package types

import "fmt"

// Wizard dialog phases. The wizard is terminal when its state is cleared
// from the execution state entirely.
const (
	WizardConfirmTable   = "confirm_table"
	WizardCollectDetails = "collect_details"
)

// WizardState is the accumulated state of the guided CRUD dialog. It lives
// under KeyWizard while the dialog is in flight and is removed on
// completion or cancellation.
type WizardState struct {
	Collection    string         `json:"collection"`
	Operation     string         `json:"operation"`
	PendingAction string         `json:"pending_action"`
	TableName     string         `json:"table_name"`
	EntityMeta    map[string]any `json:"entity_meta,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// WizardStateOf returns the wizard state stored in state, nil if absent.
func WizardStateOf(s State) *WizardState {
	w, _ := s[KeyWizard].(*WizardState)
	return w
}

// SetWizardState stores the wizard state.
func SetWizardState(s State, w *WizardState) {
	s[KeyWizard] = w
}

// ClearWizardState ends the dialog (terminal). The key is overwritten
// with a nil wizard rather than deleted so that the clear survives the
// envelope's merge, which only propagates keys present in the update.
func ClearWizardState(s State) {
	s[KeyWizard] = (*WizardState)(nil)
}

// WizardResultKey is the deterministic key under which a completed wizard
// stores its result payload, derived from collection and operation.
func WizardResultKey(collection, operation string) string {
	return fmt.Sprintf("wizard_result:%s:%s", collection, operation)
}

// IsWriteOperation reports whether op mutates data (create/update/delete).
func IsWriteOperation(op string) bool {
	switch op {
	case "create", "update", "delete":
		return true
	}
	return false
}
