package types

// PendingAction marks the workflow as paused awaiting a specific external
// reply. Owner and Type tag which component raised it, so only that
// component may interpret the reply.
//
// Active means Awaiting == true. A cleared pending action may legally stay
// in the state with Awaiting == false.
type PendingAction struct {
	Owner    string `json:"owner"`
	Type     string `json:"type"`
	Awaiting bool   `json:"awaiting"`
}

// PendingActionOf returns the pending action stored in state, nil if absent.
func PendingActionOf(s State) *PendingAction {
	pa, _ := s[KeyPendingAction].(*PendingAction)
	return pa
}

// HasAwaitingPendingAction reports whether state carries an active pending
// action. It is false whenever Awaiting is absent or false, even if the
// pending_action key itself is present.
func HasAwaitingPendingAction(s State) bool {
	pa := PendingActionOf(s)
	return pa != nil && pa.Awaiting
}

// PendingActionType returns the type tag of the stored pending action,
// empty string if absent.
func PendingActionType(s State) string {
	if pa := PendingActionOf(s); pa != nil {
		return pa.Type
	}
	return ""
}

// PendingActionOwner returns the owner tag of the stored pending action,
// empty string if absent.
func PendingActionOwner(s State) string {
	if pa := PendingActionOf(s); pa != nil {
		return pa.Owner
	}
	return ""
}

// SetPendingAction raises a pending action. Producers must call this in the
// same state mutation step that emits their user-facing prompt.
func SetPendingAction(s State, owner, typ string) {
	s[KeyPendingAction] = &PendingAction{Owner: owner, Type: typ, Awaiting: true}
}

// ClearPendingAction deactivates the pending action if it is owned by
// owner. The object stays present with Awaiting false. Clearing an action
// owned by somebody else is a no-op: unrelated components must never
// resurrect or tear down each other's protocol state.
func ClearPendingAction(s State, owner string) {
	pa := PendingActionOf(s)
	if pa == nil || pa.Owner != owner {
		return
	}
	pa.Awaiting = false
}
