package domain

// StateDiff represents the changes between two conversation states.
// It is designed to be serialized to JSON for partial updates on the panel.
type StateDiff struct {
	// ConversationID is always present to identify the target.
	ConversationID string `json:"conversation_id"`

	FlowID          *string `json:"flow_id,omitempty"`
	NodeID          *string `json:"node_id,omitempty"`
	Status          *Status `json:"status,omitempty"`
	LastSeenMessage *string `json:"last_seen_message,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *ConversationState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		ConversationID: newState.ConversationID,
	}

	if oldState == nil || oldState.FlowID != newState.FlowID {
		diff.FlowID = &newState.FlowID
	}
	if oldState == nil || oldState.NodeID != newState.NodeID {
		diff.NodeID = &newState.NodeID
	}
	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}
	if oldState == nil || oldState.LastSeenMessage != newState.LastSeenMessage {
		diff.LastSeenMessage = &newState.LastSeenMessage
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.FlowID == nil &&
		d.NodeID == nil &&
		d.Status == nil &&
		d.LastSeenMessage == nil
}
