package domain

import "time"

// Status is the lifecycle of a conversation inside a flow.
type Status string

const (
	StatusIdle    Status = "idle"    // No flow running
	StatusActive  Status = "active"  // Flow started or moved by the operator
	StatusDrafted Status = "drafted" // Automatic path advanced and proposed a draft
)

// ConversationState is the authoritative record of where a conversation sits
// within its active flow.
//
// Invariant: NodeID is a key of the active flow's nodes, or both FlowID and
// NodeID are empty.
type ConversationState struct {
	ConversationID  string    `json:"conversation_id"`
	FlowID          string    `json:"flow_id,omitempty"`
	NodeID          string    `json:"node_id,omitempty"`
	Status          Status    `json:"status"`
	LastSeenMessage string    `json:"last_seen_message"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// NewConversationState returns the default idle state for a conversation.
func NewConversationState(conversationID string) ConversationState {
	return ConversationState{
		ConversationID: conversationID,
		Status:         StatusIdle,
	}
}

// InFlow reports whether a flow is currently running for the conversation.
func (s ConversationState) InFlow() bool {
	return s.FlowID != "" && s.NodeID != ""
}
