package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFlowStart      EventType = "flow_start"
	EventNodeEnter      EventType = "node_enter"
	EventResolutionMiss EventType = "resolution_miss"
	EventDraft          EventType = "draft"
	EventChatSwitch     EventType = "chat_switch"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// NodeEvent represents a flow start or a move to a node.
type NodeEvent struct {
	EventBase
	FlowID string `json:"flow_id"`
	NodeID string `json:"node_id"`
	Policy Policy `json:"policy,omitempty"`
}

// MissEvent represents an incoming message that matched no transition.
type MissEvent struct {
	EventBase
	FlowID string `json:"flow_id"`
	NodeID string `json:"node_id"`
	Input  string `json:"input"`
}

// DraftEvent represents a draft handed to the host.
type DraftEvent struct {
	EventBase
	Draft Draft `json:"draft"`
	Err   error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnFlowStart      func(context.Context, *NodeEvent)
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnResolutionMiss func(context.Context, *MissEvent)
	OnDraft          func(context.Context, *DraftEvent)
	OnChatSwitch     func(context.Context, *EventBase)
}
