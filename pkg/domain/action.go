package domain

// DraftSource tells where a draft came from.
type DraftSource string

const (
	// SourceStart is the first step drafted when a flow starts.
	SourceStart DraftSource = "start"
	// SourceAssist is drafted by the automatic path after a counterparty reply.
	SourceAssist DraftSource = "assist"
	// SourceReply is drafted after the operator simulates a counterparty reply.
	SourceReply DraftSource = "reply"
	// SourceOption is drafted after an operator option click.
	SourceOption DraftSource = "option"
	// SourceTemplate is a library template drafted as a side action.
	SourceTemplate DraftSource = "template"
	// SourceRedraft re-drafts the current node on operator request.
	SourceRedraft DraftSource = "redraft"
	// SourceRewrite is text returned by the translation/refine bridge.
	SourceRewrite DraftSource = "rewrite"
)

// Draft is text proposed for insertion into the host compose box.
// The host must never submit it on its own.
type Draft struct {
	ConversationID string      `json:"conversation_id"`
	FlowID         string      `json:"flow_id,omitempty"`
	NodeID         string      `json:"node_id,omitempty"`
	Source         DraftSource `json:"source"`
	Text           string      `json:"text"`
}
