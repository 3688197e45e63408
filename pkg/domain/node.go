package domain

// Policy is the transition discriminant of a node.
// It is resolved once, when a flow is compiled, so the engine never has to
// guess how a node should be interpreted.
type Policy string

const (
	// PolicyNone drafts the node message and never advances on its own.
	PolicyNone Policy = "none"
	// PolicyLinear ignores input and always advances to Node.Next.
	PolicyLinear Policy = "linear"
	// PolicyKeyed advances when the normalized counterparty reply is a key of Node.KeyMap.
	PolicyKeyed Policy = "keyed"
	// PolicyOptions is operator driven: the UI offers Node.Options as buttons.
	PolicyOptions Policy = "options"
)

// Option is a single operator choice on an options node.
type Option struct {
	Label string `json:"label" yaml:"label"`
	// Next moves the conversation to another node when chosen.
	Next string `json:"next,omitempty" yaml:"next,omitempty"`
	// TemplateID drafts a library template without moving the conversation.
	TemplateID string `json:"templateId,omitempty" yaml:"templateId,omitempty"`
}

// Node represents one step of a flow.
type Node struct {
	ID     string `json:"id" yaml:"id"`
	Policy Policy `json:"policy" yaml:"policy"`

	// Message is the draft template (supports {{customer_name}} and escaped newlines).
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Prompt is the operator-facing question shown by the panel.
	Prompt string `json:"text,omitempty" yaml:"text,omitempty"`

	// Next is set for PolicyLinear.
	Next string `json:"next,omitempty" yaml:"next,omitempty"`

	// KeyMap is set for PolicyKeyed. Keys are stored normalized (trimmed, lower-case).
	KeyMap map[string]string `json:"nextMap,omitempty" yaml:"nextMap,omitempty"`

	// Options is set for PolicyOptions, in display order.
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	// ExpectReply marks nodes that wait for the counterparty. Informational only.
	ExpectReply bool `json:"expectReply,omitempty" yaml:"expectReply,omitempty"`
}

// HasMessage reports whether entering the node produces a draft.
func (n *Node) HasMessage() bool {
	return n != nil && n.Message != ""
}

// DraftText is the text drafted by operator actions: the message, or the
// prompt when the node only carries a question.
func (n *Node) DraftText() string {
	if n == nil {
		return ""
	}
	if n.Message != "" {
		return n.Message
	}
	return n.Prompt
}
