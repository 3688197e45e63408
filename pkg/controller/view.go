package controller

import (
	"sort"
	"sync"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// manualView is the operator's step panel for one conversation. Flow and node
// are never stored here: they are read from the conversation table.
type manualView struct {
	open    bool
	history []string
}

type views struct {
	mu   sync.Mutex
	byID map[string]*manualView
}

func newViews() *views {
	return &views{byID: make(map[string]*manualView)}
}

func (v *views) get(id string) *manualView {
	mv, ok := v.byID[id]
	if !ok {
		mv = &manualView{}
		v.byID[id] = mv
	}
	return mv
}

func (v *views) open(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	mv := v.get(id)
	mv.open = true
	mv.history = nil
}

func (v *views) push(id, nodeID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	mv := v.get(id)
	mv.open = true
	mv.history = append(mv.history, nodeID)
}

func (v *views) close(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	mv := v.get(id)
	mv.open = false
	mv.history = nil
}

func (v *views) snapshot(id string) (bool, []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	mv := v.get(id)
	return mv.open, append([]string(nil), mv.history...)
}

// View is what the panel renders for a conversation.
type View struct {
	ConversationID string        `json:"conversation_id"`
	Status         domain.Status `json:"status"`
	Open           bool          `json:"open"`

	FlowID   string `json:"flow_id,omitempty"`
	FlowName string `json:"flow_name,omitempty"`
	NodeID   string `json:"node_id,omitempty"`

	// Question is the operator-facing prompt of the current node.
	Question string `json:"question,omitempty"`
	// Preview is the unformatted draft text of the current node.
	Preview string `json:"preview,omitempty"`
	// Options are the labels of the current node's choices, by index.
	Options []string `json:"options,omitempty"`
	// Replies are the keys the operator can simulate as counterparty replies.
	Replies []string `json:"replies,omitempty"`

	History []string `json:"history"`
	Editor  *Editor  `json:"editor,omitempty"`
}

func nodeView(v *View, flow *domain.Flow, node *domain.Node) {
	v.FlowID = flow.ID
	v.FlowName = flow.Name
	v.NodeID = node.ID
	v.Question = node.Prompt
	if v.Question == "" {
		v.Question = "Current Draft:"
	}
	v.Preview = node.DraftText()
	for _, o := range node.Options {
		v.Options = append(v.Options, o.Label)
	}
	for k := range node.KeyMap {
		v.Replies = append(v.Replies, k)
	}
	sort.Strings(v.Replies)
}
