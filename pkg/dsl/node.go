package dsl

import (
	"github.com/jnickzlim/wa-chrome-assistance/internal/compiler"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Message sets the draft text of the node.
func (n *NodeBuilder) Message(text string) *NodeBuilder {
	n.node.Message = text
	return n
}

// Prompt sets the operator-facing question.
func (n *NodeBuilder) Prompt(text string) *NodeBuilder {
	n.node.Prompt = text
	return n
}

// ExpectReply marks the node as waiting for the counterparty.
func (n *NodeBuilder) ExpectReply() *NodeBuilder {
	n.node.ExpectReply = true
	return n
}

// On adds a keyed transition taken when the reply equals key.
func (n *NodeBuilder) On(key, target string) *NodeBuilder {
	if n.node.KeyMap == nil {
		n.node.KeyMap = make(map[string]string)
	}
	n.node.KeyMap[compiler.NormalizeKey(key)] = target
	return n
}

// Go sets the unconditional next node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Next = target
	return n
}

// Option adds an operator choice moving to target.
func (n *NodeBuilder) Option(label, target string) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.Option{Label: label, Next: target})
	return n
}

// TemplateOption adds an operator choice drafting a library template.
func (n *NodeBuilder) TemplateOption(label, templateID string) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.Option{Label: label, TemplateID: templateID})
	return n
}

// Add starts the next node, for chaining.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}

// Build builds the whole flow, for chaining.
func (n *NodeBuilder) Build() (*domain.Flow, error) {
	return n.builder.Build()
}

// MustBuild builds the whole flow, for chaining.
func (n *NodeBuilder) MustBuild() *domain.Flow {
	return n.builder.MustBuild()
}

func (n *NodeBuilder) resolve() domain.Node {
	node := n.node
	switch {
	case len(node.Options) > 0:
		node.Policy = domain.PolicyOptions
		node.KeyMap = nil
		node.Next = ""
	case len(node.KeyMap) > 0:
		node.Policy = domain.PolicyKeyed
		node.Next = ""
	case node.Next != "":
		node.Policy = domain.PolicyLinear
	default:
		node.Policy = domain.PolicyNone
	}
	return node
}
