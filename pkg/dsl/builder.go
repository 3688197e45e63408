package dsl

import (
	"fmt"

	"github.com/jnickzlim/wa-chrome-assistance/internal/validator"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Builder manages the flow construction.
type Builder struct {
	flow  domain.Flow
	nodes []*NodeBuilder
}

// New creates a new flow builder.
func New(id string) *Builder {
	return &Builder{
		flow: domain.Flow{ID: id},
	}
}

// Name sets the display name of the flow.
func (b *Builder) Name(name string) *Builder {
	b.flow.Name = name
	return b
}

// TemplateID attaches display metadata to the flow.
func (b *Builder) TemplateID(id string) *Builder {
	b.flow.TemplateID = id
	return b
}

// StartAt overrides the start node. By default the first added node starts the flow.
func (b *Builder) StartAt(id string) *Builder {
	b.flow.StartNodeID = id
	return b
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	for _, nb := range b.nodes {
		if nb.node.ID == id {
			return nb
		}
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes = append(b.nodes, nb)
	if b.flow.StartNodeID == "" {
		b.flow.StartNodeID = id
	}
	return nb
}

// Build resolves node policies and validates the flow.
func (b *Builder) Build() (*domain.Flow, error) {
	flow := b.flow
	flow.Nodes = make(map[string]*domain.Node, len(b.nodes))
	for _, nb := range b.nodes {
		n := nb.resolve()
		flow.Nodes[n.ID] = &n
	}

	if err := validator.ValidateFlow(&flow); err != nil {
		return nil, fmt.Errorf("failed to build flow: %w", err)
	}
	return &flow, nil
}

// MustBuild is Build for flows known to be valid at compile time.
func (b *Builder) MustBuild() *domain.Flow {
	flow, err := b.Build()
	if err != nil {
		panic(err)
	}
	return flow
}
