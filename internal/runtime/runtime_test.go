package runtime_test

import (
	"context"
	"fmt"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// catalog is a map-backed ports.Catalog for engine tests.
type catalog struct {
	flows     map[string]*domain.Flow
	templates map[string]*domain.Template
}

func newCatalog(flows ...*domain.Flow) *catalog {
	c := &catalog{
		flows:     make(map[string]*domain.Flow),
		templates: make(map[string]*domain.Template),
	}
	for _, f := range flows {
		c.flows[f.ID] = f
	}
	return c
}

func (c *catalog) Flow(_ context.Context, id string) (*domain.Flow, error) {
	f, ok := c.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	return f, nil
}

func (c *catalog) Template(_ context.Context, id string) (*domain.Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return t, nil
}

// supportFlow is f1: w (keyed 1→p, 2→s), p (linear → done), s (options), done.
func supportFlow() *domain.Flow {
	return &domain.Flow{
		ID:          "f1",
		Name:        "Support",
		StartNodeID: "w",
		Nodes: map[string]*domain.Node{
			"w": {
				ID:      "w",
				Policy:  domain.PolicyKeyed,
				Message: `Hi {{customer_name}}\n1. Pricing\n2. Support`,
				KeyMap:  map[string]string{"1": "p", "2": "s", "3": "ghost"},
			},
			"p": {ID: "p", Policy: domain.PolicyLinear, Message: "Price list", Next: "done"},
			"s": {
				ID:     "s",
				Policy: domain.PolicyOptions,
				Prompt: "Which issue?",
				Options: []domain.Option{
					{Label: "Billing", Next: "done"},
					{Label: "Send FAQ", TemplateID: "faq"},
					{Label: "Broken", TemplateID: "missing"},
				},
			},
			"done": {ID: "done", Policy: domain.PolicyNone, Message: "Bye {{customer_name}}"},
		},
	}
}
