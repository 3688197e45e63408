package validator_test

import (
	"errors"
	"testing"

	"github.com/jnickzlim/wa-chrome-assistance/internal/validator"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionsNode(id string, targets ...string) *domain.Node {
	n := &domain.Node{ID: id, Policy: domain.PolicyOptions}
	for _, t := range targets {
		n.Options = append(n.Options, domain.Option{Label: t, Next: t})
	}
	return n
}

func TestValidateFlow_MissingStartNode(t *testing.T) {
	err := validator.ValidateFlow(&domain.Flow{ID: "f", Nodes: map[string]*domain.Node{"a": {ID: "a"}}})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, domain.ErrMissingStartNode)
	assert.Equal(t, "f", verr.FlowID)
}

func TestValidateFlow_EmptyNodeSet(t *testing.T) {
	err := validator.ValidateFlow(&domain.Flow{ID: "f", StartNodeID: "a"})
	assert.ErrorIs(t, err, domain.ErrEmptyNodeSet)
}

func TestValidateFlow_DanglingOptionTarget(t *testing.T) {
	flow := &domain.Flow{
		ID:          "f",
		StartNodeID: "a",
		Nodes: map[string]*domain.Node{
			"a": optionsNode("a", "b"),
		},
	}

	err := validator.ValidateFlow(flow)
	var dangling *domain.DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, "b", dangling.NodeID)
	assert.Contains(t, err.Error(), "node 'b' not found")
}

func TestValidateFlow_StartNodeAbsent(t *testing.T) {
	flow := &domain.Flow{
		ID:          "f",
		StartNodeID: "zzz",
		Nodes:       map[string]*domain.Node{"a": {ID: "a"}},
	}

	var dangling *domain.DanglingReferenceError
	require.True(t, errors.As(validator.ValidateFlow(flow), &dangling))
	assert.Equal(t, "zzz", dangling.NodeID)
}

func TestValidateFlow_CyclesAreAllowed(t *testing.T) {
	flow := &domain.Flow{
		ID:          "f",
		StartNodeID: "a",
		Nodes: map[string]*domain.Node{
			"a": optionsNode("a", "b"),
			"b": optionsNode("b", "a", "b"),
		},
	}
	assert.NoError(t, validator.ValidateFlow(flow))
}

func TestValidateFlow_KeyMapTargetsAreNotChecked(t *testing.T) {
	flow := &domain.Flow{
		ID:          "f",
		StartNodeID: "a",
		Nodes: map[string]*domain.Node{
			"a": {ID: "a", Policy: domain.PolicyKeyed, KeyMap: map[string]string{"1": "ghost"}},
		},
	}
	assert.NoError(t, validator.ValidateFlow(flow))

	warnings := validator.Lint(flow)
	require.Len(t, warnings, 1)
	assert.Equal(t, "a", warnings[0].NodeID)
	assert.Contains(t, warnings[0].Msg, "ghost")
}

func TestValidateAll(t *testing.T) {
	good := &domain.Flow{ID: "g", StartNodeID: "a", Nodes: map[string]*domain.Node{"a": {ID: "a"}}}
	bad := &domain.Flow{ID: "b"}

	assert.NoError(t, validator.ValidateAll([]*domain.Flow{good}))
	assert.ErrorIs(t, validator.ValidateAll([]*domain.Flow{good, bad}), domain.ErrMissingStartNode)
}

func TestLint_UnreachableAndLinear(t *testing.T) {
	flow := &domain.Flow{
		ID:          "f",
		StartNodeID: "a",
		Nodes: map[string]*domain.Node{
			"a":      {ID: "a", Policy: domain.PolicyLinear, Next: "b"},
			"b":      {ID: "b", Policy: domain.PolicyLinear, Next: "nowhere"},
			"orphan": {ID: "orphan"},
		},
	}

	warnings := validator.Lint(flow)
	require.Len(t, warnings, 2)
	assert.Equal(t, "b", warnings[0].NodeID)
	assert.Equal(t, "orphan", warnings[1].NodeID)
	assert.Equal(t, "f/orphan: unreachable from start node", warnings[1].String())
}

func TestTargets(t *testing.T) {
	keyed := &domain.Node{Policy: domain.PolicyKeyed, KeyMap: map[string]string{"2": "y", "1": "x"}}
	assert.Equal(t, []string{"x", "y"}, validator.Targets(keyed))

	opts := &domain.Node{Policy: domain.PolicyOptions, Options: []domain.Option{{Next: "a"}, {TemplateID: "t"}}}
	assert.Equal(t, []string{"a"}, validator.Targets(opts))

	assert.Empty(t, validator.Targets(&domain.Node{Policy: domain.PolicyNone}))
}
