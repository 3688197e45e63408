// Package validator checks the structure of flows before they are stored.
package validator

import (
	"fmt"
	"sort"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// ValidateFlow checks that the flow has a start node, at least one node, and
// that every node reachable from the start through option targets exists.
// Cycles are allowed. Keymap and linear targets are reported by Lint only.
//
// The returned error is always a *domain.ValidationError.
func ValidateFlow(flow *domain.Flow) error {
	if flow == nil {
		return &domain.ValidationError{Err: domain.ErrEmptyNodeSet}
	}
	if flow.StartNodeID == "" {
		return &domain.ValidationError{FlowID: flow.ID, Err: domain.ErrMissingStartNode}
	}
	if len(flow.Nodes) == 0 {
		return &domain.ValidationError{FlowID: flow.ID, Err: domain.ErrEmptyNodeSet}
	}

	visited := make(map[string]bool)
	stack := []string{flow.StartNodeID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			continue
		}
		visited[id] = true

		node, ok := flow.Nodes[id]
		if !ok || node == nil {
			return &domain.ValidationError{
				FlowID: flow.ID,
				Err:    &domain.DanglingReferenceError{NodeID: id},
			}
		}

		for _, opt := range node.Options {
			if opt.Next != "" {
				stack = append(stack, opt.Next)
			}
		}
	}

	return nil
}

// ValidateAll validates every flow and returns the first failure.
func ValidateAll(flows []*domain.Flow) error {
	for _, f := range flows {
		if err := ValidateFlow(f); err != nil {
			return err
		}
	}
	return nil
}

// Warning is a non-fatal finding about a flow.
type Warning struct {
	FlowID string
	NodeID string
	Msg    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s/%s: %s", w.FlowID, w.NodeID, w.Msg)
}

// Lint reports keymap or linear targets that do not exist and nodes that
// cannot be reached from the start node. It never fails.
func Lint(flow *domain.Flow) []Warning {
	if flow == nil {
		return nil
	}

	var warnings []Warning
	for _, id := range sortedIDs(flow) {
		node := flow.Nodes[id]
		if node == nil {
			continue
		}
		if node.Policy == domain.PolicyLinear && flow.Node(node.Next) == nil {
			warnings = append(warnings, Warning{flow.ID, id, fmt.Sprintf("next target '%s' not found", node.Next)})
		}
		keys := make([]string, 0, len(node.KeyMap))
		for k := range node.KeyMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if target := node.KeyMap[k]; flow.Node(target) == nil {
				warnings = append(warnings, Warning{flow.ID, id, fmt.Sprintf("key '%s' targets missing node '%s'", k, target)})
			}
		}
	}

	reachable := reachableFrom(flow)
	for _, id := range sortedIDs(flow) {
		if !reachable[id] {
			warnings = append(warnings, Warning{flow.ID, id, "unreachable from start node"})
		}
	}
	return warnings
}

// reachableFrom walks every kind of edge (options, keymap, linear) from the start node.
func reachableFrom(flow *domain.Flow) map[string]bool {
	seen := make(map[string]bool)
	queue := []string{flow.StartNodeID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		node := flow.Node(id)
		if node == nil || seen[id] {
			continue
		}
		seen[id] = true

		for _, target := range Targets(node) {
			if !seen[target] {
				queue = append(queue, target)
			}
		}
	}
	return seen
}

// Targets lists every node id a node can transition to, in a stable order.
func Targets(node *domain.Node) []string {
	var out []string
	switch node.Policy {
	case domain.PolicyLinear:
		out = append(out, node.Next)
	case domain.PolicyKeyed:
		keys := make([]string, 0, len(node.KeyMap))
		for k := range node.KeyMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, node.KeyMap[k])
		}
	case domain.PolicyOptions:
		for _, o := range node.Options {
			if o.Next != "" {
				out = append(out, o.Next)
			}
		}
	}
	return out
}

func sortedIDs(flow *domain.Flow) []string {
	ids := make([]string, 0, len(flow.Nodes))
	for id := range flow.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
