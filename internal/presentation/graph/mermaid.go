package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow.
// Shapes follow the node policy:
// - Start: ((Circle))
// - Keyed (waits for a reply): [/Parallelogram/]
// - Options (operator choice): {Rhombus}
// - Default: [Rectangle]
// Keyed edges are labelled with their key, option edges are dotted and
// template options point at a flag shape. Overlay styles (Visited/Current)
// are applied if provided.
func GenerateMermaid(flow *domain.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if flow == nil {
		return sb.String()
	}

	for _, id := range nodeOrder(flow) {
		node := flow.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == flow.StartNodeID:
			opener, closer = "((", "))"
		case node.Policy == domain.PolicyKeyed:
			opener, closer = "[/", "/]"
		case node.Policy == domain.PolicyOptions:
			opener, closer = "{", "}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(id), closer))

		switch node.Policy {
		case domain.PolicyLinear:
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(node.Next)))
		case domain.PolicyKeyed:
			keys := make([]string, 0, len(node.KeyMap))
			for k := range node.KeyMap {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, escapeLabel(k), sanitizeMermaidID(node.KeyMap[k])))
			}
		case domain.PolicyOptions:
			for i, opt := range node.Options {
				label := escapeLabel(opt.Label)
				if opt.TemplateID != "" {
					tplID := fmt.Sprintf("%s_tpl_%d", safeID, i)
					sb.WriteString(fmt.Sprintf("    %s>\"template %s\"]\n", tplID, escapeLabel(opt.TemplateID)))
					sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, label, tplID))
					continue
				}
				if opt.Next != "" {
					sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, label, sanitizeMermaidID(opt.Next)))
				}
			}
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			// History may point at nodes deleted since.
			if flow.Node(id) == nil {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if flow.Node(overlay.CurrentNode) != nil {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// nodeOrder puts the start node first and the rest alphabetically.
func nodeOrder(flow *domain.Flow) []string {
	ids := make([]string, 0, len(flow.Nodes))
	for id := range flow.Nodes {
		if id != flow.StartNodeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if flow.Start() != nil {
		ids = append([]string{flow.StartNodeID}, ids...)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
