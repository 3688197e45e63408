package runtime

import (
	"github.com/jnickzlim/wa-chrome-assistance/internal/compiler"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Resolve maps a raw counterparty reply to the next node id.
//
// Keyed nodes look the normalized reply up in their keymap; linear nodes
// advance regardless of input. Options and none nodes never resolve, and
// neither does anything that did not match. A miss is not an error.
func Resolve(node *domain.Node, raw string) (string, bool) {
	if node == nil {
		return "", false
	}

	switch node.Policy {
	case domain.PolicyKeyed:
		next, ok := node.KeyMap[compiler.NormalizeKey(raw)]
		if !ok || next == "" {
			return "", false
		}
		return next, true
	case domain.PolicyLinear:
		if node.Next == "" {
			return "", false
		}
		return node.Next, true
	default:
		return "", false
	}
}
