package runtime

import (
	"sort"
	"strings"
)

// Interpolator renders a draft template against the conversation variables.
type Interpolator func(template string, vars map[string]string) string

// VarCustomerName is the only variable the engine provides: the conversation title.
const VarCustomerName = "customer_name"

var newlineEscapes = strings.NewReplacer(`\n`, "\n", `/n`, "\n")

// Format turns the escaped newline sequences `\n` and `/n` into real newlines,
// then replaces every {{key}} for the keys present in vars. Placeholders with
// no matching key are left untouched.
func Format(template string, vars map[string]string) string {
	if template == "" {
		return ""
	}

	out := newlineEscapes.Replace(template)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{{"+k+"}}", vars[k])
	}
	return out
}
