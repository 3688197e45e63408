/*
Package dsl provides a fluent builder for constructing flows in Go code.

It is an alternative to authoring flows as JSON or YAML documents, handy for
built-in flows and tests. Nodes get the same transition policy the document
compiler would give them: options win over a keymap, a keymap wins over a
fixed next.

Example usage:

	flow, err := dsl.New("f_support").
		Name("Support").
		Add("welcome").
			Message("Hi {{customer_name}}! 1. Pricing 2. Human").
			On("1", "pricing").
			On("2", "human").
		Add("pricing").
			Message("Our prices are on the website.").
		Add("human").
			Prompt("Escalate?").
			Option("Yes", "pricing").
			TemplateOption("Send away message", "t4").
		Build()
*/
package dsl
