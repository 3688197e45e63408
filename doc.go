/*
Package assistant drafts replies for a browser-based messaging client.

An operator works a chat in the browser; the assistant watches the open
conversation and proposes the next message in the compose box. It never
sends anything: every draft waits for the operator.

# Concept

Replies follow flows, small graphs of nodes authored in the library. Each node
carries a message and one of three ways forward: a linear next node, a keymap
of customer replies ("1", "2", ...) or a list of operator options. The engine
is deterministic: given the same conversation state and event, the transition
and the draft are always the same.

The pieces are arranged hexagonally:

  - pkg/domain holds flows, conversation state and drafts.
  - internal/runtime resolves replies and renders drafts.
  - pkg/conversation serializes updates per conversation.
  - pkg/controller is the operator surface (start, options, redraft, rewrite).
  - pkg/assist polls the host page and feeds customer messages to the engine.
  - pkg/library stores templates, rules, settings and flows on any KV backend.
  - pkg/adapters/http serves the browser panel over JSON and SSE.

# Usage

	flow := dsl.New("support").
		Add("welcome").Message("Hi {{customer_name}}! Reply 1 for pricing.").On("1", "pricing").
		Add("pricing").Message("Our plans start at $10.").
		MustBuild()

	lib := library.New(memory.NewKV())
	_ = lib.SaveFlows(ctx, []*domain.Flow{flow})

	ctrl := controller.New(conversation.NewTable(), runtime.NewEngine(lib), host)
	ctrl.Start(ctx, "Ana", "support") // drafts "Hi Ana! Reply 1 for pricing."
	ctrl.Observe(ctx, "Ana", "1")     // drafts "Our plans start at $10."

The assistant command (cmd/assistant) wires the same pieces behind a server,
a terminal simulator and library tooling.
*/
package assistant
