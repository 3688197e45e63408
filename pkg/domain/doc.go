/*
Package domain contains the core models of the reply assistant.

It defines the fundamental entities of the flow engine, such as Flows, Nodes and
the per-conversation State, plus the library records (templates, rules) the
engine drafts from. This package is kept pure and free of external dependencies
like I/O or persistence.

# Key Entities

  - Flow: a named graph of nodes describing a scripted multi-step reply.
  - Node: one step of a flow. Its Policy decides how the next node is chosen.
  - ConversationState: where one open conversation sits inside its active flow.
  - Draft: text proposed for the host compose box. Drafts are never sent.
*/
package domain
