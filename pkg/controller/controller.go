// Package controller is the stateful shell around the flow engine. It owns
// the conversation table, the operator's manual view and the draft editor,
// and is the only entry point for both the automatic and the manual path.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/internal/runtime"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/conversation"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

var (
	// ErrEditorClosed is returned by Rewrite when there is no draft to rewrite.
	ErrEditorClosed = errors.New("draft editor is not open")
	// ErrBridgeUnavailable is returned when the requested rewrite service is not configured.
	ErrBridgeUnavailable = errors.New("rewrite service not configured")
)

// Controller serializes every state change per conversation through the table.
type Controller struct {
	table  *conversation.Table
	engine *runtime.Engine
	host   ports.HostPage

	translator ports.Translator
	refiner    ports.Refiner

	views    *views
	overlays *overlays

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller)

// WithTranslator enables translate rewrites.
func WithTranslator(t ports.Translator) Option {
	return func(c *Controller) {
		c.translator = t
	}
}

// WithRefiner enables AI refine rewrites.
func WithRefiner(r ports.Refiner) Option {
	return func(c *Controller) {
		c.refiner = r
	}
}

// WithLifecycleHooks registers hooks. The controller fires OnDraft; the
// remaining hooks belong to the engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller.
func New(table *conversation.Table, engine *runtime.Engine, host ports.HostPage, opts ...Option) *Controller {
	c := &Controller{
		table:    table,
		engine:   engine,
		host:     host,
		views:    newViews(),
		overlays: newOverlays(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table exposes the conversation table for read access.
func (c *Controller) Table() *conversation.Table {
	return c.table
}

// State returns the authoritative state of a conversation, creating it if needed.
func (c *Controller) State(ctx context.Context, conv string) (domain.ConversationState, error) {
	return c.table.Get(ctx, conv)
}

// apply runs one engine event under the conversation lock and hands the
// resulting draft to the host before committing. A host failure aborts the
// whole step.
func (c *Controller) apply(ctx context.Context, conv string, ev runtime.Event) (domain.ConversationState, domain.ConversationState, *domain.Draft, error) {
	var before domain.ConversationState
	var draft *domain.Draft

	after, err := c.table.Update(ctx, conv, func(state domain.ConversationState) (domain.ConversationState, error) {
		before = state
		next, d, err := c.engine.Apply(ctx, state, ev)
		if err != nil {
			return state, err
		}
		if d != nil {
			if err := c.deliver(ctx, *d); err != nil {
				return state, err
			}
		}
		draft = d
		return next, nil
	})
	return before, after, draft, err
}

func (c *Controller) deliver(ctx context.Context, d domain.Draft) error {
	err := c.host.InsertDraft(ctx, d)
	if c.hooks.OnDraft != nil {
		c.hooks.OnDraft(ctx, &domain.DraftEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDraft, ConversationID: d.ConversationID},
			Draft:     d,
			Err:       err,
		})
	}
	if err != nil {
		c.logger.Warn("Failed to insert draft", "conversation", d.ConversationID, "source", d.Source, "err", err)
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	c.overlays.show(d.ConversationID, d.Text)
	return nil
}

// Start begins flowID for a conversation, whatever its previous status, and
// drafts the start node. The manual view opens with an empty history.
func (c *Controller) Start(ctx context.Context, conv, flowID string) (*domain.Draft, error) {
	_, _, draft, err := c.apply(ctx, conv, runtime.Start{FlowID: flowID})
	if err != nil {
		return nil, err
	}
	c.views.open(conv)
	return draft, nil
}

// Observe feeds the newest counterparty message of a conversation to the
// automatic path. It returns the draft produced, or nil.
func (c *Controller) Observe(ctx context.Context, conv, message string) (*domain.Draft, error) {
	clean, err := runtime.SanitizeInput(message)
	if err != nil {
		return nil, c.reject(ctx, conv, message, err)
	}
	if clean == "" {
		return nil, nil
	}
	_, _, draft, err := c.apply(ctx, conv, runtime.Incoming{Text: clean})
	return draft, err
}

// reject records an unusable message as seen so later polls of the same page
// skip it. The error is reported only the first time.
func (c *Controller) reject(ctx context.Context, conv, message string, cause error) error {
	repeated := false
	_, err := c.table.Update(ctx, conv, func(state domain.ConversationState) (domain.ConversationState, error) {
		if !state.InFlow() || state.LastSeenMessage == message {
			repeated = true
			return state, nil
		}
		state.LastSeenMessage = message
		return state, nil
	})
	if err != nil {
		return err
	}
	if repeated {
		return nil
	}
	return cause
}

// SimulateReply resolves key as if the counterparty had sent it, without
// touching the last-seen bookkeeping.
func (c *Controller) SimulateReply(ctx context.Context, conv, key string) (*domain.Draft, error) {
	_, _, draft, err := c.apply(ctx, conv, runtime.Reply{Key: key})
	return draft, err
}

// ChooseOption applies the operator's click on option index of the current node.
func (c *Controller) ChooseOption(ctx context.Context, conv string, index int) (*domain.Draft, error) {
	before, _, draft, err := c.apply(ctx, conv, runtime.ChooseOption{Index: index})
	if err != nil {
		return nil, err
	}
	// Every navigation click is recorded, including one that loops back to
	// the same node. Template options are side actions and leave no trace.
	if _, node, err := c.engine.Current(ctx, before); err == nil && index < len(node.Options) {
		if opt := node.Options[index]; opt.TemplateID == "" && opt.Next != "" {
			c.views.push(conv, before.NodeID)
		}
	}
	return draft, nil
}

// Redraft inserts the current node's text again ("Insert to Chat").
func (c *Controller) Redraft(ctx context.Context, conv string) (*domain.Draft, error) {
	_, _, draft, err := c.apply(ctx, conv, runtime.Redraft{})
	return draft, err
}

// Restart closes the manual view and the editor, clears the history and the
// compose box. The table entry is left alone, so the automatic path keeps
// tracking the conversation.
func (c *Controller) Restart(ctx context.Context, conv string) {
	c.views.close(conv)
	c.overlays.close(conv)
	if err := c.host.ClearCompose(ctx, conv); err != nil {
		c.logger.Warn("Failed to clear compose box", "conversation", conv, "err", err)
	}
}

// View returns what the panel should render for a conversation.
func (c *Controller) View(ctx context.Context, conv string) (View, error) {
	state, err := c.table.Get(ctx, conv)
	if err != nil {
		return View{}, err
	}

	open, history := c.views.snapshot(conv)
	v := View{
		ConversationID: conv,
		Status:         state.Status,
		Open:           open,
		History:        history,
	}
	if ed, ok := c.overlays.current(conv); ok {
		v.Editor = &ed
	}
	if !open || !state.InFlow() {
		return v, nil
	}

	flow, node, err := c.engine.Current(ctx, state)
	if err != nil {
		c.logger.Warn("View points at a missing flow or node", "conversation", conv, "err", err)
		return v, nil
	}
	nodeView(&v, flow, node)
	return v, nil
}

// EditDraft records an operator edit of the editor text. Pending rewrites
// started before the edit are dropped.
func (c *Controller) EditDraft(conv, text string) Editor {
	c.overlays.show(conv, text)
	ed, _ := c.overlays.current(conv)
	return ed
}

// CloseEditor dismisses the editor overlay.
func (c *Controller) CloseEditor(conv string) {
	c.overlays.close(conv)
}
