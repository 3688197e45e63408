// Package runtime holds the flow engine: a pure transition function over
// conversation states plus the resolver and the draft formatter it relies on.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// Event is an input to Engine.Apply.
type Event interface {
	event()
}

// Start begins (or restarts) a flow at its start node.
type Start struct{ FlowID string }

// Incoming is a counterparty message read by the assist loop.
// It is ignored when equal to the last message already seen.
type Incoming struct{ Text string }

// Reply is an operator-simulated counterparty reply. It resolves like Incoming
// but does not touch the last-seen bookkeeping.
type Reply struct{ Key string }

// ChooseOption is an operator click on the option at Index of the current node.
type ChooseOption struct{ Index int }

// Redraft re-drafts the current node.
type Redraft struct{}

func (Start) event()        {}
func (Incoming) event()     {}
func (Reply) event()        {}
func (ChooseOption) event() {}
func (Redraft) event()      {}

// Engine computes conversation transitions. It owns no state: callers pass
// the current state in and persist what comes out.
type Engine struct {
	catalog      ports.Catalog
	interpolator Interpolator
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithInterpolator replaces the default draft formatter.
func WithInterpolator(i Interpolator) Option {
	return func(e *Engine) {
		e.interpolator = i
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for UpdatedAt and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine reading flows and templates from catalog.
func NewEngine(catalog ports.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:      catalog,
		interpolator: Format,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply returns the state that follows ev and the draft to hand to the host,
// if any. On error the returned state equals the input state.
func (e *Engine) Apply(ctx context.Context, state domain.ConversationState, ev Event) (domain.ConversationState, *domain.Draft, error) {
	switch ev := ev.(type) {
	case Start:
		return e.start(ctx, state, ev.FlowID)
	case Incoming:
		return e.incoming(ctx, state, ev.Text)
	case Reply:
		return e.reply(ctx, state, ev.Key)
	case ChooseOption:
		return e.chooseOption(ctx, state, ev.Index)
	case Redraft:
		return e.redraft(ctx, state)
	default:
		return state, nil, fmt.Errorf("unsupported event %T", ev)
	}
}

func (e *Engine) start(ctx context.Context, state domain.ConversationState, flowID string) (domain.ConversationState, *domain.Draft, error) {
	flow, err := e.catalog.Flow(ctx, flowID)
	if err != nil {
		return state, nil, err
	}
	node := flow.Start()
	if node == nil {
		return state, nil, fmt.Errorf("%w: start node '%s' of flow '%s'", domain.ErrNodeNotFound, flow.StartNodeID, flow.ID)
	}

	next := state
	next.FlowID = flow.ID
	next.NodeID = node.ID
	next.Status = domain.StatusActive
	next.LastSeenMessage = ""
	next.UpdatedAt = e.now()

	e.emitFlowStart(ctx, next, node)
	return next, e.draft(next, node.DraftText(), domain.SourceStart), nil
}

func (e *Engine) incoming(ctx context.Context, state domain.ConversationState, text string) (domain.ConversationState, *domain.Draft, error) {
	if !state.InFlow() || text == state.LastSeenMessage {
		return state, nil, nil
	}

	next := state
	next.LastSeenMessage = text
	next.UpdatedAt = e.now()

	out, d, err := e.advance(ctx, next, text, domain.SourceAssist, func(n *domain.Node) string { return n.Message })
	if err != nil {
		return state, nil, err
	}
	return out, d, nil
}

func (e *Engine) reply(ctx context.Context, state domain.ConversationState, key string) (domain.ConversationState, *domain.Draft, error) {
	if !state.InFlow() {
		return state, nil, domain.ErrNoActiveFlow
	}
	return e.advance(ctx, state, key, domain.SourceReply, (*domain.Node).DraftText)
}

// advance runs the resolver from the current node. A miss, or a target that is
// not part of the flow, leaves flow and node untouched.
func (e *Engine) advance(ctx context.Context, state domain.ConversationState, input string, source domain.DraftSource, text func(*domain.Node) string) (domain.ConversationState, *domain.Draft, error) {
	flow, node, err := e.current(ctx, state)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotFound) || errors.Is(err, domain.ErrNodeNotFound) {
			e.logger.Warn("Active flow is no longer resolvable", "conversation", state.ConversationID, "flow_id", state.FlowID, "node_id", state.NodeID, "err", err)
			return state, nil, nil
		}
		return state, nil, err
	}

	target, ok := Resolve(node, input)
	if ok && flow.Node(target) == nil {
		e.logger.Warn("Transition target missing from flow", "flow_id", flow.ID, "node_id", node.ID, "target", target)
		ok = false
	}
	if !ok {
		e.emitMiss(ctx, state, input)
		return state, nil, nil
	}

	next := state
	next.NodeID = target
	next.Status = domain.StatusDrafted
	next.UpdatedAt = e.now()

	entered := flow.Node(target)
	e.emitNodeEnter(ctx, next, entered)
	return next, e.draft(next, text(entered), source), nil
}

func (e *Engine) chooseOption(ctx context.Context, state domain.ConversationState, index int) (domain.ConversationState, *domain.Draft, error) {
	if !state.InFlow() {
		return state, nil, domain.ErrNoActiveFlow
	}
	flow, node, err := e.current(ctx, state)
	if err != nil {
		return state, nil, err
	}
	if index < 0 || index >= len(node.Options) {
		return state, nil, fmt.Errorf("%w: index %d on node '%s'", domain.ErrOptionNotFound, index, node.ID)
	}
	opt := node.Options[index]

	// A template option is a side action: the conversation stays where it is.
	if opt.TemplateID != "" {
		tpl, err := e.catalog.Template(ctx, opt.TemplateID)
		if err != nil {
			return state, nil, err
		}
		return state, e.draft(state, tpl.Content, domain.SourceTemplate), nil
	}

	if opt.Next == "" {
		return state, nil, nil
	}
	entered := flow.Node(opt.Next)
	if entered == nil {
		return state, nil, fmt.Errorf("%w: option target '%s' in flow '%s'", domain.ErrNodeNotFound, opt.Next, flow.ID)
	}

	next := state
	next.NodeID = entered.ID
	next.Status = domain.StatusActive
	next.UpdatedAt = e.now()

	e.emitNodeEnter(ctx, next, entered)
	return next, e.draft(next, entered.DraftText(), domain.SourceOption), nil
}

func (e *Engine) redraft(ctx context.Context, state domain.ConversationState) (domain.ConversationState, *domain.Draft, error) {
	if !state.InFlow() {
		return state, nil, domain.ErrNoActiveFlow
	}
	_, node, err := e.current(ctx, state)
	if err != nil {
		return state, nil, err
	}
	return state, e.draft(state, node.DraftText(), domain.SourceRedraft), nil
}

// Current returns the flow and node a state points at.
func (e *Engine) Current(ctx context.Context, state domain.ConversationState) (*domain.Flow, *domain.Node, error) {
	if !state.InFlow() {
		return nil, nil, domain.ErrNoActiveFlow
	}
	return e.current(ctx, state)
}

func (e *Engine) current(ctx context.Context, state domain.ConversationState) (*domain.Flow, *domain.Node, error) {
	flow, err := e.catalog.Flow(ctx, state.FlowID)
	if err != nil {
		return nil, nil, err
	}
	node := flow.Node(state.NodeID)
	if node == nil {
		return flow, nil, fmt.Errorf("%w: '%s' in flow '%s'", domain.ErrNodeNotFound, state.NodeID, flow.ID)
	}
	return flow, node, nil
}

// Render formats text for the given conversation.
func (e *Engine) Render(conversationID, text string) string {
	return e.interpolator(text, map[string]string{VarCustomerName: conversationID})
}

func (e *Engine) draft(state domain.ConversationState, text string, source domain.DraftSource) *domain.Draft {
	if text == "" {
		return nil
	}
	return &domain.Draft{
		ConversationID: state.ConversationID,
		FlowID:         state.FlowID,
		NodeID:         state.NodeID,
		Source:         source,
		Text:           e.Render(state.ConversationID, text),
	}
}
