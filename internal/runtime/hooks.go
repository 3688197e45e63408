package runtime

import (
	"context"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

func (e *Engine) base(t domain.EventType, conversationID string) domain.EventBase {
	return domain.EventBase{
		Timestamp:      e.now(),
		Type:           t,
		ConversationID: conversationID,
	}
}

func (e *Engine) emitFlowStart(ctx context.Context, state domain.ConversationState, node *domain.Node) {
	e.logger.Debug("flow started", "conversation", state.ConversationID, "flow_id", state.FlowID, "node_id", node.ID)
	if e.hooks.OnFlowStart != nil {
		e.hooks.OnFlowStart(ctx, &domain.NodeEvent{
			EventBase: e.base(domain.EventFlowStart, state.ConversationID),
			FlowID:    state.FlowID,
			NodeID:    node.ID,
			Policy:    node.Policy,
		})
	}
	e.emitNodeEnter(ctx, state, node)
}

func (e *Engine) emitNodeEnter(ctx context.Context, state domain.ConversationState, node *domain.Node) {
	e.logger.Debug("entering node", "conversation", state.ConversationID, "flow_id", state.FlowID, "node_id", node.ID)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: e.base(domain.EventNodeEnter, state.ConversationID),
			FlowID:    state.FlowID,
			NodeID:    node.ID,
			Policy:    node.Policy,
		})
	}
}

func (e *Engine) emitMiss(ctx context.Context, state domain.ConversationState, input string) {
	e.logger.Debug("no transition for input", "conversation", state.ConversationID, "node_id", state.NodeID, "input", input)
	if e.hooks.OnResolutionMiss != nil {
		e.hooks.OnResolutionMiss(ctx, &domain.MissEvent{
			EventBase: e.base(domain.EventResolutionMiss, state.ConversationID),
			FlowID:    state.FlowID,
			NodeID:    state.NodeID,
			Input:     input,
		})
	}
}
