package observability

import (
	"context"
	"log/slog"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the assistant collectors.
type Metrics struct {
	FlowStarts   *prometheus.CounterVec
	NodeVisits   *prometheus.CounterVec
	Misses       *prometheus.CounterVec
	Drafts       *prometheus.CounterVec
	ChatSwitches prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_flow_starts_total",
			Help: "Total number of flows started",
		}, []string{"flow_id"}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_node_visits_total",
			Help: "Total number of node visits",
		}, []string{"flow_id", "node_id"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_resolution_misses_total",
			Help: "Incoming messages that matched no transition",
		}, []string{"flow_id", "node_id"}),
		Drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_drafts_total",
			Help: "Drafts handed to the host page",
		}, []string{"source", "result"}),
		ChatSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assistant_chat_switches_total",
			Help: "Conversation switches seen by the assist loop",
		}),
	}
	reg.MustRegister(m.FlowStarts, m.NodeVisits, m.Misses, m.Drafts, m.ChatSwitches)
	return m
}

// Hooks returns lifecycle hooks that log each event and record it.
// A nil logger disables logging; a nil receiver disables metrics.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	return domain.LifecycleHooks{
		OnFlowStart: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "flow_start", "conversation", e.ConversationID, "flow_id", e.FlowID)
			if m != nil {
				m.FlowStarts.WithLabelValues(e.FlowID).Inc()
			}
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_enter", "conversation", e.ConversationID, "flow_id", e.FlowID, "node_id", e.NodeID, "policy", e.Policy)
			if m != nil {
				m.NodeVisits.WithLabelValues(e.FlowID, e.NodeID).Inc()
			}
		},
		OnResolutionMiss: func(ctx context.Context, e *domain.MissEvent) {
			logger.DebugContext(ctx, "resolution_miss", "conversation", e.ConversationID, "flow_id", e.FlowID, "node_id", e.NodeID)
			if m != nil {
				m.Misses.WithLabelValues(e.FlowID, e.NodeID).Inc()
			}
		},
		OnDraft: func(ctx context.Context, e *domain.DraftEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
				logger.WarnContext(ctx, "draft", "conversation", e.ConversationID, "source", e.Draft.Source, "err", e.Err)
			} else {
				logger.InfoContext(ctx, "draft", "conversation", e.ConversationID, "source", e.Draft.Source)
			}
			if m != nil {
				m.Drafts.WithLabelValues(string(e.Draft.Source), result).Inc()
			}
		},
		OnChatSwitch: func(ctx context.Context, e *domain.EventBase) {
			logger.DebugContext(ctx, "chat_switch", "conversation", e.ConversationID)
			if m != nil {
				m.ChatSwitches.Inc()
			}
		},
	}
}

// Combine fans every event out to all hook sets, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowStart: func(ctx context.Context, e *domain.NodeEvent) {
			for _, s := range sets {
				if s.OnFlowStart != nil {
					s.OnFlowStart(ctx, e)
				}
			}
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			for _, s := range sets {
				if s.OnNodeEnter != nil {
					s.OnNodeEnter(ctx, e)
				}
			}
		},
		OnResolutionMiss: func(ctx context.Context, e *domain.MissEvent) {
			for _, s := range sets {
				if s.OnResolutionMiss != nil {
					s.OnResolutionMiss(ctx, e)
				}
			}
		},
		OnDraft: func(ctx context.Context, e *domain.DraftEvent) {
			for _, s := range sets {
				if s.OnDraft != nil {
					s.OnDraft(ctx, e)
				}
			}
		},
		OnChatSwitch: func(ctx context.Context, e *domain.EventBase) {
			for _, s := range sets {
				if s.OnChatSwitch != nil {
					s.OnChatSwitch(ctx, e)
				}
			}
		},
	}
}
