package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Event types pushed to panels over SSE.
const (
	EventDraft   = "draft"
	EventClear   = "clear"
	EventDiff    = "diff"
	EventRewrite = "rewrite"
	EventMiss    = "miss"
	EventSwitch  = "switch"
)

// Event is one SSE message.
type Event struct {
	Type string
	Data []byte
}

// StreamManager handles active SSE connections. Subscribers to the empty
// conversation id receive every event.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Event]struct{} // ConversationID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(conversationID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 10)
	if _, ok := sm.subscribers[conversationID]; !ok {
		sm.subscribers[conversationID] = make(map[chan<- Event]struct{})
	}
	sm.subscribers[conversationID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[conversationID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, conversationID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends ev to the conversation's listeners and to the catch-all
// listeners. It returns how many listeners took the event.
func (sm *StreamManager) Broadcast(conversationID string, ev Event) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	delivered := 0
	send := func(subs map[chan<- Event]struct{}) {
		for ch := range subs {
			select {
			case ch <- ev:
				delivered++
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "conversation", conversationID, "event", ev.Type)
			}
		}
	}
	send(sm.subscribers[conversationID])
	if conversationID != "" {
		send(sm.subscribers[""])
	}
	return delivered
}

// PublishDiff streams table changes. It is registered with conversation.OnChange.
func (sm *StreamManager) PublishDiff(ctx context.Context, state domain.ConversationState, diff *domain.StateDiff) {
	sm.publish(state.ConversationID, EventDiff, diff)
}

// Hooks streams resolution misses and chat switches so panels can react to them.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResolutionMiss: func(ctx context.Context, e *domain.MissEvent) {
			sm.publish(e.ConversationID, EventMiss, e)
		},
		OnChatSwitch: func(ctx context.Context, e *domain.EventBase) {
			sm.publish(e.ConversationID, EventSwitch, e)
		},
	}
}

func (sm *StreamManager) publish(conversationID, typ string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		sm.logger.Error("Failed to encode event", "conversation", conversationID, "event", typ, "err", err)
		return
	}
	sm.Broadcast(conversationID, Event{Type: typ, Data: data})
}
