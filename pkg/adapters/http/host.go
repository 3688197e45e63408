package http

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// Host is a HostPage whose page side is a browser panel talking to the
// server: samples arrive through POST /observe and drafts leave over SSE.
type Host struct {
	streams *StreamManager

	mu     sync.Mutex
	sample ports.Sample
}

var _ ports.HostPage = (*Host)(nil)

// NewHost creates a host publishing on streams.
func NewHost(streams *StreamManager) *Host {
	return &Host{streams: streams}
}

// Record stores the latest page observation for the next Sample.
func (h *Host) Record(s ports.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sample = s
}

// Sample returns the last recorded observation.
func (h *Host) Sample(ctx context.Context) (ports.Sample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sample, nil
}

// InsertDraft pushes the draft to the connected panels. With nobody
// listening the compose box is unreachable.
func (h *Host) InsertDraft(ctx context.Context, d domain.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if h.streams.Broadcast(d.ConversationID, Event{Type: EventDraft, Data: data}) == 0 {
		return domain.ErrMissingHostElement
	}
	return nil
}

// ClearCompose asks the connected panels to empty the compose box.
func (h *Host) ClearCompose(ctx context.Context, conversationID string) error {
	data, _ := json.Marshal(map[string]string{"conversation_id": conversationID})
	if h.streams.Broadcast(conversationID, Event{Type: EventClear, Data: data}) == 0 {
		return domain.ErrMissingHostElement
	}
	return nil
}
