package ports

import (
	"context"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Sample is what the assist loop reads from the host page on each tick.
type Sample struct {
	// Title is the display title of the open conversation ("" when unknown).
	Title string
	// LatestIncoming is the newest counterparty message ("" when none is visible).
	LatestIncoming string
	// RecentText is the concatenation of the last few incoming messages, used for suggestions.
	RecentText string
}

// HostPage is the boundary to the page hosting the messaging client.
// Implementations must never submit the compose box.
type HostPage interface {
	// Sample reads the active conversation and its newest incoming message.
	Sample(ctx context.Context) (Sample, error)

	// InsertDraft places text in the compose box.
	// Returns domain.ErrMissingHostElement when the compose box cannot be found.
	InsertDraft(ctx context.Context, draft domain.Draft) error

	// ClearCompose empties the compose box of a conversation.
	ClearCompose(ctx context.Context, conversationID string) error
}
