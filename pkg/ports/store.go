package ports

import (
	"context"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// KVStore is the key-value persistence used by the template library.
// Values are opaque JSON documents.
type KVStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all keys starting with prefix ("" lists everything).
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// StateStore holds conversation states.
type StateStore interface {
	// Load returns the state of a conversation, or domain.ErrNotFound.
	Load(ctx context.Context, conversationID string) (domain.ConversationState, error)

	// Save replaces the state of a conversation.
	Save(ctx context.Context, conversationID string, state domain.ConversationState) error

	// List returns the ids of all known conversations.
	List(ctx context.Context) ([]string, error)
}
