package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Conversation states live only for the lifetime of the process.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.ConversationState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory state store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.ConversationState),
	}
}

// Save persists the state in memory.
func (s *Store) Save(ctx context.Context, conversationID string, state domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conversationID] = state
	return nil
}

// Load retrieves the state from memory.
// ConversationState has no reference fields, so the returned value is already a copy.
func (s *Store) Load(ctx context.Context, conversationID string) (domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[conversationID]
	if !ok {
		return domain.ConversationState{}, domain.ErrNotFound
	}
	return state, nil
}

// List returns known conversations in deterministic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// KV implements ports.KVStore in memory.
// Safe for concurrent use.
type KV struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewKV creates a new in-memory key-value store.
func NewKV() *KV {
	return &KV{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the stored value so callers can't mutate the store by reference.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	val, ok := k.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Set stores a copy of value.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = stored
	return nil
}

// Delete removes the key.
func (k *KV) Delete(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

// Keys lists keys with the given prefix.
func (k *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([]string, 0, len(k.data))
	for key := range k.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
