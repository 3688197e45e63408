package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/memory"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// ChangeFunc is called after a state was replaced, while the conversation lock is held.
type ChangeFunc func(ctx context.Context, state domain.ConversationState, diff *domain.StateDiff)

// Table maps conversation ids to their state.
// It uses reference counting to garbage collect unused locks. Entries
// themselves are never evicted.
type Table struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	onChange []ChangeFunc
	logger   *slog.Logger
}

// Option configures the Table.
type Option func(*Table)

// WithStore replaces the default in-memory state store.
func WithStore(store ports.StateStore) Option {
	return func(t *Table) {
		t.store = store
	}
}

// WithLogger configures a logger for the Table.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// OnChange registers a callback fired with the diff of every effective change.
func OnChange(fn ChangeFunc) Option {
	return func(t *Table) {
		t.onChange = append(t.onChange, fn)
	}
}

// NewTable creates an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		store:  memory.NewStore(),
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// acquire gets or creates a lock entry and increments its reference count.
func (t *Table) acquire(id string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.locks[id]
	if !exists {
		entry = &lockEntry{}
		t.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (t *Table) release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(t.locks, id)
	}
}

// WithLock executes fn while holding the lock for the conversation.
// fn must not call back into the table for the same id.
func (t *Table) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := t.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		t.release(id)
	}()

	return fn(ctx)
}

// Get returns the state of a conversation, creating the idle default the
// first time the id is seen. Repeated calls return the same record.
func (t *Table) Get(ctx context.Context, id string) (domain.ConversationState, error) {
	var state domain.ConversationState
	err := t.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		state, err = t.loadOrCreate(ctx, id)
		return err
	})
	return state, err
}

// Set replaces the state of a conversation.
func (t *Table) Set(ctx context.Context, id string, state domain.ConversationState) error {
	return t.WithLock(ctx, id, func(ctx context.Context) error {
		old, err := t.loadOrCreate(ctx, id)
		if err != nil {
			return err
		}
		return t.replace(ctx, id, old, state)
	})
}

// Update runs fn on the current state under the conversation lock and stores
// its result. When fn fails nothing is written.
func (t *Table) Update(ctx context.Context, id string, fn func(domain.ConversationState) (domain.ConversationState, error)) (domain.ConversationState, error) {
	var out domain.ConversationState
	err := t.WithLock(ctx, id, func(ctx context.Context) error {
		old, err := t.loadOrCreate(ctx, id)
		if err != nil {
			return err
		}

		next, err := fn(old)
		if err != nil {
			out = old
			return err
		}
		if err := t.replace(ctx, id, old, next); err != nil {
			out = old
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// List returns the ids of every known conversation.
func (t *Table) List(ctx context.Context) ([]string, error) {
	return t.store.List(ctx)
}

func (t *Table) loadOrCreate(ctx context.Context, id string) (domain.ConversationState, error) {
	state, err := t.store.Load(ctx, id)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return state, fmt.Errorf("failed to load conversation %q: %w", id, err)
	}

	state = domain.NewConversationState(id)
	if err := t.store.Save(ctx, id, state); err != nil {
		return state, fmt.Errorf("failed to create conversation %q: %w", id, err)
	}
	t.logger.Debug("conversation created", "conversation", id)
	return state, nil
}

func (t *Table) replace(ctx context.Context, id string, old, next domain.ConversationState) error {
	next.ConversationID = id
	diff := domain.Diff(&old, &next)
	if diff == nil {
		return nil
	}

	if err := t.store.Save(ctx, id, next); err != nil {
		return fmt.Errorf("failed to save conversation %q: %w", id, err)
	}
	for _, fn := range t.onChange {
		fn(ctx, next, diff)
	}
	return nil
}
