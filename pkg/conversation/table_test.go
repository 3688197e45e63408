package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_GetCreatesDefault(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	state, err := table.Get(ctx, "Ana")
	require.NoError(t, err)
	assert.Equal(t, domain.NewConversationState("Ana"), state)

	again, err := table.Get(ctx, "Ana")
	require.NoError(t, err)
	assert.Equal(t, state, again, "Get is idempotent")

	ids, err := table.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, ids)
}

func TestTable_SetReplaces(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	want := domain.ConversationState{
		FlowID:          "f1",
		NodeID:          "w",
		Status:          domain.StatusActive,
		LastSeenMessage: "",
	}
	require.NoError(t, table.Set(ctx, "Ana", want))

	got, err := table.Get(ctx, "Ana")
	require.NoError(t, err)
	want.ConversationID = "Ana"
	assert.Equal(t, want, got)
}

func TestTable_UpdateFailureWritesNothing(t *testing.T) {
	table := NewTable()
	ctx := context.Background()
	boom := errors.New("boom")

	out, err := table.Update(ctx, "Ana", func(s domain.ConversationState) (domain.ConversationState, error) {
		s.FlowID = "f1"
		return s, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, out.FlowID)

	got, err := table.Get(ctx, "Ana")
	require.NoError(t, err)
	assert.Empty(t, got.FlowID)
}

func TestTable_OnChangeReceivesDiff(t *testing.T) {
	var diffs []*domain.StateDiff
	table := NewTable(OnChange(func(_ context.Context, _ domain.ConversationState, d *domain.StateDiff) {
		diffs = append(diffs, d)
	}))
	ctx := context.Background()

	_, err := table.Update(ctx, "Ana", func(s domain.ConversationState) (domain.ConversationState, error) {
		s.FlowID, s.NodeID, s.Status = "f1", "w", domain.StatusActive
		return s, nil
	})
	require.NoError(t, err)

	// No-op update emits nothing.
	_, err = table.Update(ctx, "Ana", func(s domain.ConversationState) (domain.ConversationState, error) {
		return s, nil
	})
	require.NoError(t, err)

	require.Len(t, diffs, 1)
	assert.Equal(t, "Ana", diffs[0].ConversationID)
	require.NotNil(t, diffs[0].NodeID)
	assert.Equal(t, "w", *diffs[0].NodeID)
	assert.Nil(t, diffs[0].LastSeenMessage)
}

func TestTable_ConcurrentUpdatesAreSerialized(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := table.Update(ctx, "Ana", func(s domain.ConversationState) (domain.ConversationState, error) {
				n := 0
				_, _ = fmt.Sscanf(s.LastSeenMessage, "%d", &n)
				s.LastSeenMessage = fmt.Sprint(n + 1)
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := table.Get(ctx, "Ana")
	require.NoError(t, err)
	assert.Equal(t, "100", got.LastSeenMessage)
}

func TestTable_LocksAreReleased(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := table.Get(ctx, fmt.Sprintf("chat-%d", i))
		require.NoError(t, err)
	}

	table.mu.Lock()
	defer table.mu.Unlock()
	assert.Empty(t, table.locks)
}

type brokenStore struct {
	saveErr error
	saved   map[string]domain.ConversationState
}

func (s *brokenStore) Save(ctx context.Context, id string, state domain.ConversationState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.saved == nil {
		s.saved = map[string]domain.ConversationState{}
	}
	s.saved[id] = state
	return nil
}

func (s *brokenStore) Load(ctx context.Context, id string) (domain.ConversationState, error) {
	state, ok := s.saved[id]
	if !ok {
		return domain.ConversationState{}, domain.ErrNotFound
	}
	return state, nil
}

func (s *brokenStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.saved))
	for id := range s.saved {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestTable_StoreFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	t.Run("Create fails", func(t *testing.T) {
		table := NewTable(WithStore(&brokenStore{saveErr: boom}))
		_, err := table.Get(ctx, "Ana")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Save fails without notifying", func(t *testing.T) {
		store := &brokenStore{}
		notified := 0
		table := NewTable(WithStore(store), OnChange(func(context.Context, domain.ConversationState, *domain.StateDiff) {
			notified++
		}))
		_, err := table.Get(ctx, "Ana")
		require.NoError(t, err)

		store.saveErr = boom
		got, err := table.Update(ctx, "Ana", func(s domain.ConversationState) (domain.ConversationState, error) {
			s.FlowID = "f1"
			return s, nil
		})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, got.FlowID, "the previous state is returned")
		assert.Zero(t, notified)
	})
}
