package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKVStoreContract runs a suite of tests to verify that a KVStore implementation
// adheres to the defined interface contract.
func RunKVStoreContract(t *testing.T, store KVStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + "-"

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "a"
		err := store.Set(ctx, key, []byte(`{"title":"Greeting"}`))
		require.NoError(t, err, "Set should not return error")

		got, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.JSONEq(t, `{"title":"Greeting"}`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "b"
		require.NoError(t, store.Set(ctx, key, []byte(`1`)))
		require.NoError(t, store.Set(ctx, key, []byte(`2`)))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "c"
		require.NoError(t, store.Set(ctx, key, []byte(`"x"`)))
		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrNotFound, "Get after Delete should return ErrNotFound")

		assert.NoError(t, store.Delete(ctx, key), "Deleting twice should be a no-op")
	})

	t.Run("Keys", func(t *testing.T) {
		scoped := prefix + "tpl_"
		require.NoError(t, store.Set(ctx, scoped+"1", []byte(`1`)))
		require.NoError(t, store.Set(ctx, scoped+"2", []byte(`2`)))
		require.NoError(t, store.Set(ctx, prefix+"rules", []byte(`[]`)))

		keys, err := store.Keys(ctx, scoped)
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{scoped + "1", scoped + "2"}, keys)

		all, err := store.Keys(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, all, prefix+"rules")
	})
}
