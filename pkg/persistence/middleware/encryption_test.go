package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/memory"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/persistence/middleware"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunKVStoreContract(t, mw(memory.NewKV()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewKV()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Set(ctx, "tpl_t1", []byte(`{"content":"my-secret-sauce"}`)))

	raw, err := underlying.Get(ctx, "tpl_t1")
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "my-secret-sauce"), "value must be hidden in the wrapped store")
	assert.Contains(t, string(raw), "__encrypted__")

	plain, err := secure.Get(ctx, "tpl_t1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"my-secret-sauce"}`, string(plain))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewKV()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, secureOld.Set(ctx, "rules", []byte(`"old"`)))

	secureNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	got, err := secureNew.Get(ctx, "rules")
	require.NoError(t, err, "fallback key should decrypt old data")
	assert.Equal(t, `"old"`, string(got))

	require.NoError(t, secureNew.Set(ctx, "rules", []byte(`"new"`)))

	_, err = secureOld.Get(ctx, "rules")
	assert.Error(t, err, "old key alone must not decrypt data written with the new key")
}

func TestEncryptionMiddleware_ValueBoundToKey(t *testing.T) {
	underlying := memory.NewKV()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Set(ctx, "tpl_a", []byte(`"a"`)))
	raw, err := underlying.Get(ctx, "tpl_a")
	require.NoError(t, err)
	require.NoError(t, underlying.Set(ctx, "tpl_b", raw))

	_, err = secure.Get(ctx, "tpl_b")
	assert.Error(t, err, "a value moved to another key must not decrypt")
}

func TestEncryptionMiddleware_RejectsPlainValues(t *testing.T) {
	underlying := memory.NewKV()
	ctx := context.Background()
	require.NoError(t, underlying.Set(ctx, "flows", []byte(`[]`)))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Get(ctx, "flows")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	var calls []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.KVStore) ports.KVStore {
			return &recordingStore{KVStore: next, name: name, calls: &calls}
		}
	}

	store := middleware.Chain(memory.NewKV(), tag("outer"), tag("inner"))
	require.NoError(t, store.Set(context.Background(), "k", []byte(`1`)))
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

type recordingStore struct {
	ports.KVStore
	name  string
	calls *[]string
}

func (r *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	*r.calls = append(*r.calls, r.name)
	return r.KVStore.Set(ctx, key, value)
}
