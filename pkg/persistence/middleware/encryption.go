package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables key rotation without rewriting the library.
	FallbackKeys [][]byte
}

// envelope is what actually lands in the wrapped store.
type envelope struct {
	Encrypted string `json:"__encrypted__"`
}

type encryptionMiddleware struct {
	next   ports.KVStore
	active cipher.AEAD
	// tried in order after active
	fallbacks []cipher.AEAD
}

// NewEncryptionMiddleware creates a middleware that encrypts values using AES-GCM.
// Keys stay in clear text so listing by prefix keeps working; each value is
// bound to its key, so a ciphertext copied under another key does not open.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	active, err := newAEAD(config.ActiveKey)
	if err != nil {
		panic(fmt.Sprintf("invalid active key: %v", err))
	}
	fallbacks := make([]cipher.AEAD, 0, len(config.FallbackKeys))
	for i, key := range config.FallbackKeys {
		aead, err := newAEAD(key)
		if err != nil {
			panic(fmt.Sprintf("invalid fallback key %d: %v", i, err))
		}
		fallbacks = append(fallbacks, aead)
	}

	return func(next ports.KVStore) ports.KVStore {
		return &encryptionMiddleware{
			next:      next,
			active:    active,
			fallbacks: fallbacks,
		}
	}
}

func (m *encryptionMiddleware) Set(ctx context.Context, key string, value []byte) error {
	nonce := make([]byte, m.active.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to encrypt value: %w", err)
	}
	sealed := m.active.Seal(nonce, nonce, value, []byte(key))

	data, err := json.Marshal(envelope{Encrypted: base64.StdEncoding.EncodeToString(sealed)})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return m.next.Set(ctx, key, data)
}

func (m *encryptionMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := m.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Encrypted == "" {
		// Plain values are refused once encryption is configured.
		return nil, errors.New("value is missing encrypted data envelope")
	}

	sealed, err := base64.StdEncoding.DecodeString(env.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	if plain, err := open(m.active, sealed, key); err == nil {
		return plain, nil
	}
	for _, aead := range m.fallbacks {
		if plain, err := open(aead, sealed, key); err == nil {
			return plain, nil
		}
	}
	return nil, fmt.Errorf("failed to decrypt %q with any configured key", key)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.next.Keys(ctx, prefix)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// open expects the nonce prepended to the ciphertext, as Set writes it.
func open(aead cipher.AEAD, sealed []byte, key string) ([]byte, error) {
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("ciphertext too short")
	}
	return aead.Open(nil, sealed[:n], sealed[n:], []byte(key))
}
