package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "en", cfg.Translate.TargetLang)
	assert.Equal(t, "gpt-4o-mini", cfg.Refine.Model)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assistant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
poll_interval: 250ms
store:
  type: sqlite
  path: /tmp/assistant.db
refine:
  model: gpt-4o
`), 0o644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ASSISTANT_TARGET_LANG=pt\n"), 0o644))

	t.Setenv("ASSISTANT_ADDR", ":9100")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	t.Cleanup(func() { os.Unsetenv("ASSISTANT_TARGET_LANG") })
	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr, "env wins over file")
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, StoreSQLite, cfg.Store.Type)
	assert.Equal(t, "/tmp/assistant.db", cfg.Store.Path)
	assert.Equal(t, "gpt-4o", cfg.Refine.Model)
	assert.Equal(t, "sk-test", cfg.Refine.APIKey)
	assert.Equal(t, "pt", cfg.Translate.TargetLang)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ASSISTANT_POLL_INTERVAL": "2s",
		"ASSISTANT_REDIS_DB":      "3",
		"ASSISTANT_ASSIST":        "true",
		"ASSISTANT_STORE":         "redis",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, applyEnv(&cfg, lookup))
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.True(t, cfg.Assist)
	assert.Equal(t, StoreRedis, cfg.Store.Type)

	env["ASSISTANT_POLL_INTERVAL"] = "soon"
	assert.Error(t, applyEnv(&cfg, lookup))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Store.Type = "mongo"
	assert.ErrorContains(t, cfg.Validate(), "unknown store type")

	cfg = Default()
	cfg.Store.Type = StoreRedis
	assert.Error(t, cfg.Validate())
	cfg.Store.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestStoreConfig_Key(t *testing.T) {
	key, err := StoreConfig{}.Key()
	require.NoError(t, err)
	assert.Nil(t, key)

	raw := []byte(strings.Repeat("k", 32))
	key, err = StoreConfig{EncryptionKey: base64.StdEncoding.EncodeToString(raw)}.Key()
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	_, err = StoreConfig{EncryptionKey: base64.StdEncoding.EncodeToString([]byte("short"))}.Key()
	assert.Error(t, err)
	_, err = StoreConfig{EncryptionKey: "%%%"}.Key()
	assert.Error(t, err)
}
