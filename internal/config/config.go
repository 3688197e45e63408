// Package config loads assistant settings from a YAML file, a .env file and
// the environment, in that order of precedence (later wins).
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	Addr         string        `yaml:"addr"`
	LogLevel     string        `yaml:"log_level"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Assist       bool          `yaml:"assist"`

	Store     StoreConfig     `yaml:"store"`
	Translate TranslateConfig `yaml:"translate"`
	Refine    RefineConfig    `yaml:"refine"`
}

// StoreConfig selects where the library is kept.
type StoreConfig struct {
	Type          string `yaml:"type"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Prefix        string `yaml:"prefix"`
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

// TranslateConfig configures the translation bridge.
type TranslateConfig struct {
	Endpoint   string `yaml:"endpoint"`
	TargetLang string `yaml:"target_lang"`
}

// RefineConfig configures the AI refine bridge. The bridge is off without an API key.
type RefineConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         ":8080",
		LogLevel:     "info",
		PollInterval: time.Second,
		Store: StoreConfig{
			Type: StoreMemory,
			Path: "assistant-data",
		},
		Translate: TranslateConfig{TargetLang: "en"},
		Refine:    RefineConfig{Model: "gpt-4o-mini"},
	}
}

// Load builds the configuration. path may be empty. envFiles default to
// ".env"; missing env files are ignored, a missing config file is not.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load env file: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("ASSISTANT_ADDR", &cfg.Addr)
	str("ASSISTANT_LOG_LEVEL", &cfg.LogLevel)
	str("ASSISTANT_STORE", &cfg.Store.Type)
	str("ASSISTANT_STORE_PATH", &cfg.Store.Path)
	str("ASSISTANT_STORE_PREFIX", &cfg.Store.Prefix)
	str("ASSISTANT_REDIS_ADDR", &cfg.Store.RedisAddr)
	str("ASSISTANT_REDIS_PASSWORD", &cfg.Store.RedisPassword)
	str("ASSISTANT_ENCRYPTION_KEY", &cfg.Store.EncryptionKey)
	str("ASSISTANT_TRANSLATE_ENDPOINT", &cfg.Translate.Endpoint)
	str("ASSISTANT_TARGET_LANG", &cfg.Translate.TargetLang)
	str("OPENAI_API_KEY", &cfg.Refine.APIKey)
	str("OPENAI_BASE_URL", &cfg.Refine.BaseURL)
	str("ASSISTANT_REFINE_MODEL", &cfg.Refine.Model)

	if v, ok := lookup("ASSISTANT_POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ASSISTANT_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v, ok := lookup("ASSISTANT_REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ASSISTANT_REDIS_DB: %w", err)
		}
		cfg.Store.RedisDB = db
	}
	if v, ok := lookup("ASSISTANT_ASSIST"); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ASSISTANT_ASSIST: %w", err)
		}
		cfg.Assist = on
	}
	return nil
}

// Validate checks values that would only fail later at startup.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	switch c.Store.Type {
	case StoreMemory, StoreFile, StoreSQLite:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("redis store requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if _, err := c.Store.Key(); err != nil {
		return err
	}
	return nil
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (s StoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: want 32 bytes, got %d", len(key))
	}
	return key, nil
}
