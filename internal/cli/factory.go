// Package cli assembles the assistant from configuration for the commands
// in cmd/assistant.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jnickzlim/wa-chrome-assistance/internal/config"
	"github.com/jnickzlim/wa-chrome-assistance/internal/runtime"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/file"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/memory"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/redis"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/sqlite"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/bridge"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/conversation"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/library"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/persistence/middleware"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// OpenKV opens the configured library backend, wrapped with encryption when
// a key is set. The returned closer releases the backend.
func OpenKV(cfg config.StoreConfig) (ports.KVStore, io.Closer, error) {
	var (
		kv     ports.KVStore
		closer io.Closer = nopCloser{}
	)

	switch cfg.Type {
	case config.StoreMemory, "":
		kv = memory.NewKV()
	case config.StoreFile:
		kv = file.New(cfg.Path)
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		kv, closer = s, s
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		kv, closer = s, s
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}

	key, err := cfg.Key()
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	if key != nil {
		kv = middleware.Chain(kv, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return kv, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// App is the assembled core shared by every surface.
type App struct {
	Library    *library.Library
	Table      *conversation.Table
	Engine     *runtime.Engine
	Controller *controller.Controller

	closer io.Closer
}

// Close releases the library backend.
func (a *App) Close() error {
	return a.closer.Close()
}

// AppOptions carries the surface-specific pieces.
type AppOptions struct {
	Host      ports.HostPage
	Hooks     domain.LifecycleHooks
	OnChange  conversation.ChangeFunc
	Logger    *slog.Logger
	NoBridges bool
}

// NewApp opens the library, seeds it on first use and builds the controller.
func NewApp(ctx context.Context, cfg config.Config, opts AppOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kv, closer, err := OpenKV(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	lib := library.New(kv, library.WithLogger(logger))
	if err := lib.Init(ctx); err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize library: %w", err)
	}

	tableOpts := []conversation.Option{conversation.WithLogger(logger)}
	if opts.OnChange != nil {
		tableOpts = append(tableOpts, conversation.OnChange(opts.OnChange))
	}
	table := conversation.NewTable(tableOpts...)

	engine := runtime.NewEngine(lib,
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(opts.Hooks),
	)

	ctrlOpts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithLifecycleHooks(opts.Hooks),
	}
	if !opts.NoBridges {
		ctrlOpts = append(ctrlOpts, bridgeOptions(cfg, logger)...)
	}

	return &App{
		Library:    lib,
		Table:      table,
		Engine:     engine,
		Controller: controller.New(table, engine, opts.Host, ctrlOpts...),
		closer:     closer,
	}, nil
}

func bridgeOptions(cfg config.Config, logger *slog.Logger) []controller.Option {
	var translatorOpts []bridge.TranslatorOption
	if cfg.Translate.Endpoint != "" {
		translatorOpts = append(translatorOpts, bridge.WithEndpoint(cfg.Translate.Endpoint))
	}
	opts := []controller.Option{controller.WithTranslator(bridge.NewTranslator(translatorOpts...))}

	refiner, err := bridge.NewRefiner(bridge.RefinerConfig{
		APIKey:  cfg.Refine.APIKey,
		Model:   cfg.Refine.Model,
		BaseURL: cfg.Refine.BaseURL,
	})
	if err != nil {
		logger.Info("AI refine disabled", "err", err)
		return opts
	}
	return append(opts, controller.WithRefiner(refiner))
}
