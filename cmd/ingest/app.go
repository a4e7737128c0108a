package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ingest/internal/cache"
	"github.com/Veraticus/spice-ingest/internal/config"
	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/llm"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
	"github.com/Veraticus/spice-ingest/internal/storage"
	"github.com/Veraticus/spice-ingest/internal/throttle"
	"github.com/Veraticus/spice-ingest/internal/validator"
)

// app holds the wired pipeline and everything that must be closed with it.
type app struct {
	pool    *keypool.Manager
	service *pipeline.Service
	store   storage.Store
	logger  *slog.Logger
	closers []func()
	cfg     config.Config
}

// newApp wires the pipeline from cfg.
func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	if err := cfg.RequireAPIKeys(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: slog.Default()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	models, err := llm.NewModels(cfg.LLM)
	if err != nil {
		return nil, err
	}

	a.pool = keypool.NewManager(cfg.Pool, a.logger.With("component", "keypool"))
	a.pool.AddCredentials(cfg.APIKeys...)
	a.closers = append(a.closers, func() { _ = a.pool.Close() })

	completions, err := a.completionStore(ctx)
	if err != nil {
		return nil, err
	}
	throttler := throttle.New(cfg.Throttle, completions, a.logger.With("component", "throttle"))

	a.store, err = openStore(ctx, cfg.Storage, a.logger)
	if err != nil {
		return nil, err
	}

	var history validator.HistoryStore
	var recorder pipeline.Recorder
	if a.store != nil {
		store := a.store
		history = store
		recorder = store
		a.closers = append(a.closers, func() { _ = store.Close() })
	}

	checker := validator.New(cfg.Validator, history, a.logger.With("component", "validator"))
	a.closers = append(a.closers, checker.Close)

	a.service, err = pipeline.New(pipeline.Config{
		MaxRetries:    cfg.Pool.MaxRetries,
		MaxInputRunes: cfg.MaxInputRunes,
	}, pipeline.Deps{
		Models:    models,
		Pool:      a.pool,
		Throttler: throttler,
		Checker:   checker,
		Recorder:  recorder,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Pipeline ready",
		"provider", cfg.LLM.Provider,
		"keys", a.pool.Len(),
		"storage", cfg.Storage.Driver)
	return a, nil
}

// completionStore picks Redis when configured, otherwise an in-process cache.
func (a *app) completionStore(ctx context.Context) (cache.Store, error) {
	if a.cfg.Cache.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, a.cfg.Cache.RedisAddr, a.cfg.Cache.RedisPrefix, a.cfg.Cache.TTL, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	}

	mem := cache.New[string](a.cfg.Cache.MaxSize, a.cfg.Cache.TTL)
	a.closers = append(a.closers, mem.Close)
	return cache.NewMemoryStore(mem), nil
}

// openStore opens and migrates the configured history store. It returns nil
// when storage is disabled.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.Driver {
	case config.StorageNone:
		return nil, nil
	case config.StoragePostgres:
		store, err = storage.NewPostgresStore(ctx, cfg.PostgresDSN, logger)
	default:
		store, err = storage.NewSQLiteStore(cfg.Path, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate %s storage: %w", cfg.Driver, err)
	}
	return store, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
