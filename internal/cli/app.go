package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/planner/internal/config"
	"github.com/mmynk/planner/internal/currency"
	"github.com/mmynk/planner/internal/habit"
	"github.com/mmynk/planner/internal/storage"
	"github.com/mmynk/planner/internal/storage/memory"
	"github.com/mmynk/planner/internal/storage/redis"
	"github.com/mmynk/planner/internal/storage/sqlite"
	"github.com/mmynk/planner/internal/store"
)

// app is the set of services every command works with.
type app struct {
	cfg      *config.Config
	kv       storage.KV
	store    *store.Store
	currency *currency.Service
	habits   *habit.Tracker
	loc      *time.Location
	now      func() time.Time
}

// openApp loads the configuration, opens the backend and hydrates every
// service from it.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	kv, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	storeOpts := store.Options{
		Logger: logger,
		OnWriteError: func(f store.WriteFailure) {
			if f.Kind == storage.FailureQuota {
				logger.Warn("Storage is full, changes are kept in memory only", "key", f.Key)
			}
		},
	}

	a := &app{
		cfg: cfg,
		kv:  kv,
		loc: loc,
		now: time.Now,
	}
	a.store = store.Open(ctx, kv, storeOpts)
	a.currency = currency.New(ctx, kv, currency.Options{Locale: cfg.Locale, Logger: logger})
	a.habits = habit.NewTracker(ctx, kv, storeOpts, habit.WithLocation(loc))
	return a, nil
}

// Close releases the backend.
func (a *app) Close() error {
	return a.kv.Close()
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		slog.Info("Storage initialized", "backend", "memory")
		return memory.New(int(cfg.Storage.QuotaBytes)), nil
	case config.BackendRedis:
		r := cfg.Storage.Redis
		kv, err := redis.New(ctx, redis.Config{Addr: r.Addr, Password: r.Password, DB: r.DB, Prefix: r.Prefix})
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", "redis", "addr", r.Addr)
		return kv, nil
	case config.BackendSQLite:
		kv, err := sqlite.New(cfg.Storage.Path, sqlite.WithQuota(cfg.Storage.QuotaBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		slog.Info("Storage initialized", "backend", "sqlite", "database", cfg.Storage.Path)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// clock returns the current time in the configured calendar.
func (a *app) clock() time.Time {
	return a.now().In(a.loc)
}
