// Package app wires configuration into a running assistant: storage, catalog
// cache, rules, event fan-out and the session registry.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/cache"
	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/config"
	"github.com/shopmate/assistant-engine/internal/conversation"
	"github.com/shopmate/assistant-engine/internal/events"
	"github.com/shopmate/assistant-engine/internal/observability"
	"github.com/shopmate/assistant-engine/internal/storage"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Logger    *observability.Logger
	DB        *sql.DB
	Dialect   storage.Dialect
	Catalog   catalog.Catalog
	Assistant *assistant.Assistant
	Broker    events.Broker
	Sessions  *conversation.Manager

	redis   *cache.RedisClient
	closers []func() error
}

// NewLogger builds the process logger from the observability settings.
func NewLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
}

// OpenDatabase opens the configured catalog database.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, storage.Dialect, error) {
	opts := storage.Options{Driver: cfg.Database.Driver, DSN: cfg.DatabaseDSN()}
	switch cfg.Database.Driver {
	case "sqlite":
		opts.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
	case "postgres":
		opts.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
		opts.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
		opts.ConnMaxLifetime = cfg.Database.Postgres.ConnMaxLifetime
	}
	return storage.Open(ctx, opts)
}

// New builds every component. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (_ *App, err error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, dialect, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB, a.Dialect = db, dialect
	a.closers = append(a.closers, db.Close)

	if err := catalog.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	if cfg.UsesRedis() {
		r := cfg.Cache.Redis
		a.redis, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			PoolSize: r.PoolSize,
			Prefix:   r.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, a.redis.Close)
	}

	a.Catalog = a.buildCatalog(catalog.NewSQLCatalog(db, dialect))

	rules, err := assistant.LoadRules(cfg.Assistant.RulesPath)
	if err != nil {
		return nil, err
	}

	a.Assistant = assistant.New(a.Catalog, rules, assistant.Config{
		SearchLimit:    cfg.Assistant.SearchLimit,
		TopViewedLimit: cfg.Assistant.TopViewedLimit,
		NameMatch:      assistant.NameMatchMode(cfg.Assistant.NameMatch),
	}, logger.WithOperation("assistant"))

	if cfg.Events.Driver == "redis" {
		a.Broker = a.redis
	} else {
		broker := events.NewMemoryBroker(cfg.Events.Buffer)
		a.Broker = broker
		a.closers = append(a.closers, broker.Close)
	}

	a.Sessions = conversation.NewManager(a.Assistant, conversation.ManagerConfig{
		IdleTTL:     cfg.Session.IdleTTL,
		MaxSessions: cfg.Session.MaxSessions,
		SweepEvery:  cfg.Session.SweepEvery,
		Delay:       cfg.Assistant.ResponseDelay,
		ListenerFor: func(id string) conversation.Listener {
			return events.NewPublisher(a.Broker, id, logger)
		},
	}, logger)
	a.closers = append(a.closers, func() error {
		a.Sessions.Close()
		return nil
	})

	logger.Info().
		Str("database", string(dialect)).
		Str("cache", cfg.Cache.Driver).
		Str("events", cfg.Events.Driver).
		Str("name_match", cfg.Assistant.NameMatch).
		Msg("Assistant initialized")

	return a, nil
}

func (a *App) buildCatalog(backend *catalog.SQLCatalog) catalog.Catalog {
	cfg := a.Config.Cache
	switch cfg.Driver {
	case "memory":
		mem := cache.NewMemoryClient(cfg.MaxEntries)
		a.closers = append(a.closers, mem.Close)
		return catalog.NewCachedCatalog(backend, mem, cfg.TTL, a.Logger)
	case "redis":
		return catalog.NewCachedCatalog(backend, a.redis, cfg.TTL, a.Logger)
	default:
		return backend
	}
}

// Ready checks the database and, when configured, Redis.
func (a *App) Ready(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
