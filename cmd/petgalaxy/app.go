package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/petgalaxy/classroom-pets/config"
	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/memory"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/postgres"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/sqlite"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
	"github.com/petgalaxy/classroom-pets/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED WIRING
// ══════════════════════════════════════════════════════════════════════════════

// store is a classroom.Store that owns a connection.
type store interface {
	classroom.Store
	Close() error
}

// loadConfig reads the dotenv file (if present) and the environment.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.Version = version
	return cfg, nil
}

// setupLogger builds the zap-backed logger from observability settings.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Output = os.Stderr
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.Format(cfg.Observability.LogFormat)
	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

// openStore opens the configured backend, applying migrations.
func openStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (store, error) {
	log = log.With(logger.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverSQLite:
		log.Info("opening sqlite store", logger.String("path", cfg.SQLitePath))
		return sqlite.Open(ctx, cfg.SQLitePath)

	case config.DriverPostgres:
		log.Info("connecting to database...")
		pg := postgres.DefaultConfig()
		pg.URL = cfg.Database.URL
		if cfg.Database.MaxConns > 0 {
			pg.MaxConns = int32(cfg.Database.MaxConns)
		}
		if cfg.Database.MinConns > 0 {
			pg.MinConns = int32(cfg.Database.MinConns)
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			pg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		}
		if cfg.Database.ConnMaxIdleTime > 0 {
			pg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		}
		pgStore, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Store, error) {
			return postgres.Open(ctx, pg)
		}, startupRetry(log, "database")...)
		if err != nil {
			return nil, err
		}
		return pgStore, nil

	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on exit")
		return memoryStore{memory.NewStore()}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// startupRetry retries a dependency that may still be booting next to us.
func startupRetry(log *logger.Logger, target string) []retry.Option {
	return append(retry.StartupOptions(), retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		log.Warn("connection attempt failed, retrying",
			logger.String("target", target),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}))
}

type memoryStore struct {
	*memory.Store
}

func (memoryStore) Close() error { return nil }

// openClassroom opens the store and loads the container from it.
// events may be nil.
func openClassroom(ctx context.Context, cfg *config.Config, log *logger.Logger, events shared.EventPublisher) (*classroom.Container, store, error) {
	st, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	c := classroom.NewContainer(classroom.Dependencies{
		Store:  st,
		Events: events,
		Env:    classroom.NewEnv(),
		Logger: log,
	})
	if err := c.Load(ctx); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to load classroom: %w", err)
	}
	return c, st, nil
}
