package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petgalaxy/classroom-pets/config"
	"github.com/petgalaxy/classroom-pets/internal/application/eventhandler"
	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/messaging"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/redis"
	apihttp "github.com/petgalaxy/classroom-pets/internal/interface/http"
	"github.com/petgalaxy/classroom-pets/internal/interface/http/handlers"
	"github.com/petgalaxy/classroom-pets/pkg/circuitbreaker"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
	"github.com/petgalaxy/classroom-pets/pkg/retry"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classroom HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTP.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override HTTP_PORT")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting Pet Galaxy",
		logger.String("version", cfg.App.Version),
		logger.String("store", cfg.Store.Driver),
		logger.Bool("redis", cfg.Redis.Enabled),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = cfg.Events.Async
	busCfg.WorkerPoolSize = cfg.Events.Workers
	bus := messaging.NewInMemoryEventBus(busCfg)
	// Handlers use the cache and the store, so the bus must drain before
	// either closes. closeBus is deferred again once both are open.
	closeBus := sync.OnceFunc(func() {
		log.Info("closing event bus...")
		_ = bus.Close()
		if m := bus.Metrics(); m != nil {
			snap := m.Snapshot()
			log.Info("event bus stats",
				logger.Int64("published", snap.TotalPublished),
				logger.Int64("handler_runs", snap.TotalHandlerExecs),
				logger.Int64("handler_failures", snap.HandlerFailures),
				logger.Duration("avg_handler", snap.AverageHandlerDuration),
			)
		}
	})
	defer closeBus()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORE & CLASSROOM
	// ─────────────────────────────────────────────────────────────────────────
	room, st, err := openClassroom(ctx, cfg, log, bus)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing store...")
		_ = st.Close()
	}()

	snapshot := room.Snapshot()
	log.Info("classroom loaded",
		logger.String("class_name", snapshot.ClassName),
		logger.Int("students", len(snapshot.Students)),
		logger.Int("pets", len(snapshot.Pets)),
	)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("store", handlers.NewPingCheck(room))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS LEADERBOARD CACHE (optional)
	// ─────────────────────────────────────────────────────────────────────────
	subscribers := []eventhandler.Handler{eventhandler.NewActivityLogHandler(log)}

	var lbCache leaderboard.Cache
	if cfg.Redis.Enabled {
		cache, err := connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			defer func() { _ = cache.Close() }()
			redisLB := redis.NewGuardedCache(redis.NewLeaderboardCache(cache),
				circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed",
						logger.String("breaker", name),
						logger.String("from", from.String()),
						logger.String("to", to.String()),
					)
				}),
			)
			lbCache = redisLB
			health.AddOptionalCheck("cache", handlers.NewPingCheck(cache))

			refresher := eventhandler.NewLeaderboardRefreshHandler(room, redisLB, log)
			subscribers = append(subscribers, refresher)
			if err := refresher.Refresh(ctx); err != nil {
				log.Warn("initial leaderboard snapshot failed", logger.Err(err))
			}
		}
	}

	defer closeBus()

	if err := eventhandler.Register(bus, subscribers...); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := apihttp.NewServer(httpConfig(cfg), apihttp.Dependencies{
		Classroom:        room,
		LeaderboardCache: lbCache,
		HealthChecker:    health,
		Logger:           log,
	})
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("HTTP server shutdown failed", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Cache, error) {
	log.Info("connecting to Redis...", logger.String("addr", cfg.Addr))

	rc := redis.DefaultConfig()
	rc.Addr = cfg.Addr
	rc.Password = cfg.Password
	rc.DB = cfg.DB
	if cfg.Namespace != "" {
		rc.Namespace = cfg.Namespace
	}
	if cfg.PoolSize > 0 {
		rc.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		rc.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		rc.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		rc.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.SnapshotTTL > 0 {
		rc.TTL = cfg.SnapshotTTL
	}

	return retry.DoWithData(ctx, func(ctx context.Context) (*redis.Cache, error) {
		dialCtx, cancel := context.WithTimeout(ctx, rc.DialTimeout+time.Second)
		defer cancel()
		return redis.NewCache(dialCtx, rc)
	}, startupRetry(log, "redis")...)
}

func httpConfig(cfg *config.Config) apihttp.Config {
	hc := apihttp.DefaultConfig()
	hc.Host = cfg.HTTP.Host
	hc.Port = cfg.HTTP.Port
	hc.ReadTimeout = cfg.HTTP.ReadTimeout
	hc.WriteTimeout = cfg.HTTP.WriteTimeout
	hc.IdleTimeout = cfg.HTTP.IdleTimeout
	hc.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	hc.AllowedOrigins = cfg.HTTP.CORSOrigins
	hc.TeacherPasscodeHash = cfg.HTTP.TeacherPasscodeHash
	hc.Version = cfg.App.Version
	return hc
}
