// Package main is the entry point for the LearnHub gamification API.
//
// The server owns learner progress: XP and levels, badges, daily streaks and
// the jobs-board gate. Progress lives in memory, PostgreSQL or Redis,
// selected by STORAGE_BACKEND.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/empower-sl/learnhub/config"
	"github.com/empower-sl/learnhub/internal/application/command"
	"github.com/empower-sl/learnhub/internal/application/eventhandler"
	"github.com/empower-sl/learnhub/internal/application/query"
	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/infrastructure/catalog"
	"github.com/empower-sl/learnhub/internal/infrastructure/messaging"
	"github.com/empower-sl/learnhub/internal/infrastructure/persistence/memory"
	"github.com/empower-sl/learnhub/internal/infrastructure/persistence/postgres"
	"github.com/empower-sl/learnhub/internal/infrastructure/persistence/redis"
	httpserver "github.com/empower-sl/learnhub/internal/interface/http"
	"github.com/empower-sl/learnhub/internal/interface/http/handlers"
	"github.com/empower-sl/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration & logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting LearnHub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("storage", cfg.Storage.Backend),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Progress store
	// ─────────────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Badge catalog
	// ─────────────────────────────────────────────────────────────────────────
	cat, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to load badge catalog: %w", err)
	}
	log.Info("badge catalog loaded", logger.Int("badges", cat.Len()))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Event bus & notifier
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("event bus close", logger.Err(err))
		}
	}()

	notifierCfg := eventhandler.DefaultNotifierConfig()
	notifierCfg.FeedSize = cfg.Gamification.NotificationFeedSize
	notifier := eventhandler.NewNotifier(log, notifierCfg)
	if err := notifier.Register(bus); err != nil {
		return fmt.Errorf("failed to register notifier: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Engine & queries
	// ─────────────────────────────────────────────────────────────────────────
	engineCfg := command.DefaultEngineConfig()
	engineCfg.Location = cfg.App.Location
	engineCfg.EarlyStudyHour = cfg.Gamification.EarlyStudyHour
	engineCfg.LateStudyHour = cfg.Gamification.LateStudyHour
	engineCfg.QuizPassPercent = cfg.Gamification.QuizPassPercent

	engine := command.NewEngine(store, cat, bus, nil, log, engineCfg)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("progress_store", handlers.NewPingCheck(store))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	srvCfg := httpserver.Config{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:  1 << 20,
		AllowedOrigins:  cfg.HTTP.CORSOrigins,
		AdminAPIKeyHash: cfg.HTTP.AdminAPIKeyHash,
		Version:         cfg.App.Version,
	}
	if srvCfg.AdminAPIKeyHash == "" {
		log.Warn("ADMIN_API_KEY_HASH is not set, admin routes are closed")
	}

	server := httpserver.NewServer(srvCfg, httpserver.Dependencies{
		Engine:        engine,
		Summary:       query.NewGetProgressSummaryHandler(engine, cat),
		Badges:        query.NewBadgeQueries(engine, cat),
		Notifier:      notifier,
		HealthChecker: health,
		Logger:        log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Serve until a signal arrives
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("LearnHub stopped")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.Format(cfg.Observability.LogFormat)
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

func loadCatalog(cfg *config.Config) (*progress.Catalog, error) {
	if cfg.Gamification.BadgeCatalogPath != "" {
		return catalog.Load(cfg.Gamification.BadgeCatalogPath)
	}
	return catalog.Bundled()
}

// storeWithPing is the store the engine and the health check share.
type storeWithPing interface {
	progress.Store
	progress.Pinger
}

// openStore builds the configured progress store and returns a closer for
// the connections it opened.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (storeWithPing, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	connectRedis := func() (*redis.Cache, error) {
		rc := cfg.Storage.Redis
		redisCfg := redis.DefaultConfig()
		redisCfg.URL = rc.URL
		redisCfg.Host = rc.Host
		redisCfg.Port = rc.Port
		redisCfg.Password = rc.Password
		redisCfg.DB = rc.DB
		redisCfg.PoolSize = rc.PoolSize
		redisCfg.MinIdleConns = rc.MinIdleConns
		if rc.DialTimeout > 0 {
			redisCfg.DialTimeout = rc.DialTimeout
		}
		if rc.ReadTimeout > 0 {
			redisCfg.ReadTimeout = rc.ReadTimeout
		}
		if rc.WriteTimeout > 0 {
			redisCfg.WriteTimeout = rc.WriteTimeout
		}

		cache, err := redis.NewCache(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() {
			log.Info("closing redis connection")
			_ = cache.Close()
		})
		log.Info("redis connection established", logger.String("addr", redisCfg.Addr()))
		return cache, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory progress store, data is lost on restart")
		return memory.NewProgressStore(), closeAll, nil

	case config.BackendRedis:
		cache, err := connectRedis()
		if err != nil {
			return nil, closeAll, err
		}
		return redis.NewProgressStore(cache, nil), closeAll, nil

	case config.BackendPostgres:
		db := cfg.Storage.Database
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = db.URL
		pgCfg.Host = db.Host
		pgCfg.Port = db.Port
		pgCfg.Database = db.Name
		pgCfg.User = db.User
		pgCfg.Password = db.Password
		pgCfg.SSLMode = db.SSLMode
		pgCfg.MaxConns = db.MaxConns
		pgCfg.MinConns = db.MinConns
		if db.ConnMaxLifetime > 0 {
			pgCfg.MaxConnLifetime = db.ConnMaxLifetime
		}
		if db.ConnMaxIdleTime > 0 {
			pgCfg.MaxConnIdleTime = db.ConnMaxIdleTime
		}

		log.Info("connecting to database")
		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, func() {
			log.Info("closing database connection")
			conn.Close()
		})

		if db.AutoMigrate {
			start := time.Now()
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				closeAll()
				return nil, func() {}, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date",
				logger.Int("applied", applied),
				logger.Latency(time.Since(start)),
			)
		}

		var store storeWithPing = postgres.NewProgressStore(conn.Pool(), nil)
		if cfg.Storage.CacheEnabled {
			cache, err := connectRedis()
			if err != nil {
				closeAll()
				return nil, func() {}, err
			}
			store = redis.NewCachedStore(store, cache, cfg.Storage.CacheTTL, log)
			log.Info("redis read-through cache enabled", logger.Duration("ttl", cfg.Storage.CacheTTL))
		}
		return store, closeAll, nil

	default:
		return nil, closeAll, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
