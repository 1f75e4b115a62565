// Package main is the entry point for the provider-sync-service API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"provider-sync-service/internal/app/service"
	"provider-sync-service/internal/config"
	"provider-sync-service/internal/domain"
	"provider-sync-service/internal/infra/eventlog"
	"provider-sync-service/internal/infra/postgres"
	"provider-sync-service/internal/infra/postgres/migrations"
	"provider-sync-service/internal/infra/provider/registry"
	"provider-sync-service/internal/infra/provider/thumb"
	"provider-sync-service/internal/infra/rabbitmq"
	redisstore "provider-sync-service/internal/infra/redis"
	"provider-sync-service/internal/job"
	"provider-sync-service/internal/logger"
	"provider-sync-service/internal/metrics"
	"provider-sync-service/internal/transport/httpserver"
	"provider-sync-service/internal/transport/httpserver/handler"
	"provider-sync-service/internal/transport/httpserver/middleware"
	"provider-sync-service/internal/validator"
	"provider-sync-service/pkg/locker"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting provider-sync-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	// Connect to database
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := postgres.NewConnection(
		connectCtx,
		postgres.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			Name:         cfg.Database.Name,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime,
			LogQueries:   cfg.Database.LogQueries,
		},
		log.Logger,
	)
	cancelConnect()
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = postgres.Close(db) }()

	// Run migrations
	if err := migrations.Run(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database migrations completed")

	catalog := postgres.NewCatalogRepository(db)
	refs := postgres.NewReferenceRepository(db)
	eventStore := postgres.NewEventStore(db)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	log.Info("connected to Redis",
		zap.String("host", cfg.Redis.Host),
		zap.Int("port", cfg.Redis.Port),
	)

	distLocker := locker.NewRedisLocker(redisClient, log.Logger)
	scopeLock := redisstore.NewScopeLock(distLocker, log.Logger, cfg.Locking.KeyPrefix, cfg.Locking.TTL)

	// Sync event sinks
	sinks := []domain.EventLogger{eventStore, eventlog.NewZapLogger(log.Logger)}
	if cfg.Events.RabbitMQ.Enabled {
		publisher, err := rabbitmq.NewPublisher(rabbitmq.Config{
			URL:        cfg.Events.RabbitMQ.URL,
			Exchange:   cfg.Events.RabbitMQ.Exchange,
			RoutingKey: cfg.Events.RabbitMQ.RoutingKey,
			Queue:      cfg.Events.RabbitMQ.Queue,
		}, log.Logger)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer func() { _ = publisher.Close() }()
		sinks = append(sinks, publisher)
	}
	events := eventlog.NewMulti(sinks...)

	// Engine, with thumbnails when enabled
	var engineOpts []service.EngineOption
	var thumbReader handler.ThumbnailReader
	if cfg.Thumbnails.Enabled {
		fetcher := thumb.NewFetcher(registry.ClientConfig(cfg.Provider.Thumbnails.ProviderEndpoint), cfg.Provider.Thumbnails.MaxSize, log.Logger)
		store := redisstore.NewThumbnailStore(redisClient, log.Logger, cfg.Thumbnails.KeyPrefix, cfg.Thumbnails.TTL)
		engineOpts = append(engineOpts, service.WithThumbnails(fetcher, store))
		thumbReader = store
		log.Info("thumbnails enabled", zap.String("key_prefix", cfg.Thumbnails.KeyPrefix))
	}
	engine := service.NewEngine(catalog, events, log.Logger, engineOpts...)

	providers := registry.NewProviders(cfg.Provider, registry.Stores{Catalog: catalog, References: refs}, log.Logger)

	var observer service.RunObserver
	var promMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		promMetrics = metrics.New(cfg.Metrics.Namespace)
		observer = promMetrics
	}

	manager := service.NewProviderManager(
		providers,
		refs,
		scopeLock,
		events,
		engine,
		observer,
		service.ManagerConfig{BankingProviders: bankingProviders(cfg.Banking.Providers, log)},
		log.Logger,
	)

	// Create HTTP server
	adminHandler := handler.NewAdminHandler(ctx, manager, refs, eventStore, thumbReader, validator.New(), log.Logger)
	var serverMetrics httpserver.Metrics
	if promMetrics != nil {
		serverMetrics = promMetrics
	}
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:        cfg.App.Port,
			BodyLimit:   1024 * 1024, // 1MB
			MetricsPath: cfg.Metrics.Path,
		},
		adminHandler,
		serverMetrics,
		[]middleware.ReadinessCheck{middleware.DatabaseCheck(db), middleware.RedisCheck(redisClient)},
		log.Logger,
	)

	// Start sync scheduler with distributed locking
	var scheduler *job.SyncScheduler
	if cfg.Sync.Enabled {
		scheduler = job.NewSyncScheduler(
			manager,
			job.SyncConfig{
				Interval:  cfg.Sync.Interval,
				Timeout:   cfg.Sync.Timeout,
				OnStartup: cfg.Sync.OnStartup,
			},
			log.Logger,
			distLocker,
		)
		scheduler.Start(cfg.Sync.OnStartup)
	} else {
		log.Info("sync scheduler disabled")
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		// Cancel async admin runs, then stop the scheduler
		stop()
		if scheduler != nil {
			scheduler.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.App.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// bankingProviders keeps the configured names that are bank information providers.
func bankingProviders(names []string, log *logger.Logger) []domain.ProviderName {
	var out []domain.ProviderName
	for _, raw := range names {
		name := domain.ProviderName(raw)
		if !name.IsBanking() {
			log.Warn("ignoring configured banking provider", zap.String("provider", raw))
			continue
		}
		out = append(out, name)
	}

	return out
}
