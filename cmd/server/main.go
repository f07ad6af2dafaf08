package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaccounting "github.com/erp/acctsync/internal/application/accounting"
	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/domain/shared"
	"github.com/erp/acctsync/internal/infrastructure/auth"
	"github.com/erp/acctsync/internal/infrastructure/cache"
	"github.com/erp/acctsync/internal/infrastructure/config"
	"github.com/erp/acctsync/internal/infrastructure/erp"
	"github.com/erp/acctsync/internal/infrastructure/event"
	"github.com/erp/acctsync/internal/infrastructure/logger"
	"github.com/erp/acctsync/internal/infrastructure/migration"
	"github.com/erp/acctsync/internal/infrastructure/persistence"
	"github.com/erp/acctsync/internal/infrastructure/scheduler"
	"github.com/erp/acctsync/internal/infrastructure/telemetry"
	"github.com/erp/acctsync/internal/interfaces/http/handler"
	"github.com/erp/acctsync/internal/interfaces/http/middleware"
	"github.com/erp/acctsync/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting accounting sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	var dbMetrics *telemetry.DBMetrics
	if mp.IsEnabled() {
		dbMetrics, err = telemetry.NewDBMetrics(mp.Meter("acctsync.db"), telemetry.DBMetricsConfig{
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := db.DB.Use(dbMetrics); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			dbMetrics.StartPoolStatsCollection(ctx, sqlDB)
		}
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Repositories
	systemRepo := persistence.NewGormAccountingSystemRepository(db.DB, log)
	syncRecordRepo := persistence.NewGormSyncRecordRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	syncMetrics, err := telemetry.NewSyncMetrics(mp.Meter("acctsync.sync"))
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Orchestrator
	orchestrator := appaccounting.NewSyncOrchestrator(
		systemRepo,
		syncRecordRepo,
		ledgerRepo,
		erp.NewFactory(nil, log),
		appaccounting.OrchestratorConfig{
			RetryPolicy: accounting.RetryPolicy{
				MaxRetries: cfg.Sync.MaxRetries,
				BaseDelay:  cfg.Sync.RetryBaseDelay,
				MaxDelay:   cfg.Sync.RetryMaxDelay,
			},
			SweepBatchSize: cfg.Sync.SweepBatchSize,
			AdapterTimeout: cfg.Sync.AdapterTimeout,
		},
		log,
		appaccounting.WithLocalWriter(ledgerRepo),
		appaccounting.WithMetrics(syncMetrics),
	)
	if err := orchestrator.Initialize(ctx); err != nil {
		log.Fatal("Failed to initialize sync orchestrator", zap.Error(err))
	}
	cleaner := appaccounting.NewOrphanCleaner(syncRecordRepo, ledgerRepo,
		cfg.Sync.OrphanRetention, cfg.Sync.SweepBatchSize, log)

	// Redis backed idempotency and sweep locking, local fallback outside production
	backends, err := cache.NewBackendFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create cache backends", zap.Error(err))
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		appaccounting.NewSyncEventHandler(orchestrator, log),
		backends.Idempotency,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyTTL,
			Enabled: true,
		}),
	))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Sweeps
	sweeps, err := scheduler.NewSweepScheduler(
		scheduler.SweepSchedulerConfigFrom(cfg.Sync),
		backends.Locker,
		log,
		scheduler.SyncTasks(cfg.Sync, orchestrator, cleaner)...,
	)
	if err != nil {
		log.Fatal("Failed to create sweep scheduler", zap.Error(err))
	}
	if err := sweeps.Start(ctx); err != nil {
		log.Fatal("Failed to start sweep scheduler", zap.Error(err))
	}

	jwtService, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to create JWT service", zap.Error(err))
	}

	// HTTP
	var httpMeter metric.Meter
	if mp.IsEnabled() {
		httpMeter = mp.Meter("acctsync.http")
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
		},
		Meter:          httpMeter,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	healthHandler := handler.NewHealthHandler(version, map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return db.Ping() }),
		"redis":    backends,
	})
	engine.GET("/health", healthHandler.Live)
	engine.GET("/ready", healthHandler.Ready)

	r := router.NewRouter(engine, router.WithMiddleware(
		middleware.SpanEnricher(),
		middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			Validator: jwtService,
			Logger:    log,
		}),
	))
	r.Register(handler.NewAccountingHandler(orchestrator, sweeps, cleaner, log)).
		Register(handler.NewEventHandler(eventBus, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeps.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping sweep scheduler", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := backends.Close(); err != nil {
		log.Error("Error closing cache backends", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateUp applies the embedded migrations on the server's own connection.
// The migrator is not closed since that would close the shared *sql.DB.
func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}
