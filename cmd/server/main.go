package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appsync "github.com/erp/ordersync/internal/application/ordersync"
	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/accounting"
	"github.com/erp/ordersync/internal/infrastructure/cache"
	"github.com/erp/ordersync/internal/infrastructure/cart"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/migration"
	"github.com/erp/ordersync/internal/infrastructure/persistence"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/infrastructure/storage"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"github.com/erp/ordersync/internal/interfaces/http/handler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/erp/ordersync/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	log.Info("Starting order sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry: traces, metrics and logs over OTLP
	providers, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	// Forward application logs to the collector as well
	log = telemetry.NewBridgedLogger(log, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: providers.Logs,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))
	defer func() {
		_ = log.Sync()
	}()

	meter := providers.Meter.Meter(cfg.Telemetry.ServiceName)
	syncMetrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}
	gatewayMetrics, err := telemetry.NewGatewayMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create gateway metrics", zap.Error(err))
	}

	// Database with zap-backed GORM logging and optional query tracing
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(dbTracing, log)),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Gateways
	cartClient, err := cart.NewClient(&cart.Config{
		BaseURL:    cfg.Cart.BaseURL,
		SecureURL:  cfg.Cart.SecureURL,
		PrivateKey: cfg.Cart.PrivateKey,
		Token:      cfg.Cart.Token,
		Timeout:    cfg.Cart.Timeout,
		PageSize:   cfg.Cart.PageSize,
	}, log, cart.WithRequestObserver(gatewayMetrics))
	if err != nil {
		log.Fatal("Failed to create cart client", zap.Error(err))
	}

	accountingClient, err := accounting.NewClient(&accounting.Config{
		BaseURL:           cfg.Accounting.BaseURL,
		AccountID:         cfg.Accounting.AccountID,
		ConsumerKey:       cfg.Accounting.ConsumerKey,
		ConsumerSecret:    cfg.Accounting.ConsumerSecret,
		TokenID:           cfg.Accounting.TokenID,
		TokenSecret:       cfg.Accounting.TokenSecret,
		Timeout:           cfg.Accounting.Timeout,
		RequestsPerSecond: cfg.Accounting.RequestsPerSecond,
		Burst:             cfg.Accounting.Burst,
		QueryLimit:        cfg.Accounting.QueryLimit,
	}, log, accounting.WithRequestObserver(gatewayMetrics))
	if err != nil {
		log.Fatal("Failed to create accounting client", zap.Error(err))
	}

	// Payload archive
	var archive domain.PayloadArchive = storage.NoopArchive{}
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3PayloadArchive(context.Background(), &cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create payload archive", zap.Error(err))
		}
		if cfg.Archive.EnsureBucket {
			if err := s3Archive.EnsureBucket(context.Background()); err != nil {
				log.Fatal("Failed to ensure archive bucket", zap.Error(err), zap.String("bucket", s3Archive.Bucket()))
			}
		}
		archive = s3Archive
		log.Info("Payload archive enabled", zap.String("bucket", s3Archive.Bucket()))
	}

	// Core
	orchestrator := appsync.NewOrderSyncOrchestrator(
		cartClient,
		accountingClient,
		persistence.NewGormSyncRecordRepository(db.DB),
		appsync.Options{
			ExternalRefPrefix:     cfg.Sync.ExternalRefPrefix,
			SubsidiaryID:          cfg.Sync.SubsidiaryID,
			DepartmentID:          cfg.Sync.DepartmentID,
			ShipImmediatelyField:  cfg.Sync.ShipImmediatelyField,
			CustomerNameSeparator: cfg.Sync.CustomerNameSeparator,
			DefaultCountry:        cfg.Sync.DefaultCountry,
			DropShipMarkers:       cfg.Sync.DropShipMarkers,
			CatalogKeySource:      domain.CatalogKeySource(cfg.Sync.CatalogKeySource),
			ValidateItems:         cfg.Sync.ValidateItems,
			MaxBatchSize:          cfg.Sync.MaxBatchSize,
			BulkDelay:             cfg.Sync.BulkDelay,
		},
		log,
		appsync.WithPayloadArchive(archive),
		appsync.WithSyncMetrics(syncMetrics),
	)

	// Webhook replay store
	var replayStore shared.IdempotencyStore
	if cfg.Webhook.ReplayEnabled {
		factory := cache.NewReplayStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!cfg.Webhook.RequireRedis),
		)
		replayStore, err = factory.CreateStore(context.Background())
		if err != nil {
			log.Fatal("Failed to create webhook replay store", zap.Error(err))
		}
		defer func() {
			if err := replayStore.Close(); err != nil {
				log.Error("Error closing replay store", zap.Error(err))
			}
		}()
	}

	// Order pull scheduler; manual pulls work even when the timer is off
	pullConfig := scheduler.DefaultOrderPullSchedulerConfig()
	pullConfig.Interval = cfg.Scheduler.Interval
	pullConfig.Lookback = cfg.Scheduler.Lookback
	pullConfig.InitialDelay = cfg.Scheduler.InitialDelay
	pullConfig.JobTimeout = cfg.Scheduler.JobTimeout
	if cfg.Scheduler.OrderStatus > 0 {
		status := domain.OrderStatus(cfg.Scheduler.OrderStatus)
		pullConfig.OrderStatus = &status
	}
	pullScheduler, err := scheduler.NewOrderPullScheduler(pullConfig, orchestrator, log)
	if err != nil {
		log.Fatal("Failed to create order pull scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := pullScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start order pull scheduler", zap.Error(err))
		}
		defer func() {
			if err := pullScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping order pull scheduler", zap.Error(err))
			}
		}()
		log.Info("Order pull scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Duration("lookback", cfg.Scheduler.Lookback),
		)
	}

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(orchestrator, orchestrator.Guard(), cfg.Sync.MaxBatchSize)
	pullHandler := handler.NewPullHandler(pullScheduler)

	webhookOpts := []handler.WebhookOption{handler.WithSharedSecret(cfg.Webhook.SharedSecret)}
	if replayStore != nil {
		webhookOpts = append(webhookOpts, handler.WithReplayStore(replayStore, cfg.Webhook.ReplayTTL))
	}
	if cfg.Webhook.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Webhook.RateLimitRPS, cfg.Webhook.RateLimitBurst, 10*time.Minute)
		defer limiter.Close()
		webhookOpts = append(webhookOpts, handler.WithRateLimiter(limiter))
	}
	webhookHandler := handler.NewWebhookHandler(orchestrator, webhookOpts...)

	checks := []handler.HealthCheck{{
		Name:  "database",
		Check: func(context.Context) error { return db.Ping() },
	}}
	if redisStore, ok := replayStore.(*cache.RedisReplayStore); ok {
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: redisStore.Ping})
	}
	healthHandler := handler.NewHealthHandler(cfg.App.Version, checks...)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Server span per request
	// 4. Logger - Log requests with trace context
	// 5. Metrics - Request counters and latency
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     providers.Tracer.IsEnabled(),
		SkipPaths:   []string{"/health", "/health/ready"},
	}))
	engine.Use(middleware.SpanAttributes(), middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log, "/health", "/health/ready"))
	if providers.Meter.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meter))
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	apiGroups := []*router.DomainGroup{
		syncHandler.Routes().Use(middleware.Timeout(cfg.HTTP.WriteTimeout)),
		pullHandler.Routes(),
		webhookHandler.Routes(),
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.RegisterRoot(healthHandler.Routes())
	for _, g := range apiGroups {
		r.Register(g)
	}
	r.Setup()

	for _, g := range apiGroups {
		for _, route := range g.Routes() {
			log.Debug("Route registered",
				zap.String("group", g.Name()),
				zap.String("method", route.Method),
				zap.String("path", "/api/v1"+g.Prefix()+route.Path),
			)
		}
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// applyMigrations brings the schema up to date from the embedded migrations
func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Close would also close sqlDB, which the server keeps using
	return m.Up()
}
