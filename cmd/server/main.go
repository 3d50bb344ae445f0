package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/audit"
	"github.com/propertymesh/listing-governance/internal/cache"
	"github.com/propertymesh/listing-governance/internal/config"
	"github.com/propertymesh/listing-governance/internal/database"
	"github.com/propertymesh/listing-governance/internal/governance"
	"github.com/propertymesh/listing-governance/internal/handlers"
	governancekafka "github.com/propertymesh/listing-governance/internal/kafka"
	"github.com/propertymesh/listing-governance/internal/metrics"
	"github.com/propertymesh/listing-governance/internal/notification"
	"github.com/propertymesh/listing-governance/internal/rules"
	"github.com/propertymesh/listing-governance/internal/scheduler"
	"github.com/propertymesh/listing-governance/internal/trust"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting listing governance service",
		zap.String("environment", cfg.Environment),
		zap.String("address", cfg.Server.Address()),
	)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	listingRepo := database.NewListingRepository(db)
	claimRepo := database.NewClaimRepository(db)
	auditRepo := database.NewAuditRepository(db)

	var statusStore governance.StatusStore = governance.NewMemoryStatusStore()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		statusStore = cache.NewRuleStatusStore(redisClient)
		logger.Info("Rule status overrides backed by redis", zap.String("address", cfg.Redis.Address))
	}

	catalog := governance.NewCatalog(statusStore, logger)
	for _, rule := range rules.Default() {
		catalog.Register(rule)
	}

	scorer := trust.NewScorer(cfg.Governance.TrustOverrides)
	recorder := audit.NewRecorder(auditRepo, logger, collector)
	engine := governance.NewEngine(catalog, recorder, scorer, listingRepo, logger, collector)
	notifier := notification.NewWebhookNotifier(cfg.Notifications, logger)
	service := governance.NewService(engine, catalog, listingRepo, claimRepo, notifier, logger, collector)

	retention := scheduler.NewRetentionScheduler(cfg.Retention, auditRepo, logger)
	if err := retention.Start(); err != nil {
		logger.Fatal("Failed to start retention scheduler", zap.Error(err))
	}
	defer retention.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	if cfg.Kafka.Enabled {
		processor := governancekafka.NewProcessor(cfg.Kafka, service, logger)
		defer processor.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := processor.Run(ctx); err != nil {
				logger.Error("Kafka processor stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler := handlers.NewHandler(service, recorder, scorer, logger)
	handler.RegisterRoutes(router, handlers.ActorAuth(cfg.Security, logger))

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	wg.Wait()
	logger.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	return logger
}
