// Package main provides the main entry point for the AdPilot recruitment-ad backend
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jobradar/adpilot/app/handlers"
	"github.com/jobradar/adpilot/app/router"
	"github.com/jobradar/adpilot/app/scheduler"
	"github.com/jobradar/adpilot/app/taskrunner"
	businessflow "github.com/jobradar/adpilot/business_flow"
	"github.com/jobradar/adpilot/config"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
	"github.com/jobradar/adpilot/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting AdPilot application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	accountRepo := repository.NewAdAccountRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	candidateRepo := repository.NewCandidateRepository(db)
	campaignMirrorRepo := repository.NewAdCampaignMirrorRepository(db)
	adSetMirrorRepo := repository.NewAdSetMirrorRepository(db)
	adMirrorRepo := repository.NewAdMirrorRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Initialize the ad platform adapter
	adapter := platform.NewMetaClient(platform.Config{
		BaseURL:     cfg.Platform.BaseURL,
		APIVersion:  cfg.Platform.APIVersion,
		AccessToken: cfg.Platform.AccessToken,
		Timeout:     cfg.Platform.Timeout,
		PageSize:    cfg.Platform.PageSize,
	})

	// Initialize flows
	resolver := businessflow.NewAudienceResolver(candidateRepo, nil)
	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, accountRepo, db, nil)
	publishFlow := businessflow.NewPublishFlow(campaignRepo, resolver, adapter, db, nil)
	reconciler := businessflow.NewReconciler(campaignMirrorRepo, adSetMirrorRepo, adMirrorRepo, nil)
	upserter := businessflow.NewInsightUpserter(insightRepo, nil)
	syncFlow := businessflow.NewSyncFlow(
		accountRepo,
		campaignMirrorRepo,
		adSetMirrorRepo,
		adMirrorRepo,
		reconciler,
		upserter,
		adapter,
		db,
		nil,
		cfg.Sync.Concurrency,
		cfg.Sync.InsightDays,
	)
	insightQueryFlow := businessflow.NewInsightQueryFlow(insightRepo, nil)
	insightExportFlow := businessflow.NewInsightExportFlow(insightRepo, nil)

	// Initialize the task runner and register handlers
	runner := taskrunner.NewRunner(taskRepo, db, rc, taskrunner.Config{
		PollInterval: cfg.TaskRunner.PollInterval,
		Workers:      cfg.TaskRunner.Workers,
		MaxRetries:   cfg.TaskRunner.MaxRetries,
		BaseBackoff:  cfg.TaskRunner.BaseBackoff,
		LogDir:       cfg.Logging.Dir,
	})
	runner.Register(models.TaskKindPublishCampaign, taskrunner.PublishHandler(publishFlow))
	runner.Register(models.TaskKindSyncAccount, taskrunner.SyncHandler(syncFlow))
	stopFuncs = append(stopFuncs, runner.Start(context.Background()))

	// Periodic sync scheduler enqueues one sync task per active account
	syncScheduler := scheduler.NewSyncScheduler(accountRepo, runner, cfg.Sync.Interval, cfg.Logging.Dir)
	stopFuncs = append(stopFuncs, syncScheduler.Start(context.Background()))

	// Initialize handlers
	campaignHandler := handlers.NewCampaignHandler(campaignFlow, runner)
	insightHandler := handlers.NewInsightHandler(insightQueryFlow, insightExportFlow, runner)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, campaignHandler, insightHandler)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
