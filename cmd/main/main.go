package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/cache"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/config"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/events"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/healthcheck"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/observer"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/storage"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/usecase"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
	"go.uber.org/zap"
)

// Expected cardinality for the per-tenant enrollment dedup filters.
const (
	dedupExpectedEnrolled = 100_000
	dedupExpectedNonExist = 100_000
	dedupFalsePositive    = 0.01
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize Metrics conditionally
	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	// Log startup information
	logger.Log.Info("Starting Outreach CRM Service",
		zap.String("environment", cfg.Environment),
		zap.String("company_id", cfg.Company.ID),
		zap.String("nats_url", cfg.NATS.URL),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate, cfg.Company.ID)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Initialize JetStream client
	jsClient, err := initJetStreamClient(cfg.NATS.URL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
	}

	// Create repository adapters for the service
	leadRepo := storage.NewLeadRepoAdapter(postgresRepo)
	districtContactRepo := storage.NewDistrictContactRepoAdapter(postgresRepo)
	sequenceRepo := storage.NewSequenceRepoAdapter(postgresRepo)
	campaignRepo := storage.NewCampaignRepoAdapter(postgresRepo)
	touchpointRepo := storage.NewTouchpointRepoAdapter(postgresRepo)

	// Event publisher for completion and scheduling notifications
	publisher := events.NewEventPublisher(jsClient, cfg.NATS.SubjectPrefix)

	// Dedup cache shared by the enrollment workers
	dedupCache := cache.NewEnrollmentCache(cfg.Company.ID, dedupExpectedEnrolled, dedupExpectedNonExist, dedupFalsePositive)

	// Create enrollment worker pool
	enrollmentWorker, err := usecase.NewEnrollmentWorker(
		cfg.WorkerPools.Enrollment,
		cfg.Outreach.InsertChunkSize,
		leadRepo,
		districtContactRepo,
		touchpointRepo,
		dedupCache,
		publisher,
		logger.Log,
	)
	if err != nil {
		logger.Log.Fatal("Failed to initialize enrollment worker pool", zap.Error(err))
	}

	// Create service, injecting the worker pool
	service := usecase.NewOutreachService(
		leadRepo,
		districtContactRepo,
		sequenceRepo,
		campaignRepo,
		touchpointRepo,
		enrollmentWorker,
		publisher,
		cfg.Outreach.BatchCutoffHour,
	)

	// Create and set up the enrollment request consumer
	consumer := events.NewEnrollmentConsumer(jsClient, service, cfg, cfg.Company.ID)
	if err := consumer.Setup(); err != nil {
		logger.Log.Fatal("Failed to set up enrollment consumer", zap.Error(err))
	}

	// Create health check server
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Server.Port), logger.Log)
	healthServer.RegisterReadinessCheck("postgres", postgresRepo.Ping)
	healthServer.RegisterReadinessCheck("nats", func(ctx context.Context) error {
		if !jsClient.NatsConn().IsConnected() {
			return fmt.Errorf("nats connection is down")
		}
		return nil
	})

	// Register metrics handler if enabled BEFORE starting the server
	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	// Start health check server (which now might include /metrics)
	healthServer.Start()

	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	// Start consuming enrollment requests
	if err := consumer.Start(); err != nil {
		logger.Log.Fatal("Failed to start enrollment consumer", zap.Error(err))
	}

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	// Use WaitGroup to track shutdown of all components
	var wg sync.WaitGroup

	// consumer, enrollment worker, health server, databases
	numComponents := 4
	wg.Add(numComponents)

	// Shutdown enrollment consumer first so no new work arrives
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping enrollment consumer")
		start := time.Now()
		consumer.Stop()
		logger.Log.Info("[shutdown] Enrollment consumer stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping enrollment consumer",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done() // Ensure WaitGroup is decremented even in case of panic
	})

	// Shutdown enrollment worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping enrollment worker pool")
		start := time.Now()
		enrollmentWorker.Stop()
		logger.Log.Info("[shutdown] Enrollment worker pool stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping enrollment worker pool",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown health check server (includes metrics if enabled)
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close database and messaging connections
	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}

		logger.Log.Info("[shutdown] Closing JetStream connection")
		jsStart := time.Now()
		jsClient.Close()
		logger.Log.Info("[shutdown] JetStream connection closed",
			zap.Duration("duration", time.Since(jsStart)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Outreach CRM Service shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool, companyID string) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// initJetStreamClient initializes the JetStream client
func initJetStreamClient(url string) (*events.Client, error) {
	client, err := events.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}
	// Stream and consumer setup is handled by the consumer's Setup method
	return client, nil
}
