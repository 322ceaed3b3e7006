package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelchef/internal/browser"
	"reelchef/internal/config"
	"reelchef/internal/pkg/logger"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/repository/postgres"
	"reelchef/internal/repository/redis"
	"reelchef/internal/service/extractor"
	"reelchef/internal/service/worker"
	"reelchef/internal/storage"

	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate worker-specific configuration
	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting worker service...")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	// Run database migrations
	if err := postgres.RunMigrations(db, log); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Test Redis connection
	if err := redis.HealthCheck(context.Background(), redisClient); err != nil {
		log.Error("Failed to ping Redis", "error", err)
		os.Exit(1)
	}

	// Create repositories
	queueRepo := redis.NewQueueRepository(redisClient, log)
	recipeRepo := postgres.NewRecipeRepository(db, log)

	// Thumbnail storage
	store, err := storage.NewLocalStore(cfg.UploadsDir, log)
	if err != nil {
		log.Error("Failed to initialize uploads storage", "error", err)
		os.Exit(1)
	}

	// Headless browser for page scraping and frame capture
	browserManager := browser.NewManager(log, cfg.DisableBrowser)
	defer browserManager.Shutdown()

	// Extraction pipeline and job processor
	pipeline := buildPipeline(cfg, log, store, browserManager)
	processor := worker.NewJobProcessor(log, recipeRepo, pipeline)

	// Create worker service
	workerService := worker.New(cfg, log, queueRepo, processor)

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start worker service in a goroutine
	go func() {
		defer close(done)
		if err := workerService.Start(); err != nil {
			log.Error("Worker service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping worker service...")
	case <-done:
		log.Info("Worker service completed")
	}

	// Graceful shutdown with timeout
	_, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop worker service
	if err := workerService.Stop(); err != nil {
		log.Error("Error stopping worker service", "error", err)
	}

	log.Info("Worker service shutdown complete")
}

// buildPipeline wires the acquisition, thumbnail and AI stages
func buildPipeline(
	cfg *config.Config,
	log *slog.Logger,
	store *storage.LocalStore,
	browserManager *browser.Manager,
) *extractor.Pipeline {
	oembed := extractor.NewOEmbedExtractor(log)
	scraper := extractor.NewRodScraper(browserManager, log)
	fallback := extractor.NewHTTPScraper(log)
	transcripts := extractor.NewTranscriptFetcher(log)
	acquirer := extractor.NewAcquirer(oembed, scraper, fallback, transcripts, log)
	thumbnails := extractor.NewThumbnailResolver(store, browserManager, log)

	primary := extractor.NewOpenAIProvider("primary", cfg.AIPrimaryBaseURL, cfg.AIPrimaryAPIKey, log)
	var secondary extractor.ChatProvider
	if cfg.HasSecondaryProvider() {
		secondary = extractor.NewOpenAIProvider("secondary", cfg.AISecondaryBaseURL, cfg.AISecondaryAPIKey, log)
	}
	gateway := extractor.NewGateway(primary, cfg.AIPrimaryModel, cfg.AIFallbackModel, secondary, cfg.AISecondaryModel, log)

	return extractor.NewPipeline(urldetector.New(), acquirer, thumbnails, gateway, log)
}
