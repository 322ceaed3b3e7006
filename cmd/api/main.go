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
	"reelchef/internal/http/handlers"
	"reelchef/internal/pkg/logger"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/repository/postgres"
	"reelchef/internal/repository/redis"
	"reelchef/internal/service/api"
	"reelchef/internal/service/extractor"
	"reelchef/internal/storage"

	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate API-specific configuration
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting API service...")

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

	// Create repositories
	recipeRepo := postgres.NewRecipeRepository(db, log)
	queueRepo := redis.NewQueueRepository(redisClient, log)

	// Thumbnail storage
	store, err := storage.NewLocalStore(cfg.UploadsDir, log)
	if err != nil {
		log.Error("Failed to initialize uploads storage", "error", err)
		os.Exit(1)
	}

	// Headless browser for page scraping and frame capture
	browserManager := browser.NewManager(log, cfg.DisableBrowser)
	defer browserManager.Shutdown()

	// Extraction pipeline
	detector := urldetector.New()
	pipeline := buildPipeline(cfg, log, detector, store, browserManager)

	// Dependency checks for /health
	checks := map[string]handlers.DependencyCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
		"redis":    func(ctx context.Context) error { return redis.HealthCheck(ctx, redisClient) },
	}

	// Create API service
	apiService, err := api.New(cfg, log, pipeline, detector, recipeRepo, queueRepo, queueRepo, store, checks)
	if err != nil {
		log.Error("Failed to create API service", "error", err)
		os.Exit(1)
	}

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start API service in a goroutine
	go func() {
		defer close(done)
		if err := apiService.Start(); err != nil {
			log.Error("API service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping API service...")
	case <-done:
		log.Info("API service completed")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop API service
	if err := apiService.Stop(ctx); err != nil {
		log.Error("Error stopping API service", "error", err)
	}

	log.Info("API service shutdown complete")
}

// buildPipeline wires the acquisition, thumbnail and AI stages
func buildPipeline(
	cfg *config.Config,
	log *slog.Logger,
	detector *urldetector.Detector,
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

	return extractor.NewPipeline(detector, acquirer, thumbnails, gateway, log)
}
