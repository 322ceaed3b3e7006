package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"reelchef/internal/config"
	"reelchef/internal/domain"
	reelhttp "reelchef/internal/http"
	"reelchef/internal/http/handlers"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/service/extractor"
	"reelchef/internal/storage"
)

// APIService handles HTTP API requests
type APIService struct {
	config *config.Config
	logger *slog.Logger

	// HTTP server
	server *http.Server
}

// New creates a new API service
func New(
	config *config.Config,
	logger *slog.Logger,
	pipeline *extractor.Pipeline,
	detector *urldetector.Detector,
	recipeRepo domain.RecipeRepository,
	queueRepo domain.QueueRepository,
	queueStats handlers.QueueInspector,
	store *storage.LocalStore,
	checks map[string]handlers.DependencyCheck,
) (*APIService, error) {
	router := reelhttp.NewRouter(logger, pipeline, detector, recipeRepo, queueRepo, queueStats, store, config.AdminAPIKey, checks)

	apiService := &APIService{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:         ":" + config.Port,
			Handler:      router.SetupRoutes(),
			ReadTimeout:  15 * time.Second,
			// Synchronous extraction holds the response open while the
			// pipeline runs, which can take a couple of minutes
			WriteTimeout: 3 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
	}

	return apiService, nil
}

// Start begins serving the API
func (s *APIService) Start() error {
	s.logger.Info("Starting API server", "port", s.config.Port)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
