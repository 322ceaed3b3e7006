package http

import (
	"log/slog"
	"net/http"

	"reelchef/internal/domain"
	"reelchef/internal/http/handlers"
	"reelchef/internal/http/middleware"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/service/extractor"
	"reelchef/internal/storage"
)

type Router struct {
	mux                *http.ServeMux
	store              *storage.LocalStore
	adminAuth          *middleware.AdminAuth
	healthHandler      *handlers.HealthHandler
	statsHandler       *handlers.StatsHandler
	recipesHandler     *handlers.RecipesHandler
	extractionsHandler *handlers.ExtractionsHandler
}

func NewRouter(
	logger *slog.Logger,
	pipeline *extractor.Pipeline,
	detector *urldetector.Detector,
	recipeRepo domain.RecipeRepository,
	queueRepo domain.QueueRepository,
	queueStats handlers.QueueInspector,
	store *storage.LocalStore,
	adminAPIKey string,
	checks map[string]handlers.DependencyCheck,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		store:              store,
		adminAuth:          middleware.NewAdminAuth(adminAPIKey, logger),
		healthHandler:      handlers.NewHealthHandler(logger, checks),
		statsHandler:       handlers.NewStatsHandler(logger, queueStats),
		recipesHandler:     handlers.NewRecipesHandler(logger, recipeRepo),
		extractionsHandler: handlers.NewExtractionsHandler(logger, pipeline, recipeRepo, queueRepo, detector),
	}
}

func (r *Router) SetupRoutes() http.Handler {
	// Health check
	r.mux.HandleFunc("GET /health", r.healthHandler.HandleHealth)

	// API v1 routes - Extraction
	r.mux.HandleFunc("POST /api/v1/extractions", r.extractionsHandler.Extract)
	r.mux.HandleFunc("POST /api/v1/extractions/async", r.extractionsHandler.ExtractAsync)

	// API v1 routes - Recipes
	r.mux.HandleFunc("GET /api/v1/recipes", r.recipesHandler.GetRecipes)
	r.mux.HandleFunc("GET /api/v1/recipes/search", r.recipesHandler.SearchRecipes)
	r.mux.HandleFunc("GET /api/v1/recipes/{id}", r.recipesHandler.GetRecipeByID)
	r.mux.Handle("DELETE /api/v1/recipes/{id}", r.adminAuth.Middleware(http.HandlerFunc(r.recipesHandler.DeleteRecipe)))

	// API v1 routes - Stats
	r.mux.HandleFunc("GET /api/v1/stats", r.statsHandler.HandleStats)

	// Saved thumbnails
	r.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(r.store.BaseDir()))))

	// Add CORS middleware
	return middleware.CORS(r.mux)
}
