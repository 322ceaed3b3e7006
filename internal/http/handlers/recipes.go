package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelchef/internal/domain"
)

const (
	DefaultPaginationLimit = 25
	maxSearchQueryLength   = 500
)

type RecipesHandler struct {
	logger     *slog.Logger
	recipeRepo domain.RecipeRepository
}

// RecipesResponse represents the paginated response for recipes
type RecipesResponse struct {
	Recipes []*RecipeDto `json:"recipes"`
	HasMore bool         `json:"has_more"`
	Cursor  *string      `json:"cursor,omitempty"`
}

// RecipeDto is the list-view shape: child rows are omitted to keep pages
// light, the detail endpoint returns the full recipe
type RecipeDto struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ThumbnailPath   string    `json:"thumbnail_path"`
	SourceURL       string    `json:"source_url"`
	SourceType      string    `json:"source_type"`
	IsSynthetic     bool      `json:"is_synthetic"`
	PrepTimeMinutes *int      `json:"prep_time_minutes"`
	CookTimeMinutes *int      `json:"cook_time_minutes"`
	Difficulty      *string   `json:"difficulty"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewRecipesHandler(logger *slog.Logger, recipeRepo domain.RecipeRepository) *RecipesHandler {
	return &RecipesHandler{
		logger:     logger,
		recipeRepo: recipeRepo,
	}
}

// GetRecipeByID returns the full recipe, child rows included
func (h *RecipesHandler) GetRecipeByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid recipe ID", http.StatusBadRequest)
		return
	}

	recipe, err := h.recipeRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Recipe not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to retrieve recipe", "error", err, "recipe_id", id)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, recipe)
}

// GetRecipes lists an owner's recipes, newest first, cursor-paginated
func (h *RecipesHandler) GetRecipes(w http.ResponseWriter, r *http.Request) {
	ownerID, err := parseOwnerID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cursor, err := parseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		h.logger.Warn("Invalid cursor format", "cursor", r.URL.Query().Get("cursor"), "error", err)
		http.Error(w, "Invalid cursor format", http.StatusBadRequest)
		return
	}

	limit := parseLimit(r)

	// Request one extra row to know whether another page exists
	recipes, err := h.recipeRepo.GetByOwner(r.Context(), ownerID, cursor, limit+1)
	if err != nil {
		h.logger.Error("Failed to retrieve recipes", "error", err, "owner_id", ownerID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := h.buildRecipesResponse(recipes, limit)
	h.logger.Info("Retrieved recipes", "owner_id", ownerID, "count", len(response.Recipes), "has_more", response.HasMore)
	writeJSON(w, h.logger, http.StatusOK, response)
}

// SearchRecipes performs full-text search over titles and descriptions
func (h *RecipesHandler) SearchRecipes(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "Search query is required", http.StatusBadRequest)
		return
	}
	if len(query) > maxSearchQueryLength {
		http.Error(w, "Search query too long (max 500 characters)", http.StatusBadRequest)
		return
	}

	cursor, err := parseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		http.Error(w, "Invalid cursor format", http.StatusBadRequest)
		return
	}

	limit := parseLimit(r)

	recipes, err := h.recipeRepo.Search(r.Context(), query, cursor, limit+1)
	if err != nil {
		h.logger.Error("Failed to search recipes", "error", err, "query", query)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := h.buildRecipesResponse(recipes, limit)
	h.logger.Info("Search completed", "query", query, "count", len(response.Recipes), "has_more", response.HasMore)
	writeJSON(w, h.logger, http.StatusOK, response)
}

// DeleteRecipe removes a recipe and its child rows
func (h *RecipesHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid recipe ID", http.StatusBadRequest)
		return
	}

	if err := h.recipeRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Recipe not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete recipe", "error", err, "recipe_id", id)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// buildRecipesResponse creates a paginated response from domain recipes
func (h *RecipesHandler) buildRecipesResponse(recipes []*domain.Recipe, requestedLimit int) *RecipesResponse {
	hasMore := len(recipes) > requestedLimit
	if hasMore {
		// Drop the extra row fetched to detect the next page
		recipes = recipes[:requestedLimit]
	}

	dtos := make([]*RecipeDto, 0, len(recipes))
	for _, recipe := range recipes {
		dtos = append(dtos, &RecipeDto{
			ID:              recipe.ID.String(),
			Title:           recipe.Title,
			Description:     recipe.Description,
			ThumbnailPath:   recipe.ThumbnailPath,
			SourceURL:       recipe.SourceURL,
			SourceType:      recipe.SourceType,
			IsSynthetic:     recipe.IsSynthetic,
			PrepTimeMinutes: recipe.PrepTimeMinutes,
			CookTimeMinutes: recipe.CookTimeMinutes,
			Difficulty:      recipe.Difficulty,
			Tags:            recipe.Tags,
			CreatedAt:       recipe.CreatedAt,
		})
	}

	response := &RecipesResponse{
		Recipes: dtos,
		HasMore: hasMore,
	}

	if hasMore && len(recipes) > 0 {
		last := recipes[len(recipes)-1]
		cursorStr := last.CreatedAt.Format(time.RFC3339Nano)
		response.Cursor = &cursorStr
	}

	return response
}

// parseCursor parses a cursor string into a time.Time pointer
func parseCursor(cursorStr string) (*time.Time, error) {
	if cursorStr == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, cursorStr)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseLimit(r *http.Request) int {
	limit := DefaultPaginationLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

func parseOwnerID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("owner_id")
	if raw == "" {
		return 0, errors.New("owner_id is required")
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("owner_id must be an integer")
	}
	return ownerID, nil
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
