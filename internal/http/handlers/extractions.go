package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"reelchef/internal/domain"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/service/extractor"
)

// ExtractionPipeline is the pipeline surface the handler needs.
// *extractor.Pipeline satisfies it.
type ExtractionPipeline interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*extractor.Result, error)
}

type ExtractionsHandler struct {
	logger     *slog.Logger
	pipeline   ExtractionPipeline
	recipeRepo domain.RecipeRepository
	queueRepo  domain.QueueRepository
	detector   *urldetector.Detector
}

// ExtractionRequestBody is the POST body for both sync and async extraction
type ExtractionRequestBody struct {
	URL      string `json:"url"`
	Platform string `json:"platform,omitempty"`
	OwnerID  int64  `json:"owner_id"`
}

// ExtractionResponse wraps a completed extraction. Screenshot candidates are
// request-scoped intermediates; they are surfaced here but never persisted.
type ExtractionResponse struct {
	Recipe               *domain.Recipe               `json:"recipe"`
	Degraded             bool                         `json:"degraded"`
	ScreenshotCandidates []domain.ScreenshotCandidate `json:"screenshot_candidates,omitempty"`
}

// AsyncExtractionResponse acknowledges a queued extraction
type AsyncExtractionResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Platform string `json:"platform"`
}

func NewExtractionsHandler(
	logger *slog.Logger,
	pipeline ExtractionPipeline,
	recipeRepo domain.RecipeRepository,
	queueRepo domain.QueueRepository,
	detector *urldetector.Detector,
) *ExtractionsHandler {
	return &ExtractionsHandler{
		logger:     logger,
		pipeline:   pipeline,
		recipeRepo: recipeRepo,
		queueRepo:  queueRepo,
		detector:   detector,
	}
}

// Extract runs the full pipeline synchronously and persists the result.
// Status mapping: 400 for a malformed request or a URL that matches no
// supported platform, 201 for a clean extraction, 422 when the persisted
// recipe is a degraded synthetic shell, 500 for infrastructure failures.
func (h *ExtractionsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.Extract(r.Context(), domain.ExtractionRequest{
		URL:              body.URL,
		DeclaredPlatform: body.Platform,
		RequesterID:      body.OwnerID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			http.Error(w, "URL does not match any supported platform", http.StatusBadRequest)
			return
		}
		h.logger.Error("Extraction failed", "error", err, "url", body.URL)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.recipeRepo.Create(r.Context(), result.Recipe); err != nil {
		h.logger.Error("Failed to persist recipe", "error", err, "recipe_id", result.Recipe.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// A degraded extraction still persists a recipe; 422 flags that the
	// body is a synthetic shell the user should edit
	status := http.StatusCreated
	if result.Degraded {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, h.logger, status, &ExtractionResponse{
		Recipe:               result.Recipe,
		Degraded:             result.Degraded,
		ScreenshotCandidates: result.ScreenshotCandidates,
	})
}

// ExtractAsync validates the URL, then queues the extraction for the worker.
// An unresolvable URL is rejected with 400 before it is queued, and a URL the
// owner has already extracted short-circuits to the stored recipe.
func (h *ExtractionsHandler) ExtractAsync(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	match, err := h.detector.ResolveWithHint(body.URL, body.Platform)
	if err != nil {
		http.Error(w, "URL does not match any supported platform", http.StatusBadRequest)
		return
	}

	// Re-submitting a URL the owner already extracted returns the stored
	// recipe instead of queueing a second extraction
	existing, err := h.recipeRepo.GetBySourceURL(r.Context(), body.OwnerID, body.URL)
	if err == nil {
		writeJSON(w, h.logger, http.StatusOK, &ExtractionResponse{
			Recipe:   existing,
			Degraded: existing.IsSynthetic,
		})
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		h.logger.Warn("Duplicate lookup failed, queueing anyway", "error", err, "url", body.URL)
	}

	payload := map[string]interface{}{
		"url":      body.URL,
		"platform": body.Platform,
		"owner_id": body.OwnerID,
	}
	jobID, err := h.queueRepo.Enqueue(r.Context(), domain.JobTypeExtractRecipe, payload)
	if err != nil {
		h.logger.Error("Failed to enqueue extraction", "error", err, "url", body.URL)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Extraction queued",
		"job_id", jobID,
		"url", body.URL,
		"platform", match.Platform,
		"owner_id", body.OwnerID,
	)

	writeJSON(w, h.logger, http.StatusAccepted, &AsyncExtractionResponse{
		JobID:    jobID,
		Status:   domain.JobStatusPending,
		Platform: match.Platform,
	})
}

func (h *ExtractionsHandler) decodeBody(w http.ResponseWriter, r *http.Request) (*ExtractionRequestBody, bool) {
	var body ExtractionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if body.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return nil, false
	}
	return &body, true
}
