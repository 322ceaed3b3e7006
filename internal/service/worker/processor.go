package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reelchef/internal/domain"
	"reelchef/internal/service/extractor"
)

// ExtractionPipeline is the pipeline surface the processor needs.
// *extractor.Pipeline satisfies it.
type ExtractionPipeline interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*extractor.Result, error)
}

// JobProcessor runs extraction jobs through the pipeline and persists the
// results
type JobProcessor struct {
	logger     *slog.Logger
	recipeRepo domain.RecipeRepository
	pipeline   ExtractionPipeline
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(
	logger *slog.Logger,
	recipeRepo domain.RecipeRepository,
	pipeline ExtractionPipeline,
) *JobProcessor {
	return &JobProcessor{
		logger:     logger,
		recipeRepo: recipeRepo,
		pipeline:   pipeline,
	}
}

// ProcessExtraction runs one queued extraction: resolve, acquire, parse,
// assemble, persist
func (p *JobProcessor) ProcessExtraction(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	rawURL, ok := payload["url"].(string)
	if !ok || rawURL == "" {
		return fmt.Errorf("missing or invalid url in payload")
	}

	declaredPlatform, _ := payload["platform"].(string)

	// JSON numbers decode as float64
	var ownerID int64
	if v, ok := payload["owner_id"].(float64); ok {
		ownerID = int64(v)
	}

	logger.Info("Processing extraction job",
		"url", rawURL,
		"declared_platform", declaredPlatform,
		"owner_id", ownerID,
	)

	result, err := p.pipeline.Extract(ctx, domain.ExtractionRequest{
		URL:              rawURL,
		DeclaredPlatform: declaredPlatform,
		RequesterID:      ownerID,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := p.recipeRepo.Create(ctx, result.Recipe); err != nil {
		return fmt.Errorf("failed to persist recipe: %w", err)
	}

	logger.Info("Extraction job complete",
		"recipe_id", result.Recipe.ID,
		"synthetic", result.Recipe.IsSynthetic,
	)
	return nil
}

// isPermanentFailure reports whether a job error can never succeed on retry
func isPermanentFailure(err error) bool {
	return errors.Is(err, domain.ErrInvalidURL)
}
