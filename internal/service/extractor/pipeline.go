package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"reelchef/internal/domain"
	"reelchef/internal/pkg/urldetector"
)

// Result is the outcome of one extraction run. Degraded marks recipes whose
// AI stage failed or only partially recovered.
type Result struct {
	Recipe               *domain.Recipe
	ScreenshotCandidates []domain.ScreenshotCandidate
	Degraded             bool
}

// Pipeline runs the full extraction flow: platform resolution, metadata and
// text acquisition, thumbnail resolution, AI parsing, assembly. The only
// hard failure is an unresolvable URL; everything downstream degrades.
type Pipeline struct {
	detector   *urldetector.Detector
	acquirer   *Acquirer
	thumbnails *ThumbnailResolver
	gateway    *Gateway
	logger     *slog.Logger
}

func NewPipeline(detector *urldetector.Detector, acquirer *Acquirer, thumbnails *ThumbnailResolver, gateway *Gateway, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		detector:   detector,
		acquirer:   acquirer,
		thumbnails: thumbnails,
		gateway:    gateway,
		logger:     logger,
	}
}

// Extract runs the pipeline for one request. Returns domain.ErrInvalidURL
// (wrapped) when the URL does not resolve to a supported platform; all other
// failure modes produce a recipe, synthetic if necessary.
func (p *Pipeline) Extract(ctx context.Context, req domain.ExtractionRequest) (*Result, error) {
	match, err := p.detector.ResolveWithHint(req.URL, req.DeclaredPlatform)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", req.URL, err)
	}

	p.logger.Info("Extraction started",
		"platform", match.Platform,
		"content_id", match.ContentID,
		"url", req.URL)

	meta := p.acquirer.FetchMetadata(ctx, req.URL, match)

	content := &domain.AcquiredContent{
		Title:        meta.Title,
		ThumbnailURL: meta.ThumbnailURL,
	}

	// Thumbnail resolution and text acquisition touch different upstreams,
	// so they run concurrently
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		content.ThumbnailLocalPath, content.ScreenshotCandidates = p.thumbnails.ResolveThumbnail(ctx, content.ThumbnailURL, match)
	}()
	go func() {
		defer wg.Done()
		content.Text = p.acquirer.BuildText(ctx, req.URL, match, meta)
	}()
	wg.Wait()

	envelope := p.gateway.ParseRecipe(ctx, content.Text)

	recipe := Assemble(req.URL, match, envelope, content.Title, content.ThumbnailLocalPath)
	recipe.OwnerID = req.RequesterID

	p.logger.Info("Extraction finished",
		"platform", match.Platform,
		"content_id", match.ContentID,
		"recipe_id", recipe.ID,
		"synthetic", recipe.IsSynthetic,
		"ingredients", len(recipe.Ingredients),
		"instructions", len(recipe.Instructions))

	return &Result{
		Recipe:               recipe,
		ScreenshotCandidates: content.ScreenshotCandidates,
		Degraded:             recipe.IsSynthetic,
	}, nil
}
