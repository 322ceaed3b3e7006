package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelchef/internal/browser"
	"reelchef/internal/domain"
	"reelchef/internal/storage"
)

const (
	thumbnailHeadTimeout     = 5 * time.Second
	thumbnailDownloadTimeout = 15 * time.Second
	maxThumbnailBytes        = 10 * 1024 * 1024
	frameSettleDelay         = 400 * time.Millisecond
	captureSessionTimeout    = 45 * time.Second
)

// frameTimestamps are the fixed offsets sampled during video frame capture.
// The temporal-median surviving frame is a stand-in for real food detection;
// picking the middle of whatever succeeded is an accepted approximation.
var frameTimestamps = []float64{15, 30, 45, 60, 90, 120, 180}

// ThumbnailResolver produces a guaranteed local thumbnail path through a
// fallback cascade: validate+download the candidate URL, capture video
// frames, or fall back to the placeholder asset. It never fails.
type ThumbnailResolver struct {
	store      *storage.LocalStore
	browser    *browser.Manager
	logger     *slog.Logger
	httpClient *http.Client
}

// NewThumbnailResolver creates a thumbnail resolver
func NewThumbnailResolver(store *storage.LocalStore, browserManager *browser.Manager, logger *slog.Logger) *ThumbnailResolver {
	return &ThumbnailResolver{
		store:   store,
		browser: browserManager,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: thumbnailDownloadTimeout,
		},
	}
}

// ResolveThumbnail runs the cascade and always returns a usable relative
// path. The returned candidate list holds the surviving captured frame when
// frame capture produced the thumbnail.
func (r *ThumbnailResolver) ResolveThumbnail(ctx context.Context, candidateURL string, match domain.PlatformMatch) (string, []domain.ScreenshotCandidate) {
	// Step 1: validate and download the candidate URL. A successful download
	// skips every later step.
	if candidateURL != "" {
		path, err := r.validateAndDownload(ctx, candidateURL)
		if err == nil {
			return path, nil
		}
		r.logger.Warn("Thumbnail candidate download failed",
			"url", candidateURL,
			"platform", match.Platform,
			"content_id", match.ContentID,
			"error", err)
	}

	// Step 2: capture frames from the embed player where the platform
	// supports it
	if r.canCapture(match) {
		path, candidate, err := r.captureFrames(ctx, match)
		if err == nil {
			return path, []domain.ScreenshotCandidate{candidate}
		}
		r.logger.Warn("Frame capture failed",
			"platform", match.Platform,
			"content_id", match.ContentID,
			"error", err)
	}

	// Step 3: the placeholder always exists
	return r.store.PlaceholderPath(), nil
}

// validateAndDownload confirms the URL serves an image via a HEAD probe, then
// downloads it under a fresh unique filename
func (r *ThumbnailResolver) validateAndDownload(ctx context.Context, imageURL string) (string, error) {
	headCtx, cancel := context.WithTimeout(ctx, thumbnailHeadTimeout)
	defer cancel()

	headReq, err := http.NewRequestWithContext(headCtx, "HEAD", imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create HEAD request: %w", err)
	}
	headReq.Header.Set("User-Agent", browserUserAgent)

	headResp, err := r.httpClient.Do(headReq)
	if err != nil {
		return "", fmt.Errorf("HEAD probe failed: %w", err)
	}
	headResp.Body.Close()

	if headResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HEAD probe returned %d", headResp.StatusCode)
	}

	contentType := headResp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("candidate is not an image (content-type %q)", contentType)
	}

	getReq, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create GET request: %w", err)
	}
	getReq.Header.Set("User-Agent", browserUserAgent)

	getResp, err := r.httpClient.Do(getReq)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer getResp.Body.Close()

	if getResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned %d", getResp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(getResp.Body, maxThumbnailBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image body was empty")
	}

	path, err := r.store.SaveImage(data, contentType)
	if err != nil {
		return "", err
	}

	r.logger.Info("Downloaded thumbnail", "url", imageURL, "path", path)
	return path, nil
}

// canCapture reports whether frame capture applies to this match
func (r *ThumbnailResolver) canCapture(match domain.PlatformMatch) bool {
	if !r.browser.Available() || match.ContentID == "" {
		return false
	}
	platform, ok := domain.GetPlatformConfig().Platforms[match.Platform]
	return ok && platform.Embeddable
}

// captureFrames samples frames at the fixed timestamp list from the embed
// player, keeps the temporal-median capture, and deletes the rest
func (r *ThumbnailResolver) captureFrames(ctx context.Context, match domain.PlatformMatch) (string, domain.ScreenshotCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, captureSessionTimeout)
	defer cancel()

	page, err := r.browser.NewPage(ctx)
	if err != nil {
		return "", domain.ScreenshotCandidate{}, fmt.Errorf("failed to open capture page: %w", err)
	}
	defer page.Close()

	embedURL := fmt.Sprintf("https://www.youtube.com/embed/%s?autoplay=1&mute=1&controls=0", match.ContentID)

	page = page.Timeout(captureSessionTimeout)
	if err := page.Navigate(embedURL); err != nil {
		return "", domain.ScreenshotCandidate{}, fmt.Errorf("failed to navigate to embed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", domain.ScreenshotCandidate{}, fmt.Errorf("embed never loaded: %w", err)
	}
	if _, err := page.Element("video"); err != nil {
		return "", domain.ScreenshotCandidate{}, fmt.Errorf("embed has no playable video element: %w", err)
	}

	var captures []domain.ScreenshotCandidate
	for _, timestamp := range frameTimestamps {
		if ctx.Err() != nil {
			break
		}

		_, err := page.Eval(`(t) => {
			const v = document.querySelector('video');
			if (!v) throw new Error('no video element');
			v.currentTime = t;
			v.pause();
		}`, timestamp)
		if err != nil {
			r.logger.Debug("Frame seek failed",
				"content_id", match.ContentID,
				"timestamp", timestamp,
				"error", err)
			continue
		}

		// Let the player render the seeked frame before capturing
		time.Sleep(frameSettleDelay)

		shot, err := page.Screenshot(false, nil)
		if err != nil {
			r.logger.Debug("Frame screenshot failed",
				"content_id", match.ContentID,
				"timestamp", timestamp,
				"error", err)
			continue
		}

		path, err := r.store.SaveImage(shot, "image/png")
		if err != nil {
			r.logger.Warn("Failed to save captured frame", "error", err)
			continue
		}

		captures = append(captures, domain.ScreenshotCandidate{
			Path:             path,
			TimestampSeconds: timestamp,
		})
	}

	if len(captures) == 0 {
		return "", domain.ScreenshotCandidate{}, fmt.Errorf("no frames captured")
	}

	// Keep the temporal-median capture, discard the rest
	selected := captures[len(captures)/2]
	for _, capture := range captures {
		if capture.Path == selected.Path {
			continue
		}
		if err := r.store.Remove(capture.Path); err != nil {
			r.logger.Warn("Failed to remove unselected frame", "path", capture.Path, "error", err)
		}
	}

	r.logger.Info("Selected captured frame as thumbnail",
		"content_id", match.ContentID,
		"timestamp", selected.TimestampSeconds,
		"captured", len(captures))

	return selected.Path, selected, nil
}
