package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reelchef/internal/domain"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/service/extractor"
)

type fakePipeline struct {
	result *extractor.Result
	err    error

	requests []domain.ExtractionRequest
}

func (f *fakePipeline) Extract(ctx context.Context, req domain.ExtractionRequest) (*extractor.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeQueueRepo struct {
	enqueued []map[string]interface{}
	err      error
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, payload.(map[string]interface{}))
	return "job-1", nil
}

func (f *fakeQueueRepo) Dequeue(ctx context.Context, jobType string) (*domain.QueueJob, error) {
	return nil, nil
}

func (f *fakeQueueRepo) Complete(ctx context.Context, jobID string) error { return nil }

func (f *fakeQueueRepo) Fail(ctx context.Context, jobID string, errorMsg string) error { return nil }

func (f *fakeQueueRepo) GetPendingCount(ctx context.Context, jobType string) (int, error) {
	return 0, nil
}

func newExtractionsHandler(pipeline *fakePipeline, repo *fakeRecipeRepo, queue *fakeQueueRepo) *ExtractionsHandler {
	return NewExtractionsHandler(testLogger(), pipeline, repo, queue, urldetector.New())
}

func extractRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/extractions", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestExtract(t *testing.T) {
	pipeline := &fakePipeline{result: &extractor.Result{
		Recipe:   sampleRecipe(42, time.Now()),
		Degraded: false,
	}}
	repo := newFakeRecipeRepo()
	handler := newExtractionsHandler(pipeline, repo, &fakeQueueRepo{})

	w := httptest.NewRecorder()
	handler.Extract(w, extractRequest(`{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","owner_id":42}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 persisted recipe, got %d", len(repo.created))
	}
	if len(pipeline.requests) != 1 || pipeline.requests[0].RequesterID != 42 {
		t.Errorf("unexpected pipeline requests %+v", pipeline.requests)
	}

	var response ExtractionResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Recipe == nil || response.Recipe.Title != "Lemon Pasta" {
		t.Errorf("unexpected recipe in response: %+v", response.Recipe)
	}
	if response.Degraded {
		t.Error("expected degraded = false")
	}
}

func TestExtractDegraded(t *testing.T) {
	recipe := sampleRecipe(42, time.Now())
	recipe.IsSynthetic = true
	pipeline := &fakePipeline{result: &extractor.Result{Recipe: recipe, Degraded: true}}
	handler := newExtractionsHandler(pipeline, newFakeRecipeRepo(), &fakeQueueRepo{})

	w := httptest.NewRecorder()
	handler.Extract(w, extractRequest(`{"url":"https://www.tiktok.com/@chef/video/7234567890123456789"}`))

	// The synthetic shell is still persisted; 422 flags it for editing
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var response ExtractionResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Degraded {
		t.Error("expected degraded = true")
	}
}

func TestExtractBadRequest(t *testing.T) {
	handler := newExtractionsHandler(&fakePipeline{}, newFakeRecipeRepo(), &fakeQueueRepo{})

	for name, body := range map[string]string{
		"malformed json": `{"url":`,
		"missing url":    `{"owner_id":42}`,
		"empty url":      `{"url":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Extract(w, extractRequest(body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestExtractUnsupportedURL(t *testing.T) {
	wrapped := fmt.Errorf("failed to resolve %q: %w", "https://example.com/video", domain.ErrInvalidURL)
	handler := newExtractionsHandler(&fakePipeline{err: wrapped}, newFakeRecipeRepo(), &fakeQueueRepo{})

	w := httptest.NewRecorder()
	handler.Extract(w, extractRequest(`{"url":"https://example.com/video"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestExtractPipelineFailure(t *testing.T) {
	handler := newExtractionsHandler(&fakePipeline{err: errors.New("boom")}, newFakeRecipeRepo(), &fakeQueueRepo{})

	w := httptest.NewRecorder()
	handler.Extract(w, extractRequest(`{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestExtractPersistFailure(t *testing.T) {
	pipeline := &fakePipeline{result: &extractor.Result{Recipe: sampleRecipe(42, time.Now())}}
	repo := newFakeRecipeRepo()
	repo.err = errors.New("connection refused")
	handler := newExtractionsHandler(pipeline, repo, &fakeQueueRepo{})

	w := httptest.NewRecorder()
	handler.Extract(w, extractRequest(`{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestExtractAsync(t *testing.T) {
	queue := &fakeQueueRepo{}
	handler := newExtractionsHandler(&fakePipeline{}, newFakeRecipeRepo(), queue)

	w := httptest.NewRecorder()
	handler.ExtractAsync(w, extractRequest(`{"url":"https://youtu.be/dQw4w9WgXcQ","owner_id":7}`))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(queue.enqueued))
	}
	payload := queue.enqueued[0]
	if payload["url"] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("payload url = %v", payload["url"])
	}
	if payload["owner_id"] != int64(7) {
		t.Errorf("payload owner_id = %v", payload["owner_id"])
	}

	var response AsyncExtractionResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.JobID == "" {
		t.Error("expected a job ID in the response")
	}
	if response.Status != domain.JobStatusPending {
		t.Errorf("status = %q, want %q", response.Status, domain.JobStatusPending)
	}
	if response.Platform != domain.PlatformYouTube {
		t.Errorf("platform = %q, want %q", response.Platform, domain.PlatformYouTube)
	}
}

func TestExtractAsyncDuplicate(t *testing.T) {
	existing := sampleRecipe(7, time.Now())
	repo := newFakeRecipeRepo()
	repo.bySource = existing
	queue := &fakeQueueRepo{}
	handler := newExtractionsHandler(&fakePipeline{}, repo, queue)

	w := httptest.NewRecorder()
	handler.ExtractAsync(w, extractRequest(`{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","owner_id":7}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("duplicate URL must not be queued, got %v", queue.enqueued)
	}

	var response ExtractionResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Recipe == nil || response.Recipe.ID != existing.ID {
		t.Errorf("expected the stored recipe back, got %+v", response.Recipe)
	}
}

func TestExtractAsyncUnsupportedURL(t *testing.T) {
	queue := &fakeQueueRepo{}
	handler := newExtractionsHandler(&fakePipeline{}, newFakeRecipeRepo(), queue)

	w := httptest.NewRecorder()
	handler.ExtractAsync(w, extractRequest(`{"url":"https://example.com/video"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("unresolvable URL must not be queued, got %v", queue.enqueued)
	}
}

func TestExtractAsyncEnqueueFailure(t *testing.T) {
	queue := &fakeQueueRepo{err: errors.New("redis down")}
	handler := newExtractionsHandler(&fakePipeline{}, newFakeRecipeRepo(), queue)

	w := httptest.NewRecorder()
	handler.ExtractAsync(w, extractRequest(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
