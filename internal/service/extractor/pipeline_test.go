package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelchef/internal/browser"
	"reelchef/internal/domain"
	"reelchef/internal/pkg/urldetector"
	"reelchef/internal/storage"
)

type fakeScraper struct {
	meta *PageMeta
	err  error
}

func (f *fakeScraper) ScrapePage(_ context.Context, _ string) (*PageMeta, error) {
	return f.meta, f.err
}

// newTestPipeline wires a pipeline from fakes: a scraper stub, oEmbed
// pointed at the given endpoint (or left unreachable when empty), a chat
// provider stub, and local storage in a temp dir.
func newTestPipeline(t *testing.T, scraper PageScraper, oembedEndpoint string, chat ChatProvider) (*Pipeline, *storage.LocalStore) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	oembed := NewOEmbedExtractor(testLogger())
	for _, p := range oembed.providers {
		if oembedEndpoint != "" {
			p.Endpoint = oembedEndpoint
		} else {
			p.Endpoint = "http://127.0.0.1:1/oembed"
		}
	}

	acquirer := NewAcquirer(oembed, scraper, nil, nil, testLogger())
	thumbnails := NewThumbnailResolver(store, browser.NewManager(testLogger(), true), testLogger())
	gateway := NewGateway(chat, "model-a", "model-b", nil, "", testLogger())

	return NewPipeline(urldetector.New(), acquirer, thumbnails, gateway, testLogger()), store
}

func TestPipelineExtractSuccess(t *testing.T) {
	// oEmbed upstream serving title and a downloadable thumbnail
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title": "Fried Rice", "author_name": "Chef", "thumbnail_url": "` + server.URL + `/thumb.jpg"}`))
	})
	mux.HandleFunc("/thumb.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		if r.Method != http.MethodHead {
			w.Write(fakeJPEG)
		}
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	chat := &fakeProvider{name: "ai", replies: map[string]string{"model-a": validReply}}
	pipeline, store := newTestPipeline(t, &fakeScraper{err: errors.New("should not be called")}, server.URL+"/oembed", chat)

	result, err := pipeline.Extract(context.Background(), domain.ExtractionRequest{
		URL:         "https://youtu.be/dQw4w9WgXcQ",
		RequesterID: 42,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	recipe := result.Recipe
	if recipe.IsSynthetic {
		t.Error("IsSynthetic = true, want real extraction")
	}
	if result.Degraded {
		t.Error("Degraded = true")
	}
	if recipe.Title != "Test Dish" {
		t.Errorf("Title = %q", recipe.Title)
	}
	if recipe.SourceType != domain.PlatformYouTube {
		t.Errorf("SourceType = %q", recipe.SourceType)
	}
	if recipe.OwnerID != 42 {
		t.Errorf("OwnerID = %d", recipe.OwnerID)
	}
	if recipe.ThumbnailPath == store.PlaceholderPath() {
		t.Error("ThumbnailPath = placeholder, want downloaded thumbnail")
	}
	if !strings.HasPrefix(recipe.ThumbnailPath, "thumbnails/") {
		t.Errorf("ThumbnailPath = %q", recipe.ThumbnailPath)
	}
}

func TestPipelineExtractDegradesToSynthetic(t *testing.T) {
	// Everything downstream of URL resolution fails: no oEmbed, scraper
	// throws, AI provider down
	chat := &fakeProvider{name: "ai", err: errors.New("service unavailable")}
	pipeline, store := newTestPipeline(t, &fakeScraper{err: errors.New("scrape blocked")}, "", chat)

	result, err := pipeline.Extract(context.Background(), domain.ExtractionRequest{
		URL: "https://www.tiktok.com/@cook/video/7301234567890123456",
	})
	if err != nil {
		t.Fatalf("Extract() error = %v, pipeline must degrade not fail", err)
	}

	recipe := result.Recipe
	if !recipe.IsSynthetic {
		t.Error("IsSynthetic = false, want synthetic fallback")
	}
	if !result.Degraded {
		t.Error("Degraded = false")
	}
	if recipe.ThumbnailPath != store.PlaceholderPath() {
		t.Errorf("ThumbnailPath = %q, want placeholder", recipe.ThumbnailPath)
	}
	if len(recipe.Ingredients) == 0 || len(recipe.Instructions) == 0 {
		t.Error("synthetic recipe must still have non-empty lists")
	}
	if recipe.Instructions[0].StepNumber != 1 {
		t.Errorf("StepNumber = %d, want dense numbering from 1", recipe.Instructions[0].StepNumber)
	}
}

func TestPipelineExtractInvalidURL(t *testing.T) {
	chat := &fakeProvider{name: "ai", replies: map[string]string{"model-a": validReply}}
	pipeline, _ := newTestPipeline(t, &fakeScraper{err: errors.New("must not be reached")}, "", chat)

	tests := []string{
		"https://example.com/watch?v=abc",
		"https://www.youtube.com/",
		"not a url at all",
	}

	for _, rawURL := range tests {
		t.Run(rawURL, func(t *testing.T) {
			_, err := pipeline.Extract(context.Background(), domain.ExtractionRequest{URL: rawURL})
			if !errors.Is(err, domain.ErrInvalidURL) {
				t.Errorf("Extract(%q) error = %v, want ErrInvalidURL", rawURL, err)
			}
		})
	}

	if len(chat.calls) != 0 {
		t.Errorf("AI provider called %d times for invalid URLs, want 0", len(chat.calls))
	}
}

func TestPipelineExtractScrapedTextFeedsAI(t *testing.T) {
	scraper := &fakeScraper{meta: &PageMeta{
		Title:       "Easy Tiramisu",
		Description: "mascarpone, espresso, ladyfingers. dip, layer, chill overnight",
	}}

	var gotUserText string
	chat := &capturingProvider{reply: validReply, captured: &gotUserText}
	pipeline, _ := newTestPipeline(t, scraper, "", chat)

	_, err := pipeline.Extract(context.Background(), domain.ExtractionRequest{
		URL: "https://www.instagram.com/reel/Cabc123xyz/",
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !strings.Contains(gotUserText, "Easy Tiramisu") {
		t.Errorf("prompt text missing scraped title: %q", gotUserText)
	}
	if !strings.Contains(gotUserText, "mascarpone") {
		t.Errorf("prompt text missing scraped description: %q", gotUserText)
	}
}

type capturingProvider struct {
	reply    string
	captured *string
}

func (c *capturingProvider) Name() string { return "capturing" }

func (c *capturingProvider) Complete(_ context.Context, _, _, user string) (string, error) {
	*c.captured = user
	return c.reply, nil
}

func TestAcquirerBuildTextTemplatedFallback(t *testing.T) {
	oembed := NewOEmbedExtractor(testLogger())
	a := NewAcquirer(oembed, &fakeScraper{err: errors.New("blocked")}, nil, nil, testLogger())

	match := domain.PlatformMatch{
		Platform:     domain.PlatformTikTok,
		ContentID:    "7301234567890123456",
		AuthorHandle: "cook",
	}
	text := a.BuildText(context.Background(), "https://www.tiktok.com/@cook/video/7301234567890123456", match, &SourceMeta{})

	if !strings.Contains(text, "TikTok") {
		t.Errorf("templated text missing platform: %q", text)
	}
	if !strings.Contains(text, "@cook") {
		t.Errorf("templated text missing author handle: %q", text)
	}
	if !strings.Contains(text, "7301234567890123456") {
		t.Errorf("templated text missing content ID: %q", text)
	}
}

func TestAcquirerBuildTextPrefersTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<?xml version="1.0"?><transcript><text start="0" dur="2">add two cups of flour</text><text start="2" dur="2">then fold in the butter</text></transcript>`))
	}))
	defer server.Close()

	transcripts := NewTranscriptFetcher(testLogger())
	transcripts.endpoint = server.URL

	a := NewAcquirer(NewOEmbedExtractor(testLogger()), nil, nil, transcripts, testLogger())
	match := domain.PlatformMatch{Platform: domain.PlatformYouTube, ContentID: "dQw4w9WgXcQ"}
	meta := &SourceMeta{Title: "Bread Video", Description: "watch me bake"}

	text := a.BuildText(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", match, meta)
	if !strings.Contains(text, "add two cups of flour") {
		t.Errorf("text missing transcript: %q", text)
	}
	if strings.Contains(text, "watch me bake") {
		t.Errorf("description should be dropped when a transcript exists: %q", text)
	}
}

func TestAcquirerBuildTextNoTranscriptScrapesDescription(t *testing.T) {
	// Unreachable captions endpoint: the text must say so and fall back to
	// a description scraped from the watch page
	transcripts := NewTranscriptFetcher(testLogger())
	transcripts.endpoint = "http://127.0.0.1:1/timedtext"

	scraper := &fakeScraper{meta: &PageMeta{
		Description: "boil the pasta, whisk eggs with pecorino, toss off heat",
	}}
	a := NewAcquirer(NewOEmbedExtractor(testLogger()), scraper, nil, transcripts, testLogger())

	match := domain.PlatformMatch{Platform: domain.PlatformYouTube, ContentID: "dQw4w9WgXcQ"}
	meta := &SourceMeta{Title: "Pasta Night", Author: "Chef"}

	text := a.BuildText(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", match, meta)
	if !strings.Contains(text, "No transcript was available") {
		t.Errorf("text missing no-transcript note: %q", text)
	}
	if !strings.Contains(text, "whisk eggs with pecorino") {
		t.Errorf("text missing scraped description: %q", text)
	}
	if !strings.Contains(text, "Pasta Night") {
		t.Errorf("text missing title: %q", text)
	}
}

func TestAcquirerBuildTextNoTranscriptKeepsExistingDescription(t *testing.T) {
	transcripts := NewTranscriptFetcher(testLogger())
	transcripts.endpoint = "http://127.0.0.1:1/timedtext"

	scraper := &fakeScraper{err: errors.New("must not be scraped twice")}
	a := NewAcquirer(NewOEmbedExtractor(testLogger()), scraper, nil, transcripts, testLogger())

	match := domain.PlatformMatch{Platform: domain.PlatformYouTube, ContentID: "dQw4w9WgXcQ"}
	meta := &SourceMeta{Title: "Bread Video", Description: "500g flour, 350g water, knead and rest"}

	text := a.BuildText(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", match, meta)
	if !strings.Contains(text, "No transcript was available") {
		t.Errorf("text missing no-transcript note: %q", text)
	}
	if !strings.Contains(text, "500g flour") {
		t.Errorf("text missing description: %q", text)
	}
}
