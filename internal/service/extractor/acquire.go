package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelchef/internal/domain"
)

// SourceMeta is what the fast metadata pass learned about the post before
// any heavy acquisition runs
type SourceMeta struct {
	Title        string
	Description  string
	Author       string
	ThumbnailURL string
}

// Acquirer gathers the text and metadata that feed the AI stage. It layers
// strategies per platform: oEmbed where a keyless endpoint exists, page
// scraping otherwise, captions on top for YouTube. Acquisition is best
// effort; an empty result degrades to a templated stand-in rather than
// failing the pipeline.
type Acquirer struct {
	oembed      *OEmbedExtractor
	scraper     PageScraper
	fallback    PageScraper
	transcripts *TranscriptFetcher
	logger      *slog.Logger
}

func NewAcquirer(oembed *OEmbedExtractor, scraper, fallback PageScraper, transcripts *TranscriptFetcher, logger *slog.Logger) *Acquirer {
	return &Acquirer{
		oembed:      oembed,
		scraper:     scraper,
		fallback:    fallback,
		transcripts: transcripts,
		logger:      logger,
	}
}

// FetchMetadata runs the cheap lookups first: oEmbed for platforms that
// support it, then browser scraping, then a plain HTTP fetch. Never fails;
// a fully empty SourceMeta is a legal result.
func (a *Acquirer) FetchMetadata(ctx context.Context, rawURL string, match domain.PlatformMatch) *SourceMeta {
	meta := &SourceMeta{}

	if oe, err := a.oembed.TryExtract(ctx, rawURL); err != nil {
		a.logger.Warn("oEmbed lookup failed", "platform", match.Platform, "error", err)
	} else if oe != nil {
		meta.Title = oe.Title
		meta.Description = oe.Description
		meta.Author = oe.AuthorName
		meta.ThumbnailURL = oe.ThumbnailURL
	}

	// Scrape when oEmbed gave nothing usable. TikTok oEmbed titles carry the
	// caption, so a hit there is enough; YouTube oEmbed lacks a description
	// but the transcript pass covers that later.
	if meta.Title == "" && meta.Description == "" {
		page := a.scrapePage(ctx, rawURL, match)
		if page != nil {
			meta.Title = firstNonEmpty(meta.Title, page.Title)
			meta.Description = firstNonEmpty(meta.Description, page.Description)
			meta.Author = firstNonEmpty(meta.Author, page.Author)
			meta.ThumbnailURL = firstNonEmpty(meta.ThumbnailURL, page.ImageURL)
		}
	}

	return meta
}

func (a *Acquirer) scrapePage(ctx context.Context, rawURL string, match domain.PlatformMatch) *PageMeta {
	if a.scraper != nil {
		page, err := a.scraper.ScrapePage(ctx, rawURL)
		if err == nil {
			return page
		}
		a.logger.Warn("Browser scrape failed", "platform", match.Platform, "error", err)
	}

	if a.fallback != nil {
		page, err := a.fallback.ScrapePage(ctx, rawURL)
		if err == nil {
			return page
		}
		a.logger.Warn("HTTP scrape failed", "platform", match.Platform, "error", err)
	}

	return nil
}

const noTranscriptNote = "No transcript was available for this video."

// BuildText assembles the prompt text for the AI stage from whatever was
// acquired. YouTube prefers captions over the description; when captions are
// absent the text says so and falls back to a description scraped from the
// watch page. Short-video platforms use the caption text. When nothing was
// acquired the text is a template naming the post so the model can still
// attempt inference.
func (a *Acquirer) BuildText(ctx context.Context, rawURL string, match domain.PlatformMatch, meta *SourceMeta) string {
	var parts []string

	if meta.Title != "" {
		parts = append(parts, "Video title: "+meta.Title)
	}
	if meta.Author != "" {
		parts = append(parts, "Posted by: "+meta.Author)
	}

	description := meta.Description

	if match.Platform == domain.PlatformYouTube && a.transcripts != nil {
		transcript, err := a.transcripts.Fetch(ctx, match.ContentID)
		if err == nil {
			parts = append(parts, "Transcript:\n"+transcript)
			return strings.Join(parts, "\n\n")
		}
		a.logger.Info("No transcript available", "video_id", match.ContentID, "error", err)
		parts = append(parts, noTranscriptNote)

		// YouTube oEmbed carries a title but never a description, so with
		// the transcript gone the watch page is the only remaining source
		if description == "" {
			if page := a.scrapePage(ctx, rawURL, match); page != nil {
				description = page.Description
			}
		}
	}

	if description != "" {
		parts = append(parts, "Caption/description:\n"+description)
	}

	// The note alone is not a usable prompt
	if len(parts) == 1 && parts[0] == noTranscriptNote {
		return templatedText(match)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}

	return templatedText(match)
}

// templatedText is the last-resort prompt when no text could be acquired
func templatedText(match domain.PlatformMatch) string {
	platformName := match.Platform
	if cfg, ok := domain.GetPlatformConfig().Platforms[match.Platform]; ok {
		platformName = cfg.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A cooking video was posted on %s", platformName)
	if match.AuthorHandle != "" {
		fmt.Fprintf(&b, " by @%s", match.AuthorHandle)
	}
	fmt.Fprintf(&b, " (content ID %s). ", match.ContentID)
	b.WriteString("No caption, description, or transcript could be retrieved. Produce a minimal recipe shell the user can fill in.")
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
