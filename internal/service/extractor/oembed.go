package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// OEmbedProvider represents an oEmbed provider with its endpoint and URL patterns
type OEmbedProvider struct {
	Name     string
	Endpoint string
	Schemes  []*regexp.Regexp
}

// oEmbedResponse represents the standard oEmbed JSON response
// See: https://oembed.com/#section2.3
type oEmbedResponse struct {
	Type         string      `json:"type"`
	Version      interface{} `json:"version"` // should be "1.0" string, but some providers send numeric 1.0
	Title        string      `json:"title"`
	AuthorName   string      `json:"author_name"`
	AuthorURL    string      `json:"author_url"`
	ProviderName string      `json:"provider_name"`
	ThumbnailURL string      `json:"thumbnail_url"`
	HTML         string      `json:"html"`
	Description  string      `json:"description"` // not in spec, but some providers include it
}

// OEmbedMetadata is the normalized result of an oEmbed lookup
type OEmbedMetadata struct {
	Title        string
	Description  string
	AuthorName   string
	ThumbnailURL string
	ProviderName string
}

// OEmbedExtractor extracts post metadata using the platforms' oEmbed APIs.
// Instagram has no keyless oEmbed endpoint, so lookups there return no
// provider and the caller falls through to scraping.
type OEmbedExtractor struct {
	providers  []*OEmbedProvider
	logger     *slog.Logger
	httpClient *http.Client
}

// builtinProviders holds the oEmbed endpoints for the supported platforms.
// Kept static rather than loading the full oembed.com registry: only two
// providers matter here and their endpoints are stable.
var builtinProviders = []struct {
	name     string
	endpoint string
	schemes  []string
}{
	{
		name:     "YouTube",
		endpoint: "https://www.youtube.com/oembed",
		schemes: []string{
			"https://*.youtube.com/watch*",
			"https://youtube.com/watch*",
			"https://youtube.com/shorts/*",
			"https://*.youtube.com/shorts/*",
			"https://youtu.be/*",
		},
	},
	{
		name:     "TikTok",
		endpoint: "https://www.tiktok.com/oembed",
		schemes: []string{
			"https://tiktok.com/*/video/*",
			"https://*.tiktok.com/*/video/*",
			"https://vm.tiktok.com/*",
			"https://vt.tiktok.com/*",
		},
	},
}

// NewOEmbedExtractor creates a new oEmbed metadata extractor
func NewOEmbedExtractor(logger *slog.Logger) *OEmbedExtractor {
	extractor := &OEmbedExtractor{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, raw := range builtinProviders {
		provider := &OEmbedProvider{
			Name:     raw.name,
			Endpoint: raw.endpoint,
			Schemes:  make([]*regexp.Regexp, 0, len(raw.schemes)),
		}
		for _, scheme := range raw.schemes {
			if compiled, err := regexp.Compile(schemeToRegex(scheme)); err == nil {
				provider.Schemes = append(provider.Schemes, compiled)
			}
		}
		extractor.providers = append(extractor.providers, provider)
	}

	return extractor
}

// Match finds an oEmbed provider for the given URL.
// Returns nil if no provider matches.
func (e *OEmbedExtractor) Match(resourceURL string) *OEmbedProvider {
	for _, provider := range e.providers {
		for _, pattern := range provider.Schemes {
			if pattern.MatchString(resourceURL) {
				return provider
			}
		}
	}
	return nil
}

// TryExtract attempts to extract metadata using oEmbed.
// Returns nil metadata and nil error if no oEmbed provider covers the URL
// (not an error, just skip). Returns an error only if a provider exists but
// extraction failed.
func (e *OEmbedExtractor) TryExtract(ctx context.Context, resourceURL string) (*OEmbedMetadata, error) {
	provider := e.Match(resourceURL)
	if provider == nil {
		return nil, nil
	}

	oembedURL, err := e.buildOEmbedURL(provider.Endpoint, resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build oEmbed URL: %w", err)
	}

	e.logger.Debug("Making oEmbed API request",
		"provider", provider.Name,
		"oembed_api_url", oembedURL,
		"resource_url", resourceURL)

	oembedData, err := e.fetchOEmbed(ctx, oembedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data from %s: %w", provider.Name, err)
	}

	metadata := &OEmbedMetadata{
		Title:        oembedData.Title,
		Description:  oembedData.Description,
		AuthorName:   oembedData.AuthorName,
		ThumbnailURL: oembedData.ThumbnailURL,
		ProviderName: oembedData.ProviderName,
	}

	e.logger.Info("oEmbed extraction successful",
		"provider", provider.Name,
		"url", resourceURL,
		"title", metadata.Title,
		"has_thumbnail", metadata.ThumbnailURL != "")

	return metadata, nil
}

// buildOEmbedURL constructs the oEmbed API URL with proper parameters
func (e *OEmbedExtractor) buildOEmbedURL(endpoint, resourceURL string) (string, error) {
	// Some endpoints have placeholders like {format}
	endpoint = strings.ReplaceAll(endpoint, "{format}", "json")

	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL: %w", err)
	}

	query := baseURL.Query()
	query.Set("url", resourceURL)
	query.Set("format", "json")
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// fetchOEmbed makes the HTTP request to the oEmbed endpoint
func (e *OEmbedExtractor) fetchOEmbed(ctx context.Context, oembedURL string) (*oEmbedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", oembedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set a realistic User-Agent (some providers check this)
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("HTTP error: %d %s (body: %s)", resp.StatusCode, resp.Status, string(body))
	}

	var oembedResp oEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&oembedResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &oembedResp, nil
}

// schemeToRegex converts an oEmbed URL scheme pattern to a regex pattern.
// The scheme prefix and www. are optional so protocol-less pastes, which the
// platform detector accepts, still hit oEmbed. Example:
//
//	"https://vm.tiktok.com/*" -> "^(?:https?://)?(?:www\\.)?vm\\.tiktok\\.com/.*$"
func schemeToRegex(scheme string) string {
	pattern := regexp.QuoteMeta(scheme)

	// \* (escaped by QuoteMeta) -> .* (match any characters)
	pattern = strings.ReplaceAll(pattern, "\\*", ".*")

	pattern = strings.Replace(pattern, "https://", `(?:https?://)?(?:www\.)?`, 1)

	return "(?i)^" + pattern + "$"
}
