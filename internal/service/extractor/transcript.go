package extractor

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	timedTextEndpoint  = "https://video.google.com/timedtext"
	transcriptTimeout  = 10 * time.Second
	maxTranscriptBytes = 2 * 1024 * 1024
)

// transcriptXML matches YouTube's timedtext caption document
type transcriptXML struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// TranscriptFetcher retrieves caption text for YouTube videos. Not every video
// has captions; absence is reported as an error so the caller can note it and
// fall back to the page description.
type TranscriptFetcher struct {
	endpoint   string
	logger     *slog.Logger
	httpClient *http.Client
}

// NewTranscriptFetcher creates a caption fetcher against the default endpoint
func NewTranscriptFetcher(logger *slog.Logger) *TranscriptFetcher {
	return &TranscriptFetcher{
		endpoint: timedTextEndpoint,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: transcriptTimeout,
		},
	}
}

// Fetch retrieves the English caption track for a video and joins it into a
// single block of text
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	query := url.Values{}
	query.Set("lang", "en")
	query.Set("v", videoID)
	requestURL := f.endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read transcript body: %w", err)
	}

	// Videos without captions return an empty 200 response
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("no caption track available for video %s", videoID)
	}

	transcript, err := parseTranscript(body)
	if err != nil {
		return "", err
	}

	f.logger.Debug("Fetched transcript",
		"video_id", videoID,
		"length", len(transcript))

	return transcript, nil
}

// parseTranscript joins timedtext segments into one normalized text block
func parseTranscript(body []byte) (string, error) {
	var doc transcriptXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to parse transcript XML: %w", err)
	}

	if len(doc.Texts) == 0 {
		return "", fmt.Errorf("transcript document contains no text segments")
	}

	var sb strings.Builder
	for _, segment := range doc.Texts {
		text := cleanWhitespace(html.UnescapeString(segment.Body))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("transcript document contains only empty segments")
	}

	return sb.String(), nil
}
