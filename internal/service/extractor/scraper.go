package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"reelchef/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// browserUserAgent is sent on plain HTTP fetches; platforms serve richer meta
// tags to real browser user agents
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	scrapeNavigationTimeout = 20 * time.Second
	httpFetchTimeout        = 10 * time.Second
	maxPageBytes            = 4 * 1024 * 1024
)

// PageMeta is the metadata scraped from a post page
type PageMeta struct {
	Title       string
	Description string
	Author      string
	ImageURL    string
}

// PageScraper fetches a post page and extracts its metadata
type PageScraper interface {
	ScrapePage(ctx context.Context, pageURL string) (*PageMeta, error)
}

// RodScraper scrapes pages through the shared headless browser. Social
// platforms render most metadata client-side, so a real browser sees far more
// than a plain GET.
type RodScraper struct {
	browser *browser.Manager
	logger  *slog.Logger
}

// NewRodScraper creates a browser-backed page scraper
func NewRodScraper(browserManager *browser.Manager, logger *slog.Logger) *RodScraper {
	return &RodScraper{
		browser: browserManager,
		logger:  logger,
	}
}

// ScrapePage navigates to the page, waits for it to settle within a bounded
// timeout, and extracts title/description/author/image metadata.
func (s *RodScraper) ScrapePage(ctx context.Context, pageURL string) (*PageMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, scrapeNavigationTimeout)
	defer cancel()

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	page = page.Timeout(scrapeNavigationTimeout)

	if err := page.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page never finished loading: %w", err)
	}

	// Give client-side rendering a beat to populate meta tags; key elements
	// like og:description appear after hydration on TikTok and Instagram
	if _, err := page.Element("head meta"); err != nil {
		return nil, fmt.Errorf("page has no meta elements: %w", err)
	}

	pageHTML, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	meta, err := parsePageMeta(pageHTML)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Scraped page metadata",
		"url", pageURL,
		"title", meta.Title,
		"has_image", meta.ImageURL != "")

	return meta, nil
}

// parsePageMeta pulls og:/twitter: meta tags and the title element out of a
// rendered HTML document
func parsePageMeta(pageHTML string) (*PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	metaContent := func(selectors ...string) string {
		for _, selector := range selectors {
			if value, ok := doc.Find(selector).First().Attr("content"); ok {
				value = strings.TrimSpace(value)
				if value != "" {
					return value
				}
			}
		}
		return ""
	}

	meta := &PageMeta{
		Title: metaContent(
			`meta[property="og:title"]`,
			`meta[name="twitter:title"]`,
		),
		Description: metaContent(
			`meta[property="og:description"]`,
			`meta[name="twitter:description"]`,
			`meta[name="description"]`,
		),
		ImageURL: metaContent(
			`meta[property="og:image"]`,
			`meta[name="twitter:image"]`,
		),
	}

	if meta.Title == "" {
		meta.Title = cleanWhitespace(doc.Find("title").First().Text())
	}

	// Author comes through differently per platform; try the common spots
	meta.Author = metaContent(
		`meta[name="author"]`,
		`meta[property="og:video:tag"]`,
		`meta[name="twitter:creator"]`,
	)
	meta.Author = strings.TrimPrefix(meta.Author, "@")

	if meta.Title == "" && meta.Description == "" {
		return nil, fmt.Errorf("no usable metadata found in page")
	}

	return meta, nil
}

// HTTPScraper is the no-browser fallback: a plain GET plus HTML meta parse.
// It sees less than the headless browser on client-rendered platforms but
// still recovers titles and og: tags served in the initial document.
type HTTPScraper struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPScraper creates a plain-HTTP page scraper
func NewHTTPScraper(logger *slog.Logger) *HTTPScraper {
	return &HTTPScraper{
		httpClient: &http.Client{
			Timeout: httpFetchTimeout,
		},
		logger: logger,
	}
}

// ScrapePage fetches the page over plain HTTP and extracts metadata from the
// initial document
func (s *HTTPScraper) ScrapePage(ctx context.Context, pageURL string) (*PageMeta, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	meta, err := parsePageMeta(string(body))
	if err == nil {
		return meta, nil
	}

	// Last resort: walk the raw HTML tree for a title element
	title, titleErr := extractTitleFromHTML(strings.NewReader(string(body)))
	if titleErr != nil {
		return nil, err
	}
	return &PageMeta{Title: title}, nil
}

// extractTitleFromHTML parses HTML and extracts the title tag content
func extractTitleFromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := findTitleInNode(doc)
	if title == "" {
		return "", fmt.Errorf("no title tag found")
	}

	return cleanWhitespace(title), nil
}

// findTitleInNode recursively searches for title tag content
func findTitleInNode(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				return c.Data
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitleInNode(c); title != "" {
			return title
		}
	}

	return ""
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
