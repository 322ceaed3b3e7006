package urldetector

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL creates a canonical form of a URL before platform matching.
// It handles:
// - Adding https:// protocol if missing
// - Lowercasing the domain
// - Removing www. prefix
// - Removing tracking parameters (utm_*, si, fbclid, igshid, ...)
// - Validating the URL structure
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	// Step 1: Add protocol if missing
	if !strings.HasPrefix(strings.ToLower(rawURL), "http://") &&
		!strings.HasPrefix(strings.ToLower(rawURL), "https://") {
		// Check if it looks like a domain (has at least one dot)
		if strings.Contains(rawURL, ".") {
			rawURL = "https://" + rawURL
		} else {
			return "", fmt.Errorf("invalid URL: no domain found")
		}
	}

	// Step 2: Parse URL
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	// Step 3: Validate URL has a host
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: no host found")
	}

	// Step 4: Normalize domain (lowercase, remove www.)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")

	// Step 5: Remove tracking parameters
	q := u.Query()
	trackingParams := []string{
		// Google Analytics
		"utm_source",
		"utm_medium",
		"utm_campaign",
		"utm_content",
		"utm_term",
		// Platform-specific tracking
		"si",     // YouTube share ID
		"feature",
		"fbclid", // Facebook click ID
		"gclid",  // Google click ID
		"igsh",   // Instagram share token
		"igshid", // Instagram share ID (legacy)
		"ref",
		"source",
		// TikTok share tracking
		"is_from_webapp",
		"sender_device",
		"web_id",
	}

	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	// Step 6: Rebuild canonical URL
	return u.String(), nil
}
