package urldetector

import (
	"reelchef/internal/domain"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Detector resolves post URLs to a platform and canonical content ID using
// the centralized platform configuration. Resolution is pure string matching;
// no network I/O happens here.
type Detector struct {
	domainPatterns []compiledPattern
	idPatterns     map[string][]*regexp.Regexp
	mu             sync.RWMutex
}

type compiledPattern struct {
	regex    *regexp.Regexp
	platform string
}

// New creates a new URL detector from the centralized platform configuration
func New() *Detector {
	detector := &Detector{}
	detector.buildPatterns()
	return detector
}

// buildPatterns generates compiled regex patterns from domain platform config
func (d *Detector) buildPatterns() {
	d.mu.Lock()
	defer d.mu.Unlock()

	config := domain.GetPlatformConfig()
	d.domainPatterns = make([]compiledPattern, 0)
	d.idPatterns = make(map[string][]*regexp.Regexp)

	// Sort platform IDs so pattern order is deterministic
	platformIDs := make([]string, 0, len(config.Platforms))
	for platformID := range config.Platforms {
		platformIDs = append(platformIDs, platformID)
	}
	sort.Strings(platformIDs)

	for _, platformID := range platformIDs {
		platform := config.Platforms[platformID]

		for _, urlPattern := range platform.URLPatterns {
			regexPattern := buildDomainRegex(urlPattern)
			if compiled, err := regexp.Compile(regexPattern); err == nil {
				d.domainPatterns = append(d.domainPatterns, compiledPattern{
					regex:    compiled,
					platform: platformID,
				})
			}
		}

		for _, idPattern := range platform.ContentIDPatterns {
			if compiled, err := regexp.Compile(idPattern); err == nil {
				d.idPatterns[platformID] = append(d.idPatterns[platformID], compiled)
			}
		}
	}
}

// buildDomainRegex creates a host-matching regex from a simple domain pattern.
// The protocol and www prefix are optional so both raw pastes and normalized
// URLs match.
func buildDomainRegex(urlPattern string) string {
	return `(?i)(?:https?://)?(?:www\.)?` + regexp.QuoteMeta(urlPattern) + `\b`
}

// Resolve classifies a URL and extracts its canonical content ID. The first
// matching pattern wins. URLs that match no platform, or match a platform but
// carry no recognizable content shape, return domain.ErrInvalidURL.
func (d *Detector) Resolve(rawURL string) (domain.PlatformMatch, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return domain.PlatformMatch{Platform: domain.PlatformUnknown}, domain.ErrInvalidURL
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	platform := domain.PlatformUnknown
	for _, pattern := range d.domainPatterns {
		if pattern.regex.MatchString(normalized) {
			platform = pattern.platform
			break
		}
	}

	if platform == domain.PlatformUnknown {
		return domain.PlatformMatch{Platform: domain.PlatformUnknown}, domain.ErrInvalidURL
	}

	match := d.extractContentID(platform, normalized)
	if match.ContentID == "" {
		// Right domain, but not a post/video URL shape we can extract from
		return domain.PlatformMatch{Platform: domain.PlatformUnknown}, domain.ErrInvalidURL
	}

	return match, nil
}

// ResolveWithHint resolves a URL with an optional caller-declared platform.
// The hint is validated against detection: a mismatch is treated the same as
// an unrecognized URL.
func (d *Detector) ResolveWithHint(rawURL, declaredPlatform string) (domain.PlatformMatch, error) {
	match, err := d.Resolve(rawURL)
	if err != nil {
		return match, err
	}

	if declaredPlatform != "" && declaredPlatform != match.Platform {
		return domain.PlatformMatch{Platform: domain.PlatformUnknown}, domain.ErrInvalidURL
	}

	return match, nil
}

// extractContentID runs the platform's ordered ID patterns over the URL.
// Two-group patterns yield (author handle, content ID); one-group patterns
// yield just the ID.
func (d *Detector) extractContentID(platform, normalizedURL string) domain.PlatformMatch {
	match := domain.PlatformMatch{Platform: platform}

	for _, pattern := range d.idPatterns[platform] {
		groups := pattern.FindStringSubmatch(normalizedURL)
		if groups == nil {
			continue
		}

		switch len(groups) {
		case 2:
			match.ContentID = groups[1]
		case 3:
			match.AuthorHandle = strings.TrimPrefix(groups[1], "@")
			match.ContentID = groups[2]
		}

		if match.ContentID != "" {
			return match
		}
	}

	return match
}

// IsSupported checks if a URL matches any supported platform pattern
func (d *Detector) IsSupported(rawURL string) bool {
	_, err := d.Resolve(rawURL)
	return err == nil
}

// GetSupportedPlatforms returns a list of all supported platform IDs
func (d *Detector) GetSupportedPlatforms() []string {
	return domain.GetValidPlatforms()
}

// Refresh rebuilds patterns from the current domain configuration
func (d *Detector) Refresh() {
	d.buildPatterns()
}
