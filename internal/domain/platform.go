package domain

import "strings"

// Platform represents a supported social media source
type Platform struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URLPatterns []string `json:"url_patterns"`

	// ContentIDPatterns are ordered regex patterns for pulling the canonical
	// content ID out of a URL. Patterns with two capture groups yield
	// (author handle, content ID); patterns with one yield just the ID.
	// First matching pattern wins.
	ContentIDPatterns []string `json:"content_id_patterns"`

	// Embeddable indicates the platform exposes a directly-playable embed
	// player that frame capture can drive.
	Embeddable bool `json:"embeddable"`
}

// PlatformConfig holds all platform configurations
type PlatformConfig struct {
	Platforms map[string]Platform `json:"platforms"`
}

// Platform constants - single source of truth
const (
	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformUnknown   = "unknown" // For unrecognized sources
)

// GetPlatformConfig returns the centralized platform configuration
func GetPlatformConfig() PlatformConfig {
	return PlatformConfig{
		Platforms: map[string]Platform{
			PlatformYouTube: {
				ID:   PlatformYouTube,
				Name: "YouTube",
				URLPatterns: []string{
					"youtube.com",
					"youtu.be",
					"m.youtube.com", // Mobile
				},
				ContentIDPatterns: []string{
					// Canonical watch URL: youtube.com/watch?v=<id>
					`(?i)youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]{6,})`,
					// Short link: youtu.be/<id>
					`(?i)youtu\.be/([A-Za-z0-9_-]{6,})`,
					// Shorts: youtube.com/shorts/<id>
					`(?i)youtube\.com/shorts/([A-Za-z0-9_-]{6,})`,
					// Embed player: youtube.com/embed/<id>
					`(?i)youtube\.com/embed/([A-Za-z0-9_-]{6,})`,
					// Live URL: youtube.com/live/<id>
					`(?i)youtube\.com/live/([A-Za-z0-9_-]{6,})`,
				},
				Embeddable: true,
			},
			PlatformTikTok: {
				ID:   PlatformTikTok,
				Name: "TikTok",
				URLPatterns: []string{
					"tiktok.com",
					"vm.tiktok.com", // Short link
					"vt.tiktok.com", // Short link (alt)
					"m.tiktok.com",  // Mobile
				},
				ContentIDPatterns: []string{
					// Canonical post URL: tiktok.com/@user/video/<id>
					`(?i)tiktok\.com/@([\w.-]+)/video/(\d+)`,
					// Photo posts share the same shape
					`(?i)tiktok\.com/@([\w.-]+)/photo/(\d+)`,
					// Short links carry an opaque share code
					`(?i)v[mt]\.tiktok\.com/([A-Za-z0-9]+)`,
					// Embed player: tiktok.com/embed/v2/<id>
					`(?i)tiktok\.com/embed(?:/v2)?/(\d+)`,
				},
			},
			PlatformInstagram: {
				ID:   PlatformInstagram,
				Name: "Instagram",
				URLPatterns: []string{
					"instagram.com",
					"instagr.am", // Legacy short domain
				},
				ContentIDPatterns: []string{
					// Author-scoped reel: instagram.com/<user>/reel/<code>
					`(?i)instagram\.com/([\w.]+)/reel/([A-Za-z0-9_-]+)`,
					// Reels: instagram.com/reel/<code> or /reels/<code>
					`(?i)instagram\.com/reels?/([A-Za-z0-9_-]+)`,
					// Posts: instagram.com/p/<code>
					`(?i)instagram\.com/p/([A-Za-z0-9_-]+)`,
					// IGTV: instagram.com/tv/<code>
					`(?i)instagram\.com/tv/([A-Za-z0-9_-]+)`,
					`(?i)instagr\.am/p/([A-Za-z0-9_-]+)`,
				},
			},
		},
	}
}

// GetValidPlatforms returns a list of all valid platform IDs
func GetValidPlatforms() []string {
	config := GetPlatformConfig()
	platforms := make([]string, 0, len(config.Platforms))

	for platformID := range config.Platforms {
		platforms = append(platforms, platformID)
	}

	return platforms
}

// IsValidPlatform checks if a platform ID is valid
func IsValidPlatform(platformID string) bool {
	config := GetPlatformConfig()
	_, exists := config.Platforms[platformID]
	return exists
}

// GetSourceTypeConstraintSQL generates the SQL constraint for source type validation
func GetSourceTypeConstraintSQL() string {
	platforms := GetValidPlatforms()
	quotedPlatforms := make([]string, len(platforms))

	for i, platform := range platforms {
		quotedPlatforms[i] = "'" + platform + "'"
	}

	return "CHECK (source_type IN (" + strings.Join(quotedPlatforms, ", ") + "))"
}
