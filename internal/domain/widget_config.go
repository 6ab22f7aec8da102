package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultDisplayName = "AI Shopping Assistant"
	DefaultAccentColor = "#3b82f6"

	// MaxDisplayNameRunes caps the assistant name shown in the widget.
	MaxDisplayNameRunes = 80
)

var (
	accentColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	platformPattern    = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)
)

// WidgetConfig is the immutable per-embed configuration shared by the host
// script and the widget UI. It is passed by value.
type WidgetConfig struct {
	DisplayName    string       `json:"displayName"`
	AccentColor    string       `json:"accentColor"`
	ScreenCorner   ScreenCorner `json:"screenCorner"`
	APIBaseURL     string       `json:"apiBaseUrl"`
	Platform       string       `json:"platform"`
	PlatformDomain string       `json:"platformDomain,omitempty"`
}

// WidgetConfigFromQuery builds a normalized config from embed query parameters
// (name, color, position, platform, domain or id).
func WidgetConfigFromQuery(q url.Values, apiBaseURL string) WidgetConfig {
	domainParam := q.Get("domain")
	if domainParam == "" {
		domainParam = q.Get("id")
	}
	cfg := WidgetConfig{
		DisplayName:    q.Get("name"),
		AccentColor:    q.Get("color"),
		ScreenCorner:   ScreenCorner(q.Get("position")),
		APIBaseURL:     apiBaseURL,
		Platform:       q.Get("platform"),
		PlatformDomain: domainParam,
	}
	return cfg.Normalize()
}

// Normalize replaces missing or malformed fields with defaults.
func (c WidgetConfig) Normalize() WidgetConfig {
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	if c.DisplayName == "" {
		c.DisplayName = DefaultDisplayName
	}
	if utf8.RuneCountInString(c.DisplayName) > MaxDisplayNameRunes {
		c.DisplayName = string([]rune(c.DisplayName)[:MaxDisplayNameRunes])
	}
	if !accentColorPattern.MatchString(c.AccentColor) {
		c.AccentColor = DefaultAccentColor
	}
	if !c.ScreenCorner.Valid() {
		c.ScreenCorner = CornerBottomRight
	}
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	if !platformPattern.MatchString(c.Platform) {
		c.Platform = PlatformGeneric
	}
	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")
	c.PlatformDomain = strings.TrimSpace(c.PlatformDomain)
	return c
}

// IsCommercePlatform reports whether p names a recognized e-commerce platform.
func IsCommercePlatform(p string) bool {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PlatformShopify, PlatformWooCommerce, PlatformBigCommerce, PlatformMagento:
		return true
	}
	return false
}
