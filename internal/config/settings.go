package config

import (
	"fmt"
	"strings"
	"time"
)

// Settings is the process-wide configuration, read once at start-up and
// never mutated afterwards.
type Settings struct {
	Port    string
	GinMode string

	// BaseURL is the externally visible URL used in generated scripts.
	// Empty means derive it from each request.
	BaseURL string

	DefaultWidth  int
	DefaultHeight int
	MaxDimension  int

	LoadTimeout    time.Duration
	KindleBitDepth int

	RateLimit float64
	RateBurst int

	MetricsEnabled bool
	IndexEnabled   bool

	PagesFile  string
	ChromePath string

	// BrowserlessURL selects a remote browserless service for screenshot
	// pages instead of a local Chrome.
	BrowserlessURL string
}

// LoadSettings reads all KINDLING_* variables (and a few shared ones).
func LoadSettings() (Settings, error) {
	s := Settings{
		Port:           Get("PORT", "8000"),
		GinMode:        Get("GIN_MODE", ""),
		BaseURL:        Get("KINDLING_BASE_URL", ""),
		DefaultWidth:   GetInt("KINDLING_DEFAULT_WIDTH", 1058),
		DefaultHeight:  GetInt("KINDLING_DEFAULT_HEIGHT", 754),
		MaxDimension:   GetInt("KINDLING_MAX_DIMENSION", 4096),
		LoadTimeout:    GetDuration("KINDLING_LOAD_TIMEOUT", 30*time.Second),
		KindleBitDepth: GetInt("KINDLING_KINDLE_BIT_DEPTH", 8),
		RateLimit:      GetFloat("KINDLING_RATE_LIMIT", 0),
		RateBurst:      GetInt("KINDLING_RATE_BURST", 5),
		MetricsEnabled: GetBool("KINDLING_METRICS", true),
		IndexEnabled:   GetBool("KINDLING_INDEX", true),
		PagesFile:      Get("KINDLING_PAGES", "pages.yaml"),
		ChromePath:     Get("CHROME_PATH", ""),
		BrowserlessURL: strings.TrimSuffix(Get("BROWSERLESS_URL", ""), "/"),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the server cannot run with.
func (s Settings) Validate() error {
	if s.DefaultWidth <= 0 || s.DefaultHeight <= 0 {
		return fmt.Errorf("default page size must be positive, got %dx%d", s.DefaultWidth, s.DefaultHeight)
	}
	if s.MaxDimension <= 0 {
		return fmt.Errorf("KINDLING_MAX_DIMENSION must be positive, got %d", s.MaxDimension)
	}
	if s.DefaultWidth > s.MaxDimension || s.DefaultHeight > s.MaxDimension {
		return fmt.Errorf("default page size %dx%d exceeds KINDLING_MAX_DIMENSION %d", s.DefaultWidth, s.DefaultHeight, s.MaxDimension)
	}
	switch s.KindleBitDepth {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("KINDLING_KINDLE_BIT_DEPTH must be 1, 2, 4 or 8, got %d", s.KindleBitDepth)
	}
	if s.LoadTimeout <= 0 {
		return fmt.Errorf("KINDLING_LOAD_TIMEOUT must be positive, got %s", s.LoadTimeout)
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}
