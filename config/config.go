package config

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/text/language"
)

// Config holds browser configuration.
type Config struct {
	APIURL           string        `yaml:"api_url"`
	MaxResults       int           `yaml:"max_results"`
	PageSize         int           `yaml:"page_size"`
	Timeout          time.Duration `yaml:"timeout"`
	Parallelism      int           `yaml:"parallelism"`
	RequestsPerSec   float64       `yaml:"requests_per_second"` // 0 disables throttling
	Burst            int           `yaml:"burst"`
	UserAgent        string        `yaml:"user_agent"`
	PlaceholderCover string        `yaml:"placeholder_cover"`
	Locale           string        `yaml:"locale"`
	Genres           []string      `yaml:"genres"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	Verbose          bool          `yaml:"verbose"`
}

// MaxResultsLimit is the largest page the volumes endpoint serves.
const MaxResultsLimit = 40

// DefaultConfig returns defaults matching the public volumes endpoint.
func DefaultConfig() *Config {
	return &Config{
		APIURL:           "https://www.googleapis.com/books/v1/volumes",
		MaxResults:       MaxResultsLimit,
		PageSize:         6,
		Timeout:          10 * time.Second,
		Parallelism:      2,
		RequestsPerSec:   5,
		Burst:            2,
		UserAgent:        "go-book-browser/1.0 (+https://github.com/aluiziolira/go-book-browser)",
		PlaceholderCover: "https://via.placeholder.com/150",
		Locale:           "en",
		Genres: []string{
			"fiction",
			"fantasy",
			"mystery",
			"romance",
			"science",
			"history",
			"biography",
			"poetry",
		},
		MetricsAddr: "",
		Verbose:     false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("api URL must include a host")
	}

	if c.MaxResults <= 0 || c.MaxResults > MaxResultsLimit {
		return fmt.Errorf("max results must be between 1 and %d", MaxResultsLimit)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.RequestsPerSec < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.RequestsPerSec > 0 && c.Burst <= 0 {
		return fmt.Errorf("burst must be positive when throttling is enabled")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PlaceholderCover == "" {
		return fmt.Errorf("placeholder cover cannot be empty")
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}

	return nil
}

// LanguageTag returns the collation language for the configured locale.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// HasGenre reports whether genre is one of the selectable genres. The empty
// genre selects everything and is always allowed.
func (c *Config) HasGenre(genre string) bool {
	if genre == "" {
		return true
	}
	for _, g := range c.Genres {
		if g == genre {
			return true
		}
	}
	return false
}
