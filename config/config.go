// Package config holds the crawl configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable for one crawl run. It is built once at startup
// and treated as immutable afterwards.
type Config struct {
	// Target site.
	CatalogURL string
	SiteURL    string
	APIBase    string

	// Page range, inclusive on both ends.
	StartPage int
	EndPage   int

	// Wait budgets. Timeouts apply per wait operation, not globally.
	MaxWaitTimeout  time.Duration
	PageLoadTimeout time.Duration
	CardLoadTimeout time.Duration

	// Pacing. MinimalDelay spaces cards and pages, SettleTime lets the DOM
	// stabilise after a readiness signal before extraction starts.
	MinimalDelay time.Duration
	SettleTime   time.Duration

	// Retry policy for navigation failures.
	RetryAttempts int
	RetryDelay    time.Duration

	// Run-level circuit breaker and page-failure behaviour.
	MaxConsecutiveErrors int
	ErrorCooldown        time.Duration
	ContinueOnError      bool

	// Failed-card backlog: retried once after the main pass when the
	// backlog is at most MaxRetryBacklog entries.
	MaxRetryBacklog int

	// Output and resume.
	OutputDir    string
	DataFile     string
	ProgressFile string
	PrettyPrint  bool
	LiveSave     bool
	EnableResume bool

	// Extraction options.
	Strategy        string // meta or markup
	CleanText       bool
	IncludeMetadata bool
	ImageSize       string
	DedupeMaxSize   int

	// Selectors matching card links on a catalog page.
	CardLinkSelectors []string

	// Browser session.
	UserAgent string
	Headless  bool

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the defaults for the shoob.gg catalog.
func DefaultConfig() *Config {
	return &Config{
		CatalogURL: "https://shoob.gg/cards",
		SiteURL:    "https://shoob.gg",
		APIBase:    "https://api.shoob.gg/site/api",

		StartPage: 1,
		EndPage:   2311,

		MaxWaitTimeout:  30 * time.Second,
		PageLoadTimeout: 20 * time.Second,
		CardLoadTimeout: 15 * time.Second,

		MinimalDelay: 100 * time.Millisecond,
		SettleTime:   500 * time.Millisecond,

		RetryAttempts: 3,
		RetryDelay:    time.Second,

		MaxConsecutiveErrors: 5,
		ErrorCooldown:        2 * time.Second,
		ContinueOnError:      true,

		MaxRetryBacklog: 10,

		OutputDir:    "output",
		DataFile:     "data.json",
		ProgressFile: "process.json",
		PrettyPrint:  true,
		LiveSave:     true,
		EnableResume: true,

		Strategy:        "meta",
		CleanText:       true,
		IncludeMetadata: true,
		ImageSize:       "700",
		DedupeMaxSize:   500000,

		CardLinkSelectors: []string{
			"a[href*='/cards/info/']",
			"a[href*='/inventory/']",
		},

		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headless: true,

		MetricsAddr: "",
		Verbose:     false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"catalog URL": c.CatalogURL, "site URL": c.SiteURL} {
		if raw == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host", name)
		}
	}

	if c.StartPage <= 0 {
		return fmt.Errorf("start page must be positive")
	}
	if c.EndPage < c.StartPage {
		return fmt.Errorf("end page (%d) cannot precede start page (%d)", c.EndPage, c.StartPage)
	}
	if c.MaxWaitTimeout < 5*time.Second {
		return fmt.Errorf("max wait timeout must be at least 5s")
	}
	if c.PageLoadTimeout <= 0 || c.CardLoadTimeout <= 0 {
		return fmt.Errorf("load timeouts must be positive")
	}
	if c.MinimalDelay < 0 || c.SettleTime < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("max consecutive errors must be positive")
	}
	if c.MaxRetryBacklog < 0 {
		return fmt.Errorf("retry backlog size cannot be negative")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.DataFile == "" || c.ProgressFile == "" {
		return fmt.Errorf("output file names cannot be empty")
	}
	if c.Strategy != "meta" && c.Strategy != "markup" {
		return fmt.Errorf("strategy must be meta or markup")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe cache size must be positive")
	}
	if len(c.CardLinkSelectors) == 0 {
		return fmt.Errorf("at least one card link selector is required")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// EnvInt reads an integer environment override. The second return reports
// whether the variable was set.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
