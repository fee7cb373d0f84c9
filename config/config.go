package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Driver kinds understood by the browser layer.
const (
	DriverChrome = "chrome"
	DriverStatic = "static"
)

// Selectors locate the page regions the pagination loop depends on.
type Selectors struct {
	Summary  string // "1-50 of 1,234" results region
	LoadMore string // control that expands the result set
}

// Config holds scraper configuration.
type Config struct {
	TargetURL string
	Selectors Selectors

	// Anchors whose href contains PathMarker carry an identifier in the
	// path segment following PathSegment.
	PathMarker  string
	PathSegment string

	Driver      string // chrome or static
	ChromePath  string
	Headless    bool
	WindowSize  string // WIDTHxHEIGHT
	UserAgent   string
	Timeout     time.Duration // overall deadline, 0 for none
	WaitTimeout time.Duration

	InitialDelay  time.Duration
	SettleDelay   time.Duration
	SettleTimeout time.Duration
	PollInterval  time.Duration
	MaxStalls     int

	OutputFile         string
	OutputFormat       string // csv, json, or dual
	BatchSize          int
	PipelineBufferSize int
	DedupeMaxSize      int

	ListenAddr  string
	MetricsAddr string
	MaxJobs     int
	Verbose     bool
}

// DefaultConfig returns defaults tuned for advanced-search result pages.
func DefaultConfig() *Config {
	return &Config{
		Selectors: Selectors{
			Summary:  ".sc-54d06b29-3",
			LoadMore: ".ipc-see-more__text",
		},
		PathMarker:         "title/tt",
		PathSegment:        "title",
		Driver:             DriverChrome,
		ChromePath:         "",
		Headless:           true,
		WindowSize:         "1920x1080",
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.150 Safari/537.36",
		Timeout:            0,
		WaitTimeout:        5 * time.Second,
		InitialDelay:       0,
		SettleDelay:        0,
		SettleTimeout:      10 * time.Second,
		PollInterval:       250 * time.Millisecond,
		MaxStalls:          3,
		OutputFile:         "output/scraped_data.csv",
		OutputFormat:       "csv",
		BatchSize:          64,
		PipelineBufferSize: 512,
		DedupeMaxSize:      100000,
		ListenAddr:         ":8501",
		MetricsAddr:        "",
		MaxJobs:            32,
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.TargetURL != "" {
		if err := ValidateTargetURL(c.TargetURL); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Selectors.Summary) == "" {
		return fmt.Errorf("summary selector cannot be empty")
	}
	if strings.TrimSpace(c.Selectors.LoadMore) == "" {
		return fmt.Errorf("load more selector cannot be empty")
	}
	if c.PathMarker == "" || c.PathSegment == "" {
		return fmt.Errorf("path marker and path segment cannot be empty")
	}
	if !strings.HasPrefix(c.PathMarker, c.PathSegment+"/") {
		return fmt.Errorf("path marker %q must start with path segment %q", c.PathMarker, c.PathSegment)
	}
	if c.Driver != DriverChrome && c.Driver != DriverStatic {
		return fmt.Errorf("driver must be chrome or static")
	}
	if _, _, err := c.Window(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial delay cannot be negative")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("settle timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PollInterval > c.SettleTimeout {
		return fmt.Errorf("poll interval (%s) cannot exceed settle timeout (%s)", c.PollInterval, c.SettleTimeout)
	}
	if c.MaxStalls <= 0 {
		return fmt.Errorf("max stalls must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.MaxJobs <= 0 {
		return fmt.Errorf("max jobs must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Window parses WindowSize into its width and height.
func (c *Config) Window() (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(c.WindowSize, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("window size %q must look like 1920x1080", c.WindowSize)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("window size must be positive")
	}
	return w, h, nil
}

// ValidateTargetURL checks that raw is an absolute http(s) URL with a host.
func ValidateTargetURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("target URL cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("target URL must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("target URL must include a host")
	}
	return nil
}
