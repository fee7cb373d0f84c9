package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "relative target url",
			mutate: func(cfg *Config) {
				cfg.TargetURL = "/search/title"
			},
			wantErr: "target URL",
		},
		{
			name: "target url without host",
			mutate: func(cfg *Config) {
				cfg.TargetURL = "http://"
			},
			wantErr: "target URL",
		},
		{
			name: "empty summary selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.Summary = " "
			},
			wantErr: "summary selector",
		},
		{
			name: "empty load more selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.LoadMore = ""
			},
			wantErr: "load more selector",
		},
		{
			name: "marker outside segment",
			mutate: func(cfg *Config) {
				cfg.PathMarker = "name/nm"
			},
			wantErr: "path marker",
		},
		{
			name: "unknown driver",
			mutate: func(cfg *Config) {
				cfg.Driver = "firefox"
			},
			wantErr: "driver",
		},
		{
			name: "bad window size",
			mutate: func(cfg *Config) {
				cfg.WindowSize = "wide"
			},
			wantErr: "window size",
		},
		{
			name: "negative wait timeout",
			mutate: func(cfg *Config) {
				cfg.WaitTimeout = -1 * time.Second
			},
			wantErr: "wait timeout",
		},
		{
			name: "negative overall timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout cannot be negative",
		},
		{
			name: "no overall timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = 0
			},
		},
		{
			name: "poll slower than settle",
			mutate: func(cfg *Config) {
				cfg.PollInterval = time.Minute
			},
			wantErr: "poll interval",
		},
		{
			name: "zero stalls",
			mutate: func(cfg *Config) {
				cfg.MaxStalls = 0
			},
			wantErr: "max stalls",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xlsx"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Timeout != 0 {
		t.Fatalf("default overall timeout = %v, want none", cfg.Timeout)
	}
	w, h, err := cfg.Window()
	if err != nil || w != 1920 || h != 1080 {
		t.Fatalf("window = %dx%d (%v), want 1920x1080", w, h, err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_URL", "https://www.imdb.com/search/title/?genres=drama")
	t.Setenv("SCRAPER_DRIVER", "STATIC")
	t.Setenv("SCRAPER_WAIT_TIMEOUT", "7")
	t.Setenv("SCRAPER_SETTLE_TIMEOUT", "1500ms")
	t.Setenv("SCRAPER_HEADLESS", "false")
	t.Setenv("SCRAPER_MAX_STALLS", "5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TargetURL != "https://www.imdb.com/search/title/?genres=drama" {
		t.Fatalf("target url = %q", cfg.TargetURL)
	}
	if cfg.Driver != DriverStatic {
		t.Fatalf("driver = %q, want %q", cfg.Driver, DriverStatic)
	}
	if cfg.WaitTimeout != 7*time.Second {
		t.Fatalf("wait timeout = %v, want 7s", cfg.WaitTimeout)
	}
	if cfg.SettleTimeout != 1500*time.Millisecond {
		t.Fatalf("settle timeout = %v, want 1.5s", cfg.SettleTimeout)
	}
	if cfg.Headless {
		t.Fatalf("headless should be false")
	}
	if cfg.MaxStalls != 5 {
		t.Fatalf("max stalls = %d, want 5", cfg.MaxStalls)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate, got %v", err)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SCRAPER_LOAD_MORE_SELECTOR=a.next\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv never overrides variables that are already set; t.Setenv
	// restores the original state once godotenv has written the value.
	t.Setenv("SCRAPER_LOAD_MORE_SELECTOR", "")
	os.Unsetenv("SCRAPER_LOAD_MORE_SELECTOR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Selectors.LoadMore != "a.next" {
		t.Fatalf("load more selector = %q, want a.next", cfg.Selectors.LoadMore)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SCRAPER_MAX_STALLS", "many")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil || !strings.Contains(err.Error(), "SCRAPER_MAX_STALLS") {
		t.Fatalf("expected SCRAPER_MAX_STALLS error, got %v", err)
	}
}

func TestValidateTargetURL(t *testing.T) {
	good := []string{"https://www.imdb.com/search/title/?title_type=feature", "http://example.test/list"}
	for _, raw := range good {
		if err := ValidateTargetURL(raw); err != nil {
			t.Errorf("ValidateTargetURL(%q) = %v, want nil", raw, err)
		}
	}
	bad := []string{"", "   ", "ftp://example.test", "example.test/list", "https://"}
	for _, raw := range bad {
		if err := ValidateTargetURL(raw); err == nil {
			t.Errorf("ValidateTargetURL(%q) = nil, want error", raw)
		}
	}
}
