package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load returns DefaultConfig overlaid with a .env file (when present) and
// SCRAPER_* environment variables. Flags are applied by the caller.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load env file", slog.Any("error", err))
	}

	cfg := DefaultConfig()
	if v, ok := EnvString("SCRAPER_URL"); ok {
		cfg.TargetURL = v
	}
	if v, ok := EnvString("SCRAPER_SUMMARY_SELECTOR"); ok {
		cfg.Selectors.Summary = v
	}
	if v, ok := EnvString("SCRAPER_LOAD_MORE_SELECTOR"); ok {
		cfg.Selectors.LoadMore = v
	}
	if v, ok := EnvString("SCRAPER_DRIVER"); ok {
		cfg.Driver = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_CHROME_PATH"); ok {
		cfg.ChromePath = v
	}
	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	var err error
	if cfg.Headless, err = envBoolOr("SCRAPER_HEADLESS", cfg.Headless); err != nil {
		return nil, err
	}
	if cfg.WaitTimeout, err = envDurationOr("SCRAPER_WAIT_TIMEOUT", cfg.WaitTimeout); err != nil {
		return nil, err
	}
	if cfg.SettleTimeout, err = envDurationOr("SCRAPER_SETTLE_TIMEOUT", cfg.SettleTimeout); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = envDurationOr("SCRAPER_TIMEOUT", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.MaxStalls, err = envIntOr("SCRAPER_MAX_STALLS", cfg.MaxStalls); err != nil {
		return nil, err
	}
	if cfg.MaxJobs, err = envIntOr("SCRAPER_MAX_JOBS", cfg.MaxJobs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key as a Go duration, or as whole seconds.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, true, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, true, nil
	}
	return 0, true, fmt.Errorf("%s: invalid duration %q", key, value)
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, true, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

func envIntOr(key string, fallback int) (int, error) {
	n, ok, err := EnvInt(key)
	if err != nil || !ok {
		return fallback, err
	}
	return n, nil
}

func envDurationOr(key string, fallback time.Duration) (time.Duration, error) {
	d, ok, err := EnvDuration(key)
	if err != nil || !ok {
		return fallback, err
	}
	return d, nil
}

func envBoolOr(key string, fallback bool) (bool, error) {
	b, ok, err := EnvBool(key)
	if err != nil || !ok {
		return fallback, err
	}
	return b, nil
}
