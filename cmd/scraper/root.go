package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	envFile     string
	verbose     bool
	driverName  string
	chromePath  string
	headless    bool
	timeout     time.Duration
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "Collects title identifiers from IMDb advanced search listings.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, level := newLogger(verbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())

		loaded, err := config.Load(envFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Environment file to load before reading SCRAPER_* variables")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&driverName, "driver", config.DriverChrome, "Page driver: chrome or static")
	flags.StringVar(&chromePath, "chrome-path", "", "Chrome executable (defaults to the one on PATH)")
	flags.BoolVar(&headless, "headless", true, "Run Chrome without a window")
	flags.DurationVar(&timeout, "timeout", 0, "Overall scrape deadline, 0 for none (e.g. 30m)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
}

// applyFlags overrides environment values with flags set explicitly.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		c.Verbose = verbose
	}
	if flags.Changed("driver") {
		c.Driver = strings.ToLower(driverName)
	}
	if flags.Changed("chrome-path") {
		c.ChromePath = chromePath
	}
	if flags.Changed("headless") {
		c.Headless = headless
	}
	if flags.Changed("timeout") {
		c.Timeout = timeout
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddr = metricsAddr
	}
	if flags.Changed("output") {
		c.OutputFile = outputFile
	}
	if flags.Changed("format") {
		c.OutputFormat = strings.ToLower(outputFormat)
	}
	if flags.Changed("listen") {
		c.ListenAddr = listenAddr
	}
}
