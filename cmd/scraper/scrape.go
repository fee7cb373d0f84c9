package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aluiziolira/go-scrape-titles/browser"
	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/aluiziolira/go-scrape-titles/pipeline"
	"github.com/aluiziolira/go-scrape-titles/scraper"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var errNoData = errors.New("no data scraped")

var (
	outputFile   string
	outputFormat string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url]",
	Short: "Expands an advanced search listing and exports every title identifier.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := cfg.TargetURL
		if len(args) == 1 {
			target = args[0]
		}
		if target == "" {
			return fmt.Errorf("a search URL is required (argument or SCRAPER_URL)")
		}
		return runScrape(cmd.Context(), cfg, target)
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path")
	scrapeCmd.Flags().StringVar(&outputFormat, "format", "", "Output format: csv, json, or dual")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(ctx context.Context, cfg *config.Config, target string) error {
	launcher, err := browser.NewLauncher(cfg)
	if err != nil {
		return err
	}
	driver, err := scraper.NewDriver(cfg, launcher)
	if err != nil {
		return err
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr, driver.Metrics)
	defer stopMetrics()

	slog.Info("starting scrape",
		slog.String("url", target),
		slog.String("driver", cfg.Driver),
	)

	bar := newProgressBar(os.Stderr)
	result, err := driver.Scrape(ctx, target, bar.update)
	bar.stop(result)
	if err != nil {
		return err
	}

	if len(result.Identifiers) == 0 {
		printSummary(result, nil, "")
		return errNoData
	}

	stats, err := export(ctx, cfg, result)
	if err != nil {
		return err
	}
	printSummary(result, &stats, cfg.OutputFile)
	return nil
}

// export streams the result through the pipeline into the configured writer.
func export(ctx context.Context, cfg *config.Config, result *models.ScrapeResult) (pipeline.Stats, error) {
	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	// the scrape is over; an interrupt now should not truncate the file
	p, err := pipeline.NewPipeline(context.WithoutCancel(ctx), writer, cfg)
	if err != nil {
		return pipeline.Stats{}, err
	}
	p.Start(1)
	if cfg.Verbose {
		p.LogStats(10 * time.Second)
	}
	if err := p.Process(result.Titles()); err != nil {
		p.Close()
		return pipeline.Stats{}, err
	}
	if err := p.Close(); err != nil {
		return pipeline.Stats{}, fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return pipeline.Stats{}, fmt.Errorf("output validation failed: %w", err)
	}
	return p.Stats(), nil
}

func serveMetrics(addr string, m *scraper.Metrics) func() {
	if addr == "" || m == nil {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func printSummary(result *models.ScrapeResult, stats *pipeline.Stats, output string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Scrape summary")

	t.AppendRow(table.Row{"URL", result.URL})
	t.AppendRow(table.Row{"Status", result.Status})
	if result.StopReason != nil {
		t.AppendRow(table.Row{"Stopped", result.StopReason.Error()})
	}
	t.AppendRow(table.Row{"Loaded", fmt.Sprintf("%d / %d", result.Loaded, result.Total)})
	t.AppendRow(table.Row{"Clicks", result.Clicks})
	t.AppendRow(table.Row{"Identifiers", len(result.Identifiers)})
	if stats != nil {
		t.AppendRow(table.Row{"Written", stats.Written})
		if len(stats.Rejected) > 0 {
			t.AppendRow(table.Row{"Rejected", fmt.Sprint(stats.Rejected)})
		}
	}
	t.AppendRow(table.Row{"Duration", result.Duration().Round(time.Millisecond)})
	if output != "" {
		t.AppendRow(table.Row{"Output", output})
	}
	if len(result.Identifiers) == 0 {
		t.SetCaption("No data scraped.")
	}
	t.Render()
}
