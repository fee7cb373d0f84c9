package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-titles/browser"
	"github.com/aluiziolira/go-scrape-titles/scraper"
	"github.com/aluiziolira/go-scrape-titles/server"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the web interface.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		launcher, err := browser.NewLauncher(cfg)
		if err != nil {
			return err
		}
		driver, err := scraper.NewDriver(cfg, launcher)
		if err != nil {
			return err
		}
		srv, err := server.New(ctx, cfg, driver, driver.Metrics.Registry)
		if err != nil {
			return err
		}

		httpServer := srv.HTTPServer()
		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.ListenAndServe()
		}()
		slog.Info("web interface listening", slog.String("addr", cfg.ListenAddr))

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the web interface (e.g. :8501)")
	rootCmd.AddCommand(serveCmd)
}
