package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-titles/browser"
	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/aluiziolira/go-scrape-titles/parser"
)

// Driver expands a paginated listing until every result is rendered and
// extracts the identifiers it links to.
type Driver struct {
	cfg       *config.Config
	launcher  browser.Launcher
	extractor *parser.Extractor
	Metrics   *Metrics

	// one scrape at a time; each scrape owns its own session
	mu sync.Mutex
}

// NewDriver builds a driver opening sessions from launcher.
func NewDriver(cfg *config.Config, launcher browser.Launcher) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if launcher == nil {
		return nil, fmt.Errorf("launcher is nil")
	}
	return &Driver{
		cfg:       cfg,
		launcher:  launcher,
		extractor: parser.NewExtractor(cfg.PathMarker, cfg.PathSegment),
		Metrics:   NewMetrics(),
	}, nil
}

// Scrape loads target, expands it and returns the identifiers found.
//
// Progress is reported through onProgress as fractions that never decrease.
// A missing or non-numeric total at start fails the whole scrape with
// ErrTotalCountUnavailable. Failures inside the loop end it early: the
// returned result then has StatusPartial and StopReason set, and still
// holds every identifier rendered so far.
func (d *Driver) Scrape(ctx context.Context, target string, onProgress ProgressFunc) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.ValidateTargetURL(target); err != nil {
		return nil, err
	}
	if !d.mu.TryLock() {
		d.Metrics.IncError(errorTypeLabel(ErrBusy))
		return nil, ErrBusy
	}
	defer d.mu.Unlock()

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	result, err := d.scrape(ctx, target, onProgress)
	if err != nil {
		d.Metrics.IncRun("failed")
		d.Metrics.IncError(errorTypeLabel(err))
		slog.Error("scrape failed", slog.String("url", target), slog.Any("error", err))
		return nil, err
	}

	d.Metrics.IncRun(string(result.Status))
	d.Metrics.AddIdentifiers(len(result.Identifiers))
	if result.StopReason != nil {
		d.Metrics.IncError(errorTypeLabel(result.StopReason))
	}
	slog.Info("scrape finished",
		slog.String("url", target),
		slog.String("status", string(result.Status)),
		slog.Int("identifiers", len(result.Identifiers)),
		slog.Int("loaded", result.Loaded),
		slog.Int("total", result.Total),
		slog.Int("clicks", result.Clicks),
		slog.Duration("duration", result.Duration()),
	)
	return result, nil
}

func (d *Driver) scrape(ctx context.Context, target string, onProgress ProgressFunc) (*models.ScrapeResult, error) {
	start := time.Now()

	session, err := d.launcher.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("close session", slog.Any("error", err))
		}
	}()

	stepStart := time.Now()
	if err := session.Navigate(ctx, target); err != nil {
		return nil, err
	}
	d.Metrics.ObserveStep("navigate", time.Since(stepStart))
	if err := sleep(ctx, d.cfg.InitialDelay); err != nil {
		return nil, err
	}

	total, err := d.readTotal(ctx, session)
	if err != nil {
		return nil, ErrTotalCountUnavailable{Err: err}
	}
	slog.Debug("total count", slog.String("url", target), slog.Int("total", total))

	result := &models.ScrapeResult{
		URL:       target,
		Total:     total,
		StartTime: start,
	}

	tracker := newProgressTracker(total, onProgress, d.Metrics)
	if total > 0 {
		result.Loaded, result.Clicks, result.StopReason = d.paginate(ctx, session, tracker)
		if result.StopReason != nil {
			slog.Warn("pagination stopped early",
				slog.String("url", target),
				slog.Int("loaded", result.Loaded),
				slog.Int("total", total),
				slog.Any("error", result.StopReason),
			)
		}
	}

	// Capture even when ctx has expired so partial results survive.
	captureCtx, cancelCapture := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.WaitTimeout)
	defer cancelCapture()
	stepStart = time.Now()
	markup, err := session.HTML(captureCtx)
	if err != nil {
		return nil, err
	}
	d.Metrics.ObserveStep("capture", time.Since(stepStart))

	result.Identifiers = d.extractor.Extract(markup)
	result.EndTime = time.Now()
	switch {
	case total == 0:
		result.Status = models.StatusEmpty
	case result.StopReason != nil:
		result.Status = models.StatusPartial
	default:
		result.Status = models.StatusComplete
	}
	return result, nil
}

func (d *Driver) readTotal(ctx context.Context, s browser.Session) (int, error) {
	stepStart := time.Now()
	defer func() { d.Metrics.ObserveStep("total", time.Since(stepStart)) }()

	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.WaitTimeout)
	defer cancel()

	if err := s.WaitFor(waitCtx, d.cfg.Selectors.Summary); err != nil {
		return 0, err
	}
	text, err := s.Text(waitCtx, d.cfg.Selectors.Summary)
	if err != nil {
		return 0, err
	}
	return parser.ParseTotal(text)
}

// paginate clicks "load more" until the loaded count reaches the total or a
// step fails, returning the last loaded count and why it stopped early.
func (d *Driver) paginate(ctx context.Context, s browser.Session, tracker *progressTracker) (int, int, error) {
	loaded, clicks, stalls := 0, 0, 0
	for loaded < tracker.total {
		if err := ctx.Err(); err != nil {
			return loaded, clicks, err
		}

		if err := d.clickLoadMore(ctx, s); err != nil {
			// a listing that fits on one page has no control to click
			if n, ok := d.fullyLoaded(ctx, s, tracker.total); ok {
				tracker.observe(n)
				return n, clicks, nil
			}
			return loaded, clicks, ErrLoadMoreUnavailable{Err: err}
		}
		clicks++
		d.Metrics.IncClicks()

		next, err := d.awaitLoaded(ctx, s, loaded)
		if err != nil {
			return loaded, clicks, err
		}

		if next > loaded {
			stalls = 0
			loaded = next
		} else {
			stalls++
			if stalls >= d.cfg.MaxStalls {
				return loaded, clicks, ErrStalled{Loaded: loaded, Clicks: clicks}
			}
		}

		p := tracker.observe(loaded)
		slog.Debug("scrape progress",
			slog.Int("loaded", p.Loaded),
			slog.Int("total", p.Total),
			slog.Float64("fraction", p.Fraction),
		)
	}
	return loaded, clicks, nil
}

func (d *Driver) clickLoadMore(ctx context.Context, s browser.Session) error {
	stepStart := time.Now()
	defer func() { d.Metrics.ObserveStep("click", time.Since(stepStart)) }()

	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.WaitTimeout)
	defer cancel()

	if err := s.WaitFor(waitCtx, d.cfg.Selectors.LoadMore); err != nil {
		return err
	}
	return s.Click(waitCtx, d.cfg.Selectors.LoadMore)
}

// fullyLoaded reports whether the summary already shows every result.
func (d *Driver) fullyLoaded(ctx context.Context, s browser.Session, total int) (int, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.WaitTimeout)
	defer cancel()
	text, err := s.Text(waitCtx, d.cfg.Selectors.Summary)
	if err != nil {
		return 0, false
	}
	n, err := parser.ParseLoaded(text)
	if err != nil || n < total {
		return 0, false
	}
	return n, true
}

// awaitLoaded polls the summary until it reports more than previous or the
// settle timeout passes, then returns the last count read.
func (d *Driver) awaitLoaded(ctx context.Context, s browser.Session, previous int) (int, error) {
	stepStart := time.Now()
	defer func() { d.Metrics.ObserveStep("settle", time.Since(stepStart)) }()

	if err := sleep(ctx, d.cfg.SettleDelay); err != nil {
		return previous, err
	}

	deadline := time.Now().Add(d.cfg.SettleTimeout)
	for {
		waitCtx, cancel := context.WithTimeout(ctx, d.cfg.WaitTimeout)
		text, err := s.Text(waitCtx, d.cfg.Selectors.Summary)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return previous, ctx.Err()
			}
			return previous, ErrSummaryUnavailable{Err: err}
		}

		n, err := parser.ParseLoaded(text)
		if err != nil {
			return previous, ErrLoadedCountInvalid{Err: err}
		}
		if n > previous || !time.Now().Before(deadline) {
			return n, nil
		}
		if err := sleep(ctx, d.cfg.PollInterval); err != nil {
			return previous, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

