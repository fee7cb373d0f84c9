package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/chromedp/chromedp"
)

// ChromeLauncher starts a headless Chrome per session through chromedp.
type ChromeLauncher struct {
	headless  bool
	width     int
	height    int
	userAgent string
	execPath  string
}

// NewChromeLauncher resolves the browser settings in cfg.
func NewChromeLauncher(cfg *config.Config) (*ChromeLauncher, error) {
	width, height, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	return &ChromeLauncher{
		headless:  cfg.Headless,
		width:     width,
		height:    height,
		userAgent: cfg.UserAgent,
		execPath:  cfg.ChromePath,
	}, nil
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", l.headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(l.width, l.height),
		chromedp.UserAgent(l.userAgent),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}
	return opts
}

// Open starts a browser process. The process outlives ctx and is only
// torn down by Close, so markup can still be captured after a timeout.
func (l *ChromeLauncher) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			slog.Debug("chromedp", slog.String("msg", fmt.Sprintf(format, args...)))
		}),
	)

	// Run with no actions starts the browser so launch errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &ChromeSession{
		tab:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// ChromeSession is a single Chrome tab.
type ChromeSession struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// run executes actions on the tab while honouring the deadline and
// cancellation of the caller's ctx.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.tab
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate loads url and waits for the document to be ready.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitFor polls until selector is in the DOM.
func (s *ChromeSession) WaitFor(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return notFound(selector, err)
	}
	return nil
}

// Text returns the innerText of selector, matching what a user sees.
func (s *ChromeSession) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return "", notFound(selector, err)
	}
	return text, nil
}

// Click scrolls selector into view and clicks it through JavaScript, which
// avoids overlays intercepting a synthetic mouse event.
func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	script := "document.querySelector(" + strconv.Quote(selector) + ").click()"
	err := s.run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, nil),
	)
	if err != nil {
		return notFound(selector, err)
	}
	return nil
}

// HTML returns the serialized document.
func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var markup string
	if err := s.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture markup: %w", err)
	}
	return markup, nil
}

// Close shuts the tab and the browser process down.
func (s *ChromeSession) Close() error {
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func notFound(selector string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", selector, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrElementNotFound, selector, err)
}
