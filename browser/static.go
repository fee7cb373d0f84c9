package browser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/gocolly/colly/v2"
)

// StaticLauncher opens colly-backed sessions for listings whose "load more"
// control is a plain link to the next page. No JavaScript is executed.
type StaticLauncher struct {
	cfg       *config.Config
	transport http.RoundTripper
}

// NewStaticLauncher builds a launcher with a pooled HTTP transport.
func NewStaticLauncher(cfg *config.Config) *StaticLauncher {
	return &StaticLauncher{
		cfg: cfg,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.WaitTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// WithTransport swaps the transport used by sessions opened afterwards.
func (l *StaticLauncher) WithTransport(rt http.RoundTripper) *StaticLauncher {
	l.transport = rt
	return l
}

// Open returns a new session with its own collector.
func (l *StaticLauncher) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.UserAgent(l.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(l.cfg.WaitTimeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(l.transport)

	s := &StaticSession{collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		s.lastBody = string(r.Body)
		s.lastURL = r.Request.URL
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		s.lastErr = fmt.Errorf("fetch (status %d): %w", status, err)
	})
	return s, nil
}

// StaticSession accumulates every fetched page so HTML mirrors what an
// expanding client-side list would hold.
type StaticSession struct {
	collector *colly.Collector

	current *goquery.Document
	pageURL *url.URL
	pages   []string

	lastBody string
	lastURL  *url.URL
	lastErr  error
}

// Navigate fetches target and resets the accumulated markup.
func (s *StaticSession) Navigate(ctx context.Context, target string) error {
	s.pages = nil
	if err := s.fetch(ctx, target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	return nil
}

// WaitFor checks the latest page for selector.
func (s *StaticSession) WaitFor(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// Text returns the trimmed text of the first match on the latest page.
func (s *StaticSession) Text(ctx context.Context, selector string) (string, error) {
	if err := s.WaitFor(ctx, selector); err != nil {
		return "", err
	}
	return strings.TrimSpace(s.find(selector).First().Text()), nil
}

// Click follows the link carried by selector, or by its enclosing or
// nested anchor.
func (s *StaticSession) Click(ctx context.Context, selector string) error {
	if err := s.WaitFor(ctx, selector); err != nil {
		return err
	}
	sel := s.find(selector).First()
	href, ok := sel.Attr("href")
	if !ok {
		href, ok = sel.Closest("a[href]").Attr("href")
	}
	if !ok {
		href, ok = sel.Find("a[href]").First().Attr("href")
	}
	if !ok || strings.TrimSpace(href) == "" {
		return fmt.Errorf("%w: %s has no link target", ErrElementNotFound, selector)
	}

	next, err := s.pageURL.Parse(href)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", href, err)
	}
	return s.fetch(ctx, next.String())
}

// HTML joins every page fetched since the last Navigate.
func (s *StaticSession) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(s.pages, "\n"), nil
}

// Close is a no-op; colly holds no per-session process.
func (s *StaticSession) Close() error {
	return nil
}

func (s *StaticSession) fetch(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lastBody, s.lastURL, s.lastErr = "", nil, nil

	if err := s.collector.Visit(target); err != nil {
		if s.lastErr != nil {
			return s.lastErr
		}
		return err
	}
	if s.lastErr != nil {
		return s.lastErr
	}
	if s.lastURL == nil {
		return fmt.Errorf("no response for %s", target)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.lastBody))
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}
	s.current = doc
	s.pageURL = s.lastURL
	s.pages = append(s.pages, s.lastBody)
	return nil
}

func (s *StaticSession) find(selector string) *goquery.Selection {
	if s.current == nil {
		return &goquery.Selection{}
	}
	return s.current.Find(selector)
}
