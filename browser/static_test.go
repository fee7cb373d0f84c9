package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/jarcoal/httpmock"
)

func newTestSession(t *testing.T, transport *httpmock.MockTransport) Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Driver = config.DriverStatic

	launcher, err := NewLauncher(cfg)
	if err != nil {
		t.Fatalf("new launcher: %v", err)
	}
	static, ok := launcher.(*StaticLauncher)
	if !ok {
		t.Fatalf("launcher = %T, want *StaticLauncher", launcher)
	}
	session, err := static.WithTransport(transport).Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func TestStaticSessionFollowsLoadMore(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/list/",
		htmlResponder(`<div class="summary">1-2 of 3</div><a href="/title/tt01/">a</a><a href="/title/tt02/">b</a>
			<button class="more"><a href="page-2.html">more</a></button>`))
	transport.RegisterResponder("GET", "http://example.test/list/page-2.html",
		htmlResponder(`<div class="summary">1-3 of 3</div><a href="/title/tt03/">c</a>`))

	ctx := context.Background()
	s := newTestSession(t, transport)

	if err := s.Navigate(ctx, "http://example.test/list/"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	text, err := s.Text(ctx, ".summary")
	if err != nil || text != "1-2 of 3" {
		t.Fatalf("summary = %q (%v), want 1-2 of 3", text, err)
	}

	if err := s.Click(ctx, ".more"); err != nil {
		t.Fatalf("click: %v", err)
	}
	text, err = s.Text(ctx, ".summary")
	if err != nil || text != "1-3 of 3" {
		t.Fatalf("summary after click = %q (%v), want 1-3 of 3", text, err)
	}

	markup, err := s.HTML(ctx)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	for _, id := range []string{"tt01", "tt02", "tt03"} {
		if !strings.Contains(markup, id) {
			t.Fatalf("markup missing %s", id)
		}
	}

	if err := s.Click(ctx, ".more"); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("click on last page error = %v, want ErrElementNotFound", err)
	}
}

func TestStaticSessionNavigateResetsMarkup(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/a", htmlResponder(`<p id="a">first</p>`))
	transport.RegisterResponder("GET", "http://example.test/b", htmlResponder(`<p id="b">second</p>`))

	ctx := context.Background()
	s := newTestSession(t, transport)

	if err := s.Navigate(ctx, "http://example.test/a"); err != nil {
		t.Fatalf("navigate a: %v", err)
	}
	if err := s.Navigate(ctx, "http://example.test/b"); err != nil {
		t.Fatalf("navigate b: %v", err)
	}
	markup, _ := s.HTML(ctx)
	if strings.Contains(markup, "first") || !strings.Contains(markup, "second") {
		t.Fatalf("markup = %q, want only the second page", markup)
	}
}

func TestStaticSessionMissingElement(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/", htmlResponder(`<p>empty</p>`))

	ctx := context.Background()
	s := newTestSession(t, transport)
	if err := s.Navigate(ctx, "http://example.test/"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if _, err := s.Text(ctx, ".summary"); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("text error = %v, want ErrElementNotFound", err)
	}
	if err := s.WaitFor(ctx, ".more"); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("wait error = %v, want ErrElementNotFound", err)
	}
}

func TestStaticSessionHTTPError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/", httpmock.NewStringResponder(404, ""))

	s := newTestSession(t, transport)
	if err := s.Navigate(context.Background(), "http://example.test/"); err == nil {
		t.Fatalf("expected navigate error for 404")
	}
}

func TestStaticSessionCanceledContext(t *testing.T) {
	s := newTestSession(t, httpmock.NewMockTransport())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Navigate(ctx, "http://example.test/"); !errors.Is(err, context.Canceled) {
		t.Fatalf("navigate error = %v, want context.Canceled", err)
	}
}

func TestNewLauncherUnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Driver = "lynx"
	if _, err := NewLauncher(cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
