// Package browser drives the page sessions used by the pagination loop.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-titles/config"
)

// ErrElementNotFound is returned when a selector matches nothing within the
// session's bounded wait.
var ErrElementNotFound = errors.New("browser: element not found")

// Session is an exclusively owned page session. Sessions are not safe for
// concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector is present or ctx expires.
	WaitFor(ctx context.Context, selector string) error
	// Text returns the rendered text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// Click scrolls the element into view and activates it.
	Click(ctx context.Context, selector string) error
	// HTML returns the full markup rendered so far.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Launcher opens a fresh session per scrape.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f LauncherFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

// NewLauncher picks the launcher named by cfg.Driver.
func NewLauncher(cfg *config.Config) (Launcher, error) {
	switch cfg.Driver {
	case config.DriverChrome:
		return NewChromeLauncher(cfg)
	case config.DriverStatic:
		return NewStaticLauncher(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
