package scraper

import (
	"context"
	"errors"
	"fmt"
)

// ErrBusy is returned when a scrape is already running on the driver.
var ErrBusy = errors.New("scraper: a scrape is already running")

// ErrTotalCountUnavailable indicates the results summary was missing or
// unparsable when the scrape started. No result is produced.
type ErrTotalCountUnavailable struct {
	Err error
}

func (e ErrTotalCountUnavailable) Error() string {
	return fmt.Errorf("total count unavailable: %w", e.Err).Error()
}

func (e ErrTotalCountUnavailable) Unwrap() error {
	return e.Err
}

// ErrLoadMoreUnavailable indicates the "load more" control could not be
// found or clicked within the wait window.
type ErrLoadMoreUnavailable struct {
	Err error
}

func (e ErrLoadMoreUnavailable) Error() string {
	return fmt.Errorf("load more unavailable: %w", e.Err).Error()
}

func (e ErrLoadMoreUnavailable) Unwrap() error {
	return e.Err
}

// ErrSummaryUnavailable indicates the results summary vanished mid-loop.
type ErrSummaryUnavailable struct {
	Err error
}

func (e ErrSummaryUnavailable) Error() string {
	return fmt.Errorf("summary unavailable: %w", e.Err).Error()
}

func (e ErrSummaryUnavailable) Unwrap() error {
	return e.Err
}

// ErrLoadedCountInvalid indicates the summary no longer held a numeric range.
type ErrLoadedCountInvalid struct {
	Err error
}

func (e ErrLoadedCountInvalid) Error() string {
	return fmt.Errorf("loaded count invalid: %w", e.Err).Error()
}

func (e ErrLoadedCountInvalid) Unwrap() error {
	return e.Err
}

// ErrStalled indicates repeated expansions that did not grow the list.
type ErrStalled struct {
	Loaded int
	Clicks int
}

func (e ErrStalled) Error() string {
	return fmt.Sprintf("stalled: loaded count stuck at %d after %d clicks", e.Loaded, e.Clicks)
}

// IsPartial reports whether err is one of the mid-loop conditions that end
// a scrape early but still yield identifiers.
func IsPartial(err error) bool {
	switch errorTypeLabel(err) {
	case "load_more_unavailable", "summary_unavailable", "loaded_count_invalid", "stalled", "canceled", "timeout":
		return true
	}
	return false
}

// ErrorType returns the metrics label for err.
func ErrorType(err error) string {
	return errorTypeLabel(err)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var total ErrTotalCountUnavailable
	if errors.As(err, &total) {
		return "total_count_unavailable"
	}
	var loadMore ErrLoadMoreUnavailable
	if errors.As(err, &loadMore) {
		return "load_more_unavailable"
	}
	var summary ErrSummaryUnavailable
	if errors.As(err, &summary) {
		return "summary_unavailable"
	}
	var invalid ErrLoadedCountInvalid
	if errors.As(err, &invalid) {
		return "loaded_count_invalid"
	}
	var stalled ErrStalled
	if errors.As(err, &stalled) {
		return "stalled"
	}
	if errors.Is(err, ErrBusy) {
		return "busy"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "other"
}
