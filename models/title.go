// Package models defines data structures for the scraper.
package models

import "time"

// Status describes how a scrape ended.
type Status string

const (
	// StatusComplete means the loaded count reached the reported total.
	StatusComplete Status = "complete"
	// StatusPartial means the loop stopped early; identifiers already
	// rendered were still extracted.
	StatusPartial Status = "partial"
	// StatusEmpty means the page reported zero results.
	StatusEmpty Status = "empty"
)

// Progress is one observation of the pagination loop.
type Progress struct {
	Loaded   int     `json:"loaded"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}

// Title is a single exported row.
type Title struct {
	Code string `json:"imdb_code"`
}

// ScrapeResult holds the overall result of a scraping operation.
type ScrapeResult struct {
	URL         string    `json:"url"`
	Identifiers []string  `json:"identifiers"`
	Status      Status    `json:"status"`
	StopReason  error     `json:"-"`
	Total       int       `json:"total"`
	Loaded      int       `json:"loaded"`
	Clicks      int       `json:"clicks"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Titles converts the identifiers into exportable rows.
func (r *ScrapeResult) Titles() []*Title {
	if r == nil {
		return nil
	}
	out := make([]*Title, 0, len(r.Identifiers))
	for _, id := range r.Identifiers {
		out = append(out, &Title{Code: id})
	}
	return out
}

// Duration reports how long the scrape ran.
func (r *ScrapeResult) Duration() time.Duration {
	if r == nil || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
