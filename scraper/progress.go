package scraper

import "github.com/aluiziolira/go-scrape-titles/models"

// ProgressFunc receives every progress observation, in order.
type ProgressFunc func(models.Progress)

// Fraction returns loaded/total clamped to [0,1]. A zero total means there
// is nothing left to load, so it reports 1.
func Fraction(loaded, total int) float64 {
	if total <= 0 {
		return 1
	}
	if loaded <= 0 {
		return 0
	}
	if loaded >= total {
		return 1
	}
	return float64(loaded) / float64(total)
}

// progressTracker emits a non-decreasing sequence of observations.
type progressTracker struct {
	total   int
	last    int
	notify  ProgressFunc
	metrics *Metrics
}

func newProgressTracker(total int, notify ProgressFunc, metrics *Metrics) *progressTracker {
	metrics.SetProgress(0)
	return &progressTracker{total: total, notify: notify, metrics: metrics}
}

func (t *progressTracker) observe(loaded int) models.Progress {
	if loaded < t.last {
		loaded = t.last
	}
	t.last = loaded

	p := models.Progress{
		Loaded:   loaded,
		Total:    t.total,
		Fraction: Fraction(loaded, t.total),
	}
	t.metrics.SetProgress(p.Fraction)
	if t.notify != nil {
		t.notify(p)
	}
	return p
}
