package main

import (
	"io"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/jedib0t/go-pretty/v6/progress"
)

// progressBar renders driver progress reports as a single tracker. The
// tracker is created on the first report because the total is unknown
// until the listing has loaded.
type progressBar struct {
	pw      progress.Writer
	mu      sync.Mutex
	tracker *progress.Tracker
}

func newProgressBar(out io.Writer) *progressBar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(40)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = true
	go pw.Render()
	for !pw.IsRenderInProgress() {
		time.Sleep(time.Millisecond)
	}
	return &progressBar{pw: pw}
}

func (b *progressBar) update(p models.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tracker == nil {
		b.tracker = &progress.Tracker{
			Message: "Loading titles",
			Total:   int64(p.Total),
			Units:   progress.UnitsDefault,
		}
		b.pw.AppendTracker(b.tracker)
	}
	b.tracker.SetValue(int64(p.Loaded))
}

// stop finalizes the tracker and waits for the last frame to render.
func (b *progressBar) stop(result *models.ScrapeResult) {
	b.mu.Lock()
	if b.tracker != nil {
		if result != nil && result.Status == models.StatusComplete {
			b.tracker.MarkAsDone()
		} else {
			b.tracker.MarkAsErrored()
		}
	}
	b.mu.Unlock()

	b.pw.Stop()
	for b.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
