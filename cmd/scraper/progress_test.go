package main

import (
	"bytes"
	"testing"

	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressBarTracksReports(t *testing.T) {
	var out bytes.Buffer
	bar := newProgressBar(&out)

	bar.update(models.Progress{Loaded: 50, Total: 120, Fraction: 50.0 / 120})
	bar.update(models.Progress{Loaded: 120, Total: 120, Fraction: 1})

	bar.mu.Lock()
	require.NotNil(t, bar.tracker)
	assert.Equal(t, int64(120), bar.tracker.Total)
	assert.Equal(t, int64(120), bar.tracker.Value())
	bar.mu.Unlock()

	bar.stop(&models.ScrapeResult{Status: models.StatusComplete})
	assert.True(t, bar.tracker.IsDone())
	assert.False(t, bar.tracker.IsErrored())
}

func TestProgressBarWithoutReports(t *testing.T) {
	bar := newProgressBar(&bytes.Buffer{})
	bar.stop(nil)
	assert.Nil(t, bar.tracker)
}

func TestProgressBarPartialMarksErrored(t *testing.T) {
	bar := newProgressBar(&bytes.Buffer{})
	bar.update(models.Progress{Loaded: 50, Total: 120})
	bar.stop(&models.ScrapeResult{Status: models.StatusPartial})
	assert.True(t, bar.tracker.IsErrored())
}
