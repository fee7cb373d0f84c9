// Package pipeline validates, de-duplicates and exports scraped identifiers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/aluiziolira/go-scrape-titles/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrPipelineClosed is returned when Process is called after Close.
var ErrPipelineClosed = errors.New("pipeline: closed")

// Reasons a title is dropped before reaching the writer.
const (
	RejectInvalid   = "invalid_identifier"
	RejectDuplicate = "duplicate_identifier"
)

// OutputWriter receives accepted titles in batches.
type OutputWriter interface {
	Write(titles []*models.Title) error
	Close() error
	Validate() error
}

// Stats counts what the pipeline wrote and what it dropped.
type Stats struct {
	Written  int64
	Rejected map[string]int
}

// Pipeline batches titles from Process into an OutputWriter.
type Pipeline struct {
	ctx       context.Context
	sink      OutputWriter
	valid     func(string) bool
	queue     chan *models.Title
	batchSize int
	workers   sync.WaitGroup

	// bounded so very long listings cannot grow memory without limit
	seen *lru.Cache[string, struct{}]

	// held for reading while sending so Close never races a send
	sendMu sync.RWMutex
	closed bool

	mu    sync.Mutex
	err   error
	stats Stats

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, sink OutputWriter, cfg *config.Config) (*Pipeline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sink == nil {
		return nil, errors.New("pipeline: writer is nil")
	}
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("dedupe cache: %w", err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		ctx:       ctx,
		sink:      sink,
		valid:     parser.NewExtractor(cfg.PathMarker, cfg.PathSegment).IsIdentifier,
		queue:     make(chan *models.Title, cfg.PipelineBufferSize),
		batchSize: batchSize,
		seen:      seen,
		stats:     Stats{Rejected: make(map[string]int)},
		stopped:   make(chan struct{}),
	}, nil
}

// Start launches the workers draining the queue.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.closed {
		return
	}
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
}

// Process queues titles, blocking while the queue is full. It stops at the
// first write error reported by a worker.
func (p *Pipeline) Process(titles []*models.Title) error {
	for _, title := range titles {
		if title == nil {
			continue
		}
		if err := p.send(title); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) send(title *models.Title) error {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}

	select {
	case p.queue <- title:
		return nil
	case <-p.stopped:
		if err := p.Err(); err != nil {
			return err
		}
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Close drains the queue, waits for the workers and returns the first write
// error. The writer itself is left open for the caller.
func (p *Pipeline) Close() error {
	p.sendMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.sendMu.Unlock()

	p.workers.Wait()
	p.stop()
	return p.Err()
}

// Err returns the first write error.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns a copy of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	rejected := make(map[string]int, len(p.stats.Rejected))
	for k, v := range p.stats.Rejected {
		rejected[k] = v
	}
	return Stats{Written: p.stats.Written, Rejected: rejected}
}

// LogStats logs the counters at debug level every interval until Close.
func (p *Pipeline) LogStats(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := p.Stats()
				slog.Debug("pipeline progress",
					slog.Int64("written", stats.Written),
					slog.Any("rejected", stats.Rejected),
				)
			case <-p.stopped:
				return
			}
		}
	}()
}

func (p *Pipeline) work() {
	defer p.workers.Done()

	batch := make([]*models.Title, 0, p.batchSize)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if err := p.sink.Write(batch); err != nil {
			p.fail(fmt.Errorf("write batch: %w", err))
			return false
		}
		p.mu.Lock()
		p.stats.Written += int64(len(batch))
		p.mu.Unlock()
		batch = batch[:0]
		return true
	}

	for title := range p.queue {
		if !p.admit(title) {
			continue
		}
		batch = append(batch, title)
		if len(batch) >= p.batchSize && !flush() {
			// keep draining so senders are never stuck on a full queue
			for range p.queue {
			}
			return
		}
	}
	flush()
}

// admit reports whether title is a well-formed identifier not seen before.
func (p *Pipeline) admit(title *models.Title) bool {
	reason := ""
	switch {
	case !p.valid(title.Code):
		reason = RejectInvalid
	default:
		if found, _ := p.seen.ContainsOrAdd(title.Code, struct{}{}); found {
			reason = RejectDuplicate
		}
	}
	if reason == "" {
		return true
	}
	p.mu.Lock()
	p.stats.Rejected[reason]++
	p.mu.Unlock()
	return false
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.stop()
}

func (p *Pipeline) stop() {
	p.stopOnce.Do(func() {
		close(p.stopped)
	})
}
