package server

import (
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/aluiziolira/go-scrape-titles/scraper"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Job states.
const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Job tracks one scrape started from the web UI.
type Job struct {
	ID        string
	URL       string
	CreatedAt time.Time

	mu       sync.Mutex
	state    string
	progress models.Progress
	result   *models.ScrapeResult
	err      error
	subs     map[chan models.Progress]struct{}
	done     chan struct{}
}

func newJob(url string) *Job {
	return &Job{
		ID:        uuid.NewString(),
		URL:       url,
		CreatedAt: time.Now(),
		state:     StateRunning,
		subs:      make(map[chan models.Progress]struct{}),
		done:      make(chan struct{}),
	}
}

// Done is closed once the job has a result or an error.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) report(p models.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = p
	for ch := range j.subs {
		// slow subscribers skip intermediate values; the snapshot they
		// read on done carries the final state
		select {
		case ch <- p:
		default:
		}
	}
}

func (j *Job) finish(result *models.ScrapeResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result, j.err = result, err
	if err != nil {
		j.state = StateFailed
	} else {
		j.state = StateDone
		if result.Status == models.StatusComplete {
			j.progress = models.Progress{Loaded: result.Loaded, Total: result.Total, Fraction: 1}
		}
	}
	close(j.done)
}

// subscribe registers for progress updates until cancel is called.
func (j *Job) subscribe() (<-chan models.Progress, func()) {
	ch := make(chan models.Progress, 16)
	j.mu.Lock()
	j.subs[ch] = struct{}{}
	j.mu.Unlock()
	return ch, func() {
		j.mu.Lock()
		delete(j.subs, ch)
		j.mu.Unlock()
	}
}

// JobView is the JSON representation of a job.
type JobView struct {
	ID          string          `json:"id"`
	URL         string          `json:"url"`
	State       string          `json:"state"`
	Progress    models.Progress `json:"progress"`
	Status      models.Status   `json:"status,omitempty"`
	Identifiers int             `json:"identifiers"`
	StopReason  string          `json:"stop_reason,omitempty"`
	Error       string          `json:"error,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
}

func (j *Job) view() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()

	v := JobView{
		ID:       j.ID,
		URL:      j.URL,
		State:    j.state,
		Progress: j.progress,
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	if j.result != nil {
		v.Status = j.result.Status
		v.Identifiers = len(j.result.Identifiers)
		if j.result.StopReason != nil {
			v.StopReason = scraper.ErrorType(j.result.StopReason)
		}
		if v.Identifiers > 0 {
			v.DownloadURL = "/scrapes/" + j.ID + "/csv"
		}
	}
	return v
}

func (j *Job) snapshot() (string, *models.ScrapeResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.result, j.err
}

// jobStore keeps the most recent jobs in memory only.
type jobStore struct {
	cache *lru.Cache[string, *Job]
}

func newJobStore(size int) (*jobStore, error) {
	cache, err := lru.New[string, *Job](size)
	if err != nil {
		return nil, err
	}
	return &jobStore{cache: cache}, nil
}

func (s *jobStore) add(j *Job) {
	s.cache.Add(j.ID, j)
}

func (s *jobStore) get(id string) (*Job, bool) {
	return s.cache.Get(id)
}
