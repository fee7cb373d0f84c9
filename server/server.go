// Package server is the web front end: a URL form, a live progress bar and
// the CSV download of the scraped identifiers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-titles/config"
	"github.com/aluiziolira/go-scrape-titles/models"
	"github.com/aluiziolira/go-scrape-titles/pipeline"
	"github.com/aluiziolira/go-scrape-titles/scraper"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DownloadFilename is the name offered for CSV downloads.
const DownloadFilename = "scraped_data.csv"

// Scraper runs one scrape to completion.
type Scraper interface {
	Scrape(ctx context.Context, url string, onProgress scraper.ProgressFunc) (*models.ScrapeResult, error)
}

// Server serves the UI and the scrape API.
type Server struct {
	cfg      *config.Config
	scraper  Scraper
	gatherer prometheus.Gatherer
	jobs     *jobStore
	router   *mux.Router

	// scrapes outlive the request that started them
	baseCtx context.Context
	running atomic.Bool
}

// New wires the routes. Scrapes run under ctx and stop when it is canceled.
func New(ctx context.Context, cfg *config.Config, s Scraper, gatherer prometheus.Gatherer) (*Server, error) {
	jobs, err := newJobStore(cfg.MaxJobs)
	if err != nil {
		return nil, fmt.Errorf("job store: %w", err)
	}
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	srv := &Server{
		cfg:      cfg,
		scraper:  s,
		gatherer: gatherer,
		jobs:     jobs,
		router:   mux.NewRouter(),
		baseCtx:  ctx,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) routes() {
	s.router.Use(logRequests)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/scrapes", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/scrapes/{id}", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/scrapes/{id}/events", s.handleEvents).Methods(http.MethodGet)
	s.router.HandleFunc("/scrapes/{id}/csv", s.handleCSV).Methods(http.MethodGet)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns an http.Server listening on cfg.ListenAddr.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

type startRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	target, err := readTargetURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := config.ValidateTargetURL(target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, scraper.ErrBusy.Error())
		return
	}

	job := newJob(target)
	s.jobs.add(job)
	go s.run(job)

	slog.Info("scrape started", slog.String("job", job.ID), slog.String("url", target))
	w.Header().Set("Location", "/scrapes/"+job.ID)
	writeJSON(w, http.StatusAccepted, job.view())
}

func (s *Server) run(job *Job) {
	defer s.running.Store(false)
	result, err := s.scraper.Scrape(s.baseCtx, job.URL, job.report)
	job.finish(result, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job.view())
}

// handleEvents streams progress as server-sent events and finishes with a
// "done" event carrying the job snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	rc := http.NewResponseController(w)

	updates, cancel := job.subscribe()
	defer cancel()

	send := func(event string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send("progress", job.view().Progress) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case p := <-updates:
			if !send("progress", p) {
				return
			}
		case <-job.Done():
			send("done", job.view())
			return
		}
	}
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}

	state, result, err := job.snapshot()
	switch {
	case state == StateRunning:
		writeError(w, http.StatusConflict, "scrape still running")
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case result == nil || len(result.Identifiers) == 0:
		writeError(w, http.StatusUnprocessableEntity, "No data scraped.")
		return
	}

	data, err := pipeline.EncodeCSV(result.Identifiers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": DownloadFilename}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Job, bool) {
	id := mux.Vars(r)["id"]
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scrape "+id)
		return nil, false
	}
	return job, true
}

func readTargetURL(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("decode request: %w", err)
		}
		return strings.TrimSpace(req.URL), nil
	}
	return strings.TrimSpace(r.FormValue("url")), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
