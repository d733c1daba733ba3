package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/mobench/internal/experiment"
	"github.com/cwbudde/mobench/internal/plan"
	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
)

// maxPlanSize limits the size of a posted plan
const maxPlanSize = 1 << 20

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	problems   *problem.Registry
	solvers    *solver.Registry
	dataDir    string
	addr       string
	server     *http.Server
}

// NewServer creates a new HTTP server. Each job writes its store under
// <dataDir>/jobs/<id>/.
func NewServer(addr, dataDir string, problems *problem.Registry, solvers *solver.Registry) *Server {
	return &Server{
		jobManager: NewJobManager(),
		problems:   problems,
		solvers:    solvers,
		dataDir:    dataDir,
		addr:       addr,
	}
}

// Handler returns the HTTP handler with all routes and middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	// Wrap with middleware
	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr, "data_dir", s.dataDir)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if running := s.jobManager.GetRunningJobs(); len(running) > 0 {
		slog.Warn("Shutting down with running jobs, unflushed results will be lost", "running", len(running))
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	// Route based on subpath
	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetJobStatus(w, r, jobID)
	} else if parts[1] == "summary" {
		s.handleGetJobSummary(w, r, jobID)
	} else if parts[1] == "results" {
		s.handleGetJobResults(w, r, jobID)
	} else if parts[1] == "stream" {
		s.handleJobStream(w, r, jobID)
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs with a YAML plan as body
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPlanSize))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read body: %v", err), http.StatusBadRequest)
		return
	}

	p, err := plan.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := p.Check(s.problems, s.solvers); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Create job, its store lives in the job directory
	job := s.jobManager.CreateJob(p, s.dataDir)

	// Start worker in background
	go runJob(context.Background(), s.jobManager, s.problems, s.solvers, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	rate := float64(0)
	if elapsed.Seconds() > 0 {
		rate = float64(job.Completed) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":                 job.ID,
		"state":              job.State,
		"plan":               job.Plan,
		"store":              job.Store,
		"total":              job.Total,
		"completed":          job.Completed,
		"failures":           job.Failures,
		"batches":            job.Batches,
		"collisions":         job.Collisions,
		"elapsed":            elapsed.Seconds(),
		"instancesPerSecond": rate,
		"startTime":          job.StartTime,
		"endTime":            job.EndTime,
		"error":              job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetJobSummary handles GET /api/v1/jobs/:id/summary
func (s *Server) handleGetJobSummary(w http.ResponseWriter, r *http.Request, jobID string) {
	results, ok := s.loadResults(w, jobID, experiment.Filter{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, experiment.Summarize(results))
}

// handleGetJobResults handles GET /api/v1/jobs/:id/results?solver=&problem=&delta=&success=
func (s *Server) handleGetJobResults(w http.ResponseWriter, r *http.Request, jobID string) {
	q := r.URL.Query()
	filter := experiment.Filter{
		Solver:      q.Get("solver"),
		Problem:     q.Get("problem"),
		SuccessOnly: q.Get("success") == "true",
	}
	if d := q.Get("delta"); d != "" {
		delta, err := strconv.ParseFloat(d, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid delta: %v", err), http.StatusBadRequest)
			return
		}
		filter.Delta = &delta
	}

	results, ok := s.loadResults(w, jobID, filter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// loadResults reads the flushed results of a job. A job that has not
// flushed yet has no results.
func (s *Server) loadResults(w http.ResponseWriter, jobID string, filter experiment.Filter) ([]*experiment.Result, bool) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}

	fs, err := store.NewFileStore(job.Store)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	results, err := experiment.LoadResults(fs, filter)
	if errors.Is(err, store.ErrNotFound) {
		return []*experiment.Result{}, true
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load results: %v", err), http.StatusInternalServerError)
		return nil, false
	}
	return results, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
