package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 30 * time.Second
)

// ProgressEvent is a snapshot of a job's counters pushed to stream clients.
type ProgressEvent struct {
	JobID     string    `json:"jobId"`
	State     JobState  `json:"state"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Failures  int       `json:"failures"`
	Batches   int       `json:"batches"`
	Timestamp time.Time `json:"timestamp"`
}

func snapshot(job Job) ProgressEvent {
	return ProgressEvent{
		JobID:     job.ID,
		State:     job.State,
		Completed: job.Completed,
		Total:     job.Total,
		Failures:  job.Failures,
		Batches:   job.Batches,
		Timestamp: time.Now(),
	}
}

// progressHub fans job snapshots out to stream clients. Publishing a
// terminal snapshot closes every client of that job.
type progressHub struct {
	mu      sync.Mutex
	clients map[string]map[chan ProgressEvent]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{clients: make(map[string]map[chan ProgressEvent]struct{})}
}

// watch attaches a client to jobID. The returned func detaches it and may
// be called more than once.
func (h *progressHub) watch(jobID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, streamBuffer)

	h.mu.Lock()
	subs := h.clients[jobID]
	if subs == nil {
		subs = make(map[chan ProgressEvent]struct{})
		h.clients[jobID] = subs
	}
	subs[ch] = struct{}{}
	n := len(subs)
	h.mu.Unlock()

	slog.Debug("Stream client attached", "job_id", jobID, "clients", n)

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		subs, ok := h.clients[jobID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.clients, jobID)
		}
	}
}

// publish sends the job's current counters to its clients. A client with a
// full buffer misses the snapshot; the next one carries newer counters.
func (h *progressHub) publish(job Job) {
	ev := snapshot(job)
	done := ev.State.Done()

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients[job.ID] {
		select {
		case ch <- ev:
		default:
			slog.Warn("Stream client lagging, snapshot dropped", "job_id", job.ID, "completed", ev.Completed)
		}
		if done {
			close(ch)
		}
	}
	if done {
		delete(h.clients, job.ID)
	}
}

// handleJobStream streams progress snapshots of a job as server-sent
// events until the job ends or the client goes away.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Attach before reading the job so no update between the two is lost
	events, detach := s.jobManager.progress.watch(jobID)
	defer detach()

	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send reports whether the stream should continue
	send := func(ev ProgressEvent) bool {
		if err := writeEvent(w, ev); err != nil {
			slog.Debug("Stream write failed", "job_id", jobID, "error", err)
			return false
		}
		flusher.Flush()
		return !ev.State.Done()
	}

	first := snapshot(job)
	if !send(first) {
		return
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("Stream client gone", "job_id", jobID)
			return

		case ev, open := <-events:
			if !open {
				// Closed on a terminal snapshot this client may have missed
				if job, ok := s.jobManager.GetJob(jobID); ok {
					send(snapshot(job))
				}
				return
			}
			if ev.Timestamp.Before(first.Timestamp) {
				continue
			}
			if !send(ev) {
				return
			}

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
