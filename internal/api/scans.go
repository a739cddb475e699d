package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/leadmaster/internal/model"
)

// ScanState is what GET /api/scans/:id returns
type ScanState struct {
	ID        string            `json:"id"`
	State     string            `json:"state"` // running, done, cancelled
	StartedAt time.Time         `json:"started_at"`
	Progress  model.Progress    `json:"progress"`
	Report    *model.ScanReport `json:"report,omitempty"`
}

type scanJob struct {
	state  ScanState
	cancel context.CancelFunc
	done   chan struct{}
}

// scanRegistry runs at most one broad scan at a time, since every scan
// shares the budget and the summary cooldown
type scanRegistry struct {
	ctx      context.Context
	pipeline Pipeline
	progress model.ProgressFunc

	mu     sync.Mutex
	jobs   map[string]*scanJob
	active string
}

func newScanRegistry(ctx context.Context, p Pipeline, progress model.ProgressFunc) *scanRegistry {
	return &scanRegistry{ctx: ctx, pipeline: p, progress: progress, jobs: make(map[string]*scanJob)}
}

// start launches a scan unless one is running; it returns the job id and
// whether a new scan was started
func (r *scanRegistry) start() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != "" {
		return r.active, false
	}

	ctx, cancel := context.WithCancel(r.ctx)
	job := &scanJob{
		state:  ScanState{ID: uuid.NewString(), State: "running", StartedAt: time.Now().UTC()},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.jobs[job.state.ID] = job
	r.active = job.state.ID

	go r.run(ctx, job)
	return job.state.ID, true
}

func (r *scanRegistry) run(ctx context.Context, job *scanJob) {
	defer close(job.done)
	defer job.cancel()

	report := r.pipeline.NationalScan(ctx, func(ev model.Progress) {
		r.mu.Lock()
		job.state.Progress = ev
		r.mu.Unlock()
		if r.progress != nil {
			r.progress(ev)
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	job.state.Report = report
	job.state.State = "done"
	if report != nil && report.Cancelled {
		job.state.State = "cancelled"
	}
	if r.active == job.state.ID {
		r.active = ""
	}
}

func (r *scanRegistry) get(id string) (ScanState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ScanState{}, false
	}
	return job.state, true
}

func (r *scanRegistry) cancel(id string) bool {
	r.mu.Lock()
	job, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	job.cancel()
	return true
}

// wait blocks until every scan started so far has returned
func (r *scanRegistry) wait() {
	r.mu.Lock()
	pending := make([]chan struct{}, 0, len(r.jobs))
	for _, job := range r.jobs {
		pending = append(pending, job.done)
	}
	r.mu.Unlock()
	for _, done := range pending {
		<-done
	}
}

func (s *Server) handleStartScan(c *gin.Context) {
	id, started := s.scans.start()
	if !started {
		c.JSON(http.StatusConflict, gin.H{"error": "a scan is already running", "id": id})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (s *Server) handleGetScan(c *gin.Context) {
	state, ok := s.scans.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleCancelScan(c *gin.Context) {
	if !s.scans.cancel(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": c.Param("id"), "state": "cancelling"})
}
