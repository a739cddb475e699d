package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job
type Result interface {
	GetError() error
}

// Pool is a bounded worker pool. Cancelling the parent context stops
// dispatch: queued jobs are dropped, while jobs already running finish
// with a context that is detached from cancellation so a half-finished
// fetch is never thrown away.
type Pool struct {
	workers   int
	jobQueue  chan Job
	collector *ResultCollector
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a pool bound to parent
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:   workers,
		jobQueue:  make(chan Job, workers*2),
		collector: NewResultCollector(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			// select picks at random when both cases are ready
			if p.ctx.Err() != nil {
				return
			}
			p.collector.Add(job.Execute(context.WithoutCancel(p.ctx)))
		}
	}
}

// Submit queues a job. It returns false once the pool is cancelled or
// closed; the job is then never run.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns every
// collected result in completion order.
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.cancel()
	return p.collector.Results()
}

// Shutdown stops dispatch and waits for running jobs to finish
func (p *Pool) Shutdown() {
	p.cancel()
	p.close()
	p.wg.Wait()
}

func (p *Pool) close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobQueue)
		p.mu.Unlock()
	})
}

// ResultCollector collects results safely from many goroutines
type ResultCollector struct {
	mu      sync.Mutex
	results []Result
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result
func (rc *ResultCollector) Add(result Result) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.results = append(rc.results, result)
}

// Results returns a copy of all results
func (rc *ResultCollector) Results() []Result {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := make([]Result, len(rc.results))
	copy(out, rc.results)
	return out
}
