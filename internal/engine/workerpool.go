package engine

import (
	"sync"
)

// firedJob is a unit of work submitted to the pool: the resolved job
// instance plus the execution context it should run with.
type firedJob struct {
	ctx *execContext
	run func(*execContext)
}

// WorkerPool bounds concurrent job execution: a fixed set of worker
// goroutines draining a buffered channel. Job bodies only ever run on pool
// workers, never on the scheduling loop. Workers drain the queue to empty
// before exiting, so a job accepted by Submit is always executed — its
// tracker entry clears and a waiting shutdown can observe the drain.
type WorkerPool struct {
	size      int
	taskQueue chan firedJob
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorkerPool builds a pool of size workers with a queue buffered to
// size*10.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:      size,
		taskQueue: make(chan firedJob, size*10),
	}
}

// Start spawns the pool's worker goroutines. A stopped pool cannot be
// restarted.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop closes the queue so workers exit once it is drained. With wait set
// it blocks until every accepted job has finished; without it the workers
// keep draining in the background and Stop returns immediately.
func (p *WorkerPool) Stop(wait bool) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.taskQueue)
	p.mu.Unlock()

	if wait {
		p.wg.Wait()
	}
}

// Submit enqueues a fired job. Returns false if the queue is full (the
// dispatcher treats this as a scheduler error) or the pool isn't running.
// The send happens under the pool lock so it can never race Stop's close.
func (p *WorkerPool) Submit(job firedJob) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return false
	}
	select {
	case p.taskQueue <- job:
		return true
	default:
		return false
	}
}

// AvailableSlots reports how many additional tasks could be queued right
// now without blocking — the loop's batch-size input.
func (p *WorkerPool) AvailableSlots() int {
	return cap(p.taskQueue) - len(p.taskQueue)
}

// WorkerCount returns the configured pool size.
func (p *WorkerPool) WorkerCount() int { return p.size }

// QueueSize returns the current queue depth.
func (p *WorkerPool) QueueSize() int { return len(p.taskQueue) }

// IsRunning reports whether Start has been called without a matching Stop.
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.taskQueue {
		job.run(job.ctx)
	}
}
