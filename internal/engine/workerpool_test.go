package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolRunsSubmittedJobs(t *testing.T) {
	p := NewWorkerPool(2)
	p.Start()
	defer p.Stop(true)

	var ran int32
	for i := 0; i < 5; i++ {
		ok := p.Submit(firedJob{run: func(*execContext) { atomic.AddInt32(&ran, 1) }})
		assert.True(t, ok)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&ran) < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
}

func TestWorkerPoolRejectsWhenStopped(t *testing.T) {
	p := NewWorkerPool(1)
	assert.False(t, p.Submit(firedJob{run: func(*execContext) {}}), "submit before Start is rejected")

	p.Start()
	p.Stop(true)
	assert.False(t, p.Submit(firedJob{run: func(*execContext) {}}), "submit after Stop is rejected")
}

// TestWorkerPoolStopWaitDrainsQueuedJobs: every job accepted before Stop
// runs, even ones still sitting in the queue when Stop is called.
func TestWorkerPoolStopWaitDrainsQueuedJobs(t *testing.T) {
	p := NewWorkerPool(1)
	p.Start()

	release := make(chan struct{})
	var ran int32
	ok := p.Submit(firedJob{run: func(*execContext) {
		<-release
		atomic.AddInt32(&ran, 1)
	}})
	assert.True(t, ok)
	for i := 0; i < 4; i++ {
		ok := p.Submit(firedJob{run: func(*execContext) { atomic.AddInt32(&ran, 1) }})
		assert.True(t, ok)
	}

	done := make(chan struct{})
	go func() {
		p.Stop(true)
		close(done)
	}()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop(true) did not return after the queue drained")
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran), "queued jobs must not be abandoned at shutdown")
}

// TestWorkerPoolStopWithoutWaitReturnsImmediately: Stop(false) must not
// block behind a running job.
func TestWorkerPoolStopWithoutWaitReturnsImmediately(t *testing.T) {
	p := NewWorkerPool(1)
	p.Start()

	release := make(chan struct{})
	ok := p.Submit(firedJob{run: func(*execContext) { <-release }})
	assert.True(t, ok)
	time.Sleep(20 * time.Millisecond) // let the worker pick it up

	start := time.Now()
	p.Stop(false)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	close(release)
}

func TestWorkerPoolAvailableSlots(t *testing.T) {
	p := NewWorkerPool(3)
	assert.Equal(t, 30, p.AvailableSlots())
	assert.Equal(t, 3, p.WorkerCount())
	assert.Equal(t, 0, p.QueueSize())
}
