package engine

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/minisource/jobengine/internal/models"
)

// executionTracker is the live set of currently executing jobs plus the
// lifetime fired counter. It is registered as the reserved internal
// JobListener at construction.
type executionTracker struct {
	mu           sync.RWMutex
	executing    map[uuid.UUID]*execContext
	numJobsFired int64
}

func newExecutionTracker() *executionTracker {
	return &executionTracker{executing: make(map[uuid.UUID]*execContext)}
}

func (t *executionTracker) Name() string { return "ExecutionTracker" }

// JobToBeExecuted increments the fired counter; the context itself is
// inserted by track.
func (t *executionTracker) JobToBeExecuted(jec *models.JobExecutionContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	atomic.AddInt64(&t.numJobsFired, 1)
}

// track inserts the engine-internal execContext; called by the dispatcher
// directly since execContext isn't visible to the JobListener interface.
func (t *executionTracker) track(ec *execContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.executing[ec.jec.FireInstanceID] = ec
}

func (t *executionTracker) untrack(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.executing, id)
}

func (t *executionTracker) JobExecutionVetoed(jec *models.JobExecutionContext) {}

// JobWasExecuted removes the context from the live set.
func (t *executionTracker) JobWasExecuted(jec *models.JobExecutionContext, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.executing, jec.FireInstanceID)
}

// Count returns the number of currently executing jobs.
func (t *executionTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.executing)
}

// NumJobsFired returns the lifetime fired counter.
func (t *executionTracker) NumJobsFired() int64 {
	return atomic.LoadInt64(&t.numJobsFired)
}

// snapshot returns a stable copy of currently executing contexts for
// Interrupt to scan without holding the lock across job.Interrupt() calls.
func (t *executionTracker) snapshot() []*execContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*execContext, 0, len(t.executing))
	for _, ec := range t.executing {
		out = append(out, ec)
	}
	return out
}

// Interrupt scans the live set for name/group matches and invokes
// Interrupt() on each that declares itself interruptible. Returns whether
// at least one was interrupted; fails ErrJobNotInterruptible when a match
// existed but none supported interruption.
func (t *executionTracker) Interrupt(name, group string) (bool, error) {
	matchedAny := false
	interruptedAny := false
	for _, ec := range t.snapshot() {
		if ec.jec.JobDetail == nil || ec.jec.JobDetail.Name != name || ec.jec.JobDetail.Group != group {
			continue
		}
		matchedAny = true
		if interruptible, ok := ec.job.(Interruptible); ok {
			if err := interruptible.Interrupt(); err == nil {
				interruptedAny = true
			}
		}
	}
	if matchedAny && !interruptedAny {
		return false, newErr("Interrupt", ErrJobNotInterruptible, nil)
	}
	return interruptedAny, nil
}
