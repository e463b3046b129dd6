package engine

import (
	"sync"

	"github.com/minisource/jobengine/internal/logging"
	"github.com/minisource/jobengine/internal/models"
)

// JobListener observes a job execution's lifecycle.
type JobListener interface {
	Name() string
	JobToBeExecuted(ctx *models.JobExecutionContext)
	JobExecutionVetoed(ctx *models.JobExecutionContext)
	JobWasExecuted(ctx *models.JobExecutionContext, err error)
}

// TriggerListener observes trigger firing and can veto execution.
type TriggerListener interface {
	Name() string
	TriggerFired(ctx *models.JobExecutionContext) (veto bool)
	TriggerComplete(ctx *models.JobExecutionContext, instructionCode models.InstructionCode)
}

// SchedulerListener observes scheduler-wide lifecycle events.
type SchedulerListener interface {
	JobAdded(job *models.JobDetail)
	JobScheduled(trigger models.TriggerSnapshot)
	JobUnscheduled(key models.TriggerKey)
	SchedulerStarted()
	SchedulerInStandbyMode()
	SchedulerShuttingDown()
	SchedulerShutdown()
	SchedulerError(msg string, err error)
}

// BaseSchedulerListener gives callers a no-op SchedulerListener to embed
// and override only the events they care about.
type BaseSchedulerListener struct{}

func (BaseSchedulerListener) JobAdded(*models.JobDetail)          {}
func (BaseSchedulerListener) JobScheduled(models.TriggerSnapshot) {}
func (BaseSchedulerListener) JobUnscheduled(models.TriggerKey)    {}
func (BaseSchedulerListener) SchedulerStarted()                   {}
func (BaseSchedulerListener) SchedulerInStandbyMode()             {}
func (BaseSchedulerListener) SchedulerShuttingDown()              {}
func (BaseSchedulerListener) SchedulerShutdown()                  {}
func (BaseSchedulerListener) SchedulerError(string, error)        {}

// namedJobListeners is an ordered registration list plus a name index, so
// add and lookup by name are O(1) (remove re-indexes the later entries)
// while iteration order still matches registration order.
type namedJobListeners struct {
	order  []JobListener
	byName map[string]int
}

func newNamedJobListeners() *namedJobListeners {
	return &namedJobListeners{byName: make(map[string]int)}
}

func (n *namedJobListeners) add(l JobListener) {
	if idx, ok := n.byName[l.Name()]; ok {
		n.order[idx] = l
		return
	}
	n.byName[l.Name()] = len(n.order)
	n.order = append(n.order, l)
}

func (n *namedJobListeners) remove(name string) bool {
	idx, ok := n.byName[name]
	if !ok {
		return false
	}
	n.order = append(n.order[:idx], n.order[idx+1:]...)
	delete(n.byName, name)
	for k, v := range n.byName {
		if v > idx {
			n.byName[k] = v - 1
		}
	}
	return true
}

func (n *namedJobListeners) snapshot() []JobListener {
	out := make([]JobListener, len(n.order))
	copy(out, n.order)
	return out
}

// namedTriggerListeners mirrors namedJobListeners for TriggerListener.
type namedTriggerListeners struct {
	order  []TriggerListener
	byName map[string]int
}

func newNamedTriggerListeners() *namedTriggerListeners {
	return &namedTriggerListeners{byName: make(map[string]int)}
}

func (n *namedTriggerListeners) add(l TriggerListener) {
	if idx, ok := n.byName[l.Name()]; ok {
		n.order[idx] = l
		return
	}
	n.byName[l.Name()] = len(n.order)
	n.order = append(n.order, l)
}

func (n *namedTriggerListeners) remove(name string) bool {
	idx, ok := n.byName[name]
	if !ok {
		return false
	}
	n.order = append(n.order[:idx], n.order[idx+1:]...)
	delete(n.byName, name)
	for k, v := range n.byName {
		if v > idx {
			n.byName[k] = v - 1
		}
	}
	return true
}

func (n *namedTriggerListeners) snapshot() []TriggerListener {
	out := make([]TriggerListener, len(n.order))
	copy(out, n.order)
	return out
}

// listenerRegistry holds the three listener categories, each split into
// global and internal sublists. Registrations/removals and snapshot reads
// all take the list's own lock so iteration runs over a stable copy; no
// lock is held while a listener callback runs.
type listenerRegistry struct {
	jobMu       sync.RWMutex
	globalJob   *namedJobListeners
	internalJob *namedJobListeners

	triggerMu       sync.RWMutex
	globalTrigger   *namedTriggerListeners
	internalTrigger *namedTriggerListeners

	schedulerMu       sync.RWMutex
	globalScheduler   []SchedulerListener
	internalScheduler []SchedulerListener
}

func newListenerRegistry(log *logging.Logger) *listenerRegistry {
	r := &listenerRegistry{
		globalJob:       newNamedJobListeners(),
		internalJob:     newNamedJobListeners(),
		globalTrigger:   newNamedTriggerListeners(),
		internalTrigger: newNamedTriggerListeners(),
	}
	// Reserved internal listeners: ExecutionTracker is wired in by the
	// facade once it constructs the tracker; ErrorLogger is wired here
	// since it only needs the logger.
	r.internalScheduler = append(r.internalScheduler, newErrorLogger(log))
	return r
}

func (r *listenerRegistry) addJobListener(l JobListener, internal bool) error {
	if l.Name() == "" {
		return newErr("AddJobListener", ErrInvalidArgument, nil)
	}
	r.jobMu.Lock()
	defer r.jobMu.Unlock()
	list := r.globalJob
	if internal {
		list = r.internalJob
	}
	list.add(l)
	return nil
}

func (r *listenerRegistry) removeJobListener(name string) bool {
	r.jobMu.Lock()
	defer r.jobMu.Unlock()
	return r.globalJob.remove(name)
}

func (r *listenerRegistry) addTriggerListener(l TriggerListener, internal bool) error {
	if l.Name() == "" {
		return newErr("AddTriggerListener", ErrInvalidArgument, nil)
	}
	r.triggerMu.Lock()
	defer r.triggerMu.Unlock()
	list := r.globalTrigger
	if internal {
		list = r.internalTrigger
	}
	list.add(l)
	return nil
}

func (r *listenerRegistry) removeTriggerListener(name string) bool {
	r.triggerMu.Lock()
	defer r.triggerMu.Unlock()
	return r.globalTrigger.remove(name)
}

func (r *listenerRegistry) addSchedulerListener(l SchedulerListener) {
	r.schedulerMu.Lock()
	defer r.schedulerMu.Unlock()
	r.globalScheduler = append(r.globalScheduler, l)
}

// jobListenerSnapshot returns global listeners then internal listeners, in
// registration order within each — the dispatcher's invocation order.
func (r *listenerRegistry) jobListenerSnapshot() []JobListener {
	r.jobMu.RLock()
	defer r.jobMu.RUnlock()
	out := make([]JobListener, 0, len(r.globalJob.order)+len(r.internalJob.order))
	out = append(out, r.globalJob.snapshot()...)
	out = append(out, r.internalJob.snapshot()...)
	return out
}

func (r *listenerRegistry) triggerListenerSnapshot() []TriggerListener {
	r.triggerMu.RLock()
	defer r.triggerMu.RUnlock()
	out := make([]TriggerListener, 0, len(r.globalTrigger.order)+len(r.internalTrigger.order))
	out = append(out, r.globalTrigger.snapshot()...)
	out = append(out, r.internalTrigger.snapshot()...)
	return out
}

func (r *listenerRegistry) schedulerListenerSnapshot() []SchedulerListener {
	r.schedulerMu.RLock()
	defer r.schedulerMu.RUnlock()
	out := make([]SchedulerListener, 0, len(r.globalScheduler)+len(r.internalScheduler))
	out = append(out, r.globalScheduler...)
	out = append(out, r.internalScheduler...)
	return out
}

func (r *listenerRegistry) notifyJobAdded(job *models.JobDetail) {
	for _, l := range r.schedulerListenerSnapshot() {
		l.JobAdded(job)
	}
}

func (r *listenerRegistry) notifyJobScheduled(t models.TriggerSnapshot) {
	for _, l := range r.schedulerListenerSnapshot() {
		l.JobScheduled(t)
	}
}

func (r *listenerRegistry) notifyJobUnscheduled(k models.TriggerKey) {
	for _, l := range r.schedulerListenerSnapshot() {
		l.JobUnscheduled(k)
	}
}

func (r *listenerRegistry) notifySchedulerStarted() {
	for _, l := range r.schedulerListenerSnapshot() {
		l.SchedulerStarted()
	}
}

func (r *listenerRegistry) notifyStandby() {
	for _, l := range r.schedulerListenerSnapshot() {
		l.SchedulerInStandbyMode()
	}
}

func (r *listenerRegistry) notifyShuttingDown() {
	for _, l := range r.schedulerListenerSnapshot() {
		l.SchedulerShuttingDown()
	}
}

func (r *listenerRegistry) notifyShutdown() {
	for _, l := range r.schedulerListenerSnapshot() {
		l.SchedulerShutdown()
	}
}

func (r *listenerRegistry) notifySchedulerError(msg string, err error) {
	for _, l := range r.schedulerListenerSnapshot() {
		l.SchedulerError(msg, err)
	}
}

// errorLogger is the reserved internal SchedulerListener that writes
// SchedulerError events to the structured logger.
type errorLogger struct {
	BaseSchedulerListener
	log *logging.Logger
}

func newErrorLogger(log *logging.Logger) *errorLogger {
	return &errorLogger{log: log}
}

func (e *errorLogger) SchedulerError(msg string, err error) {
	if e.log == nil {
		return
	}
	e.log.Error().Err(err).Msg(msg)
}
