package engine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minisource/jobengine/config"
	"github.com/minisource/jobengine/internal/logging"
	"github.com/minisource/jobengine/internal/models"
	"github.com/minisource/jobengine/internal/store"
	"github.com/minisource/jobengine/internal/trigger"
)

// maxManualTriggerIDAttempts bounds the collision-retry loop for
// TriggerJob's generated ids, so a pathological RNG can't spin forever.
const maxManualTriggerIDAttempts = 100

// schedulerState is the facade's lifecycle state machine.
type schedulerState int

const (
	stateCreated schedulerState = iota
	stateStarted
	stateStandby
	stateShuttingDown
	stateShutdown
)

// SchedulerFacade is the public API: schedule/unschedule/pause/resume/
// trigger-now plus lifecycle. It is re-entrant from any goroutine. The
// scheduling, unscheduling, pause/resume and trigger-now operations
// validate lifecycle state first and fail once shutdown has begun; the
// query, calendar, listener and Interrupt operations do not check it.
type SchedulerFacade struct {
	name string
	cfg  config.SchedulerConfig
	log  *logging.Logger

	store   store.JobStore
	factory JobFactory

	listeners *listenerRegistry
	tracker   *executionTracker
	pool      *WorkerPool
	signaler  *signaler
	loop      *schedulingLoop
	holder    *objectHolder

	mu           sync.Mutex
	state        schedulerState
	initialStart bool
	loopCtx      context.Context
	loopCancel   context.CancelFunc
}

// Options configures a new SchedulerFacade.
type Options struct {
	Name    string
	Config  config.SchedulerConfig
	Store   store.JobStore
	Factory JobFactory
	Log     *logging.Logger
}

// New builds a SchedulerFacade in the CREATED state. It does not register
// with the Repository or start the loop; call Start for that.
func New(opts Options) *SchedulerFacade {
	if opts.Log == nil {
		l := logging.Default()
		opts.Log = &l
	}
	listeners := newListenerRegistry(opts.Log)
	tracker := newExecutionTracker()
	_ = listeners.addJobListener(tracker, true)

	pool := NewWorkerPool(opts.Config.WorkerPoolSize)
	sig := newSignaler()
	sig.setEnabled(opts.Config.SignalOnSchedulingChange)

	disp := newDispatcher(opts.Store, opts.Factory, listeners, tracker, pool, opts.Log)
	loop := newSchedulingLoop(opts.Config, opts.Store, pool, sig, disp, opts.Log)

	return &SchedulerFacade{
		name:      opts.Name,
		cfg:       opts.Config,
		log:       opts.Log,
		store:     opts.Store,
		factory:   opts.Factory,
		listeners: listeners,
		tracker:   tracker,
		pool:      pool,
		signaler:  sig,
		loop:      loop,
		holder:    newObjectHolder(),
		state:     stateCreated,
	}
}

func canonicalGroup(group string) string {
	if group == "" {
		return models.DefaultGroup
	}
	return group
}

func (s *SchedulerFacade) validateState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateShuttingDown || s.state == stateShutdown {
		return newErr("validateState", ErrSchedulerShutdown, nil)
	}
	return nil
}

// AddJobListener registers a global job listener.
func (s *SchedulerFacade) AddJobListener(l JobListener) error {
	return s.listeners.addJobListener(l, false)
}

// AddTriggerListener registers a trigger listener.
func (s *SchedulerFacade) AddTriggerListener(l TriggerListener) error {
	return s.listeners.addTriggerListener(l, false)
}

// RemoveJobListener removes the named global job listener.
func (s *SchedulerFacade) RemoveJobListener(name string) bool {
	return s.listeners.removeJobListener(name)
}

// RemoveTriggerListener removes the named global trigger listener.
func (s *SchedulerFacade) RemoveTriggerListener(name string) bool {
	return s.listeners.removeTriggerListener(name)
}

// AddSchedulerListener registers a scheduler listener.
func (s *SchedulerFacade) AddSchedulerListener(l SchedulerListener) {
	s.listeners.addSchedulerListener(l)
}

// HoldReference keeps obj reachable for the scheduler's lifetime, for
// callers that need the scheduler to extend an object's lifetime.
func (s *SchedulerFacade) HoldReference(obj any) { s.holder.Hold(obj) }

// ReleaseReference removes the first matching held reference.
func (s *SchedulerFacade) ReleaseReference(obj any) bool { return s.holder.Release(obj) }

// ScheduleJob validates job+trigger, computes the first fire time, stores
// them atomically, and signals the loop.
func (s *SchedulerFacade) ScheduleJob(ctx context.Context, job *models.JobDetail, trig store.Trigger) (time.Time, error) {
	if err := s.validateState(); err != nil {
		return time.Time{}, err
	}
	if job == nil || trig == nil {
		return time.Time{}, newErr("ScheduleJob", ErrInvalidArgument, nil)
	}
	job.Group = canonicalGroup(job.Group)

	existing, err := s.store.RetrieveJob(ctx, trig.JobKey())
	if err != nil && !isNotFoundErr(err) {
		return time.Time{}, newErr("ScheduleJob", ErrStoreTransient, err)
	}
	if existing != nil && (existing.Name != job.Name || existing.Group != job.Group) {
		return time.Time{}, newErr("ScheduleJob", ErrInvalidTriggerBinding, nil)
	}

	var cal store.Calendar
	if trig.CalendarName() != "" {
		cal, err = s.store.RetrieveCalendar(ctx, trig.CalendarName())
		if err != nil {
			return time.Time{}, newErr("ScheduleJob", ErrCalendarNotFound, err)
		}
	}

	first := trig.ComputeFirstFireTime(cal)
	if first == nil {
		return time.Time{}, newErr("ScheduleJob", ErrNeverFires, nil)
	}

	if err := s.store.StoreJobAndTrigger(ctx, job, trig); err != nil {
		return time.Time{}, newErr("ScheduleJob", ErrStoreTransient, err)
	}

	s.listeners.notifyJobAdded(job)
	s.listeners.notifyJobScheduled(trig.Snapshot(models.TriggerStateNormal))
	s.signaler.signalSchedulingChange(*first)
	return *first, nil
}

// ScheduleTrigger schedules trig against a job already present in the
// store.
func (s *SchedulerFacade) ScheduleTrigger(ctx context.Context, trig store.Trigger) (time.Time, error) {
	if err := s.validateState(); err != nil {
		return time.Time{}, err
	}
	if trig == nil {
		return time.Time{}, newErr("ScheduleTrigger", ErrInvalidArgument, nil)
	}

	job, err := s.store.RetrieveJob(ctx, trig.JobKey())
	if err != nil && !isNotFoundErr(err) {
		return time.Time{}, newErr("ScheduleTrigger", ErrStoreTransient, err)
	}
	if job == nil {
		return time.Time{}, newErr("ScheduleTrigger", ErrInvalidTriggerBinding, nil)
	}

	var cal store.Calendar
	if trig.CalendarName() != "" {
		cal, err = s.store.RetrieveCalendar(ctx, trig.CalendarName())
		if err != nil {
			return time.Time{}, newErr("ScheduleTrigger", ErrCalendarNotFound, err)
		}
	}
	first := trig.ComputeFirstFireTime(cal)
	if first == nil {
		return time.Time{}, newErr("ScheduleTrigger", ErrNeverFires, nil)
	}

	if err := s.store.StoreTrigger(ctx, trig, false); err != nil {
		if isAlreadyExistsErr(err) {
			return time.Time{}, newErr("ScheduleTrigger", ErrObjectAlreadyExists, err)
		}
		return time.Time{}, newErr("ScheduleTrigger", ErrStoreTransient, err)
	}
	s.listeners.notifyJobScheduled(trig.Snapshot(models.TriggerStateNormal))
	s.signaler.signalSchedulingChange(*first)
	return *first, nil
}

// AddJob stores a durable (or soon-to-be-triggered) job without a trigger.
// Fails NonDurableWithoutTrigger if job isn't durable and replace is false.
func (s *SchedulerFacade) AddJob(ctx context.Context, job *models.JobDetail, replace bool) error {
	if err := s.validateState(); err != nil {
		return err
	}
	if job == nil {
		return newErr("AddJob", ErrInvalidArgument, nil)
	}
	job.Group = canonicalGroup(job.Group)
	if !job.Durable && !replace {
		return newErr("AddJob", ErrNonDurableWithoutTrigger, nil)
	}
	if err := s.store.StoreJob(ctx, job, replace); err != nil {
		return newErr("AddJob", ErrStoreTransient, err)
	}
	s.listeners.notifyJobAdded(job)
	return nil
}

// DeleteJob unschedules every trigger for the job, then removes it.
func (s *SchedulerFacade) DeleteJob(ctx context.Context, name, group string) (bool, error) {
	if err := s.validateState(); err != nil {
		return false, err
	}
	group = canonicalGroup(group)
	key := models.JobKey{Name: name, Group: group}

	triggers, err := s.store.GetTriggersForJob(ctx, key)
	if err != nil {
		return false, newErr("DeleteJob", ErrStoreTransient, err)
	}
	for _, t := range triggers {
		if _, err := s.UnscheduleJob(ctx, t.Key().Name, t.Key().Group); err != nil {
			return false, newErr("DeleteJob", ErrDeleteConflict, err)
		}
	}
	return s.store.RemoveJob(ctx, key)
}

// UnscheduleJob removes the named trigger.
func (s *SchedulerFacade) UnscheduleJob(ctx context.Context, triggerName, group string) (bool, error) {
	if err := s.validateState(); err != nil {
		return false, err
	}
	group = canonicalGroup(group)
	removed, err := s.store.RemoveTrigger(ctx, models.TriggerKey{Name: triggerName, Group: group})
	if err != nil {
		return false, newErr("UnscheduleJob", ErrStoreTransient, err)
	}
	if removed {
		s.listeners.notifyJobUnscheduled(models.TriggerKey{Name: triggerName, Group: group})
	}
	return removed, nil
}

// RescheduleJob validates newTrigger, computes its first fire time, and
// atomically replaces the old trigger. Returns ok=false if the old trigger
// was absent.
func (s *SchedulerFacade) RescheduleJob(ctx context.Context, triggerName, group string, newTrigger store.Trigger) (time.Time, bool, error) {
	if err := s.validateState(); err != nil {
		return time.Time{}, false, err
	}
	group = canonicalGroup(group)

	var cal store.Calendar
	var err error
	if newTrigger.CalendarName() != "" {
		cal, err = s.store.RetrieveCalendar(ctx, newTrigger.CalendarName())
		if err != nil {
			return time.Time{}, false, newErr("RescheduleJob", ErrCalendarNotFound, err)
		}
	}
	first := newTrigger.ComputeFirstFireTime(cal)
	if first == nil {
		return time.Time{}, false, newErr("RescheduleJob", ErrNeverFires, nil)
	}

	ok, err := s.store.ReplaceTrigger(ctx, models.TriggerKey{Name: triggerName, Group: group}, newTrigger)
	if err != nil {
		return time.Time{}, false, newErr("RescheduleJob", ErrStoreTransient, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	s.listeners.notifyJobUnscheduled(models.TriggerKey{Name: triggerName, Group: group})
	s.listeners.notifyJobScheduled(newTrigger.Snapshot(models.TriggerStateNormal))
	s.signaler.signalSchedulingChange(*first)
	return *first, true, nil
}

// TriggerJob fires jobName/group immediately via a freshly generated
// one-shot trigger in the reserved MANUAL_TRIGGER group. Id collisions are
// retried up to maxManualTriggerIDAttempts times with a fresh id.
func (s *SchedulerFacade) TriggerJob(ctx context.Context, jobName, group string, jobData []byte, volatile bool) error {
	if err := s.validateState(); err != nil {
		return err
	}
	group = canonicalGroup(group)

	for attempt := 0; attempt < maxManualTriggerIDAttempts; attempt++ {
		id, err := randomManualTriggerID()
		if err != nil {
			return newErr("TriggerJob", ErrStoreTransient, err)
		}
		t := trigger.NewSimpleTrigger(id, models.ManualTriggerGroup, jobName, group, time.Now(), 0, 0, 0)
		t.WithVolatile(volatile)
		if len(jobData) > 0 {
			t.WithJobData(jobData)
		}
		t.ComputeFirstFireTime(nil)

		if err := s.store.StoreTrigger(ctx, t, false); err != nil {
			if isAlreadyExistsErr(err) {
				continue
			}
			return newErr("TriggerJob", ErrStoreTransient, err)
		}
		s.listeners.notifyJobScheduled(t.Snapshot(models.TriggerStateNormal))
		s.signaler.signalSchedulingChange(time.Now())
		return nil
	}
	return newErr("TriggerJob", ErrObjectAlreadyExists, fmt.Errorf("exhausted %d manual-trigger id attempts", maxManualTriggerIDAttempts))
}

func randomManualTriggerID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	v := binary.BigEndian.Uint64(buf[:]) & 0x7fffffffffffffff // positive
	return fmt.Sprintf("MT_%d", v), nil
}

// Pause/resume operations delegate to the store and signal the loop.

func (s *SchedulerFacade) PauseTrigger(ctx context.Context, name, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.PauseTrigger(ctx, models.TriggerKey{Name: name, Group: canonicalGroup(group)}) })
}
func (s *SchedulerFacade) PauseTriggerGroup(ctx context.Context, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.PauseTriggerGroup(ctx, canonicalGroup(group)) })
}
func (s *SchedulerFacade) PauseJob(ctx context.Context, name, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.PauseJob(ctx, models.JobKey{Name: name, Group: canonicalGroup(group)}) })
}
func (s *SchedulerFacade) PauseJobGroup(ctx context.Context, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.PauseJobGroup(ctx, canonicalGroup(group)) })
}
func (s *SchedulerFacade) PauseAll(ctx context.Context) error {
	return s.storeThenSignal(ctx, func() error { return s.store.PauseAll(ctx) })
}
func (s *SchedulerFacade) ResumeTrigger(ctx context.Context, name, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.ResumeTrigger(ctx, models.TriggerKey{Name: name, Group: canonicalGroup(group)}) })
}
func (s *SchedulerFacade) ResumeTriggerGroup(ctx context.Context, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.ResumeTriggerGroup(ctx, canonicalGroup(group)) })
}
func (s *SchedulerFacade) ResumeJob(ctx context.Context, name, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.ResumeJob(ctx, models.JobKey{Name: name, Group: canonicalGroup(group)}) })
}
func (s *SchedulerFacade) ResumeJobGroup(ctx context.Context, group string) error {
	return s.storeThenSignal(ctx, func() error { return s.store.ResumeJobGroup(ctx, canonicalGroup(group)) })
}
func (s *SchedulerFacade) ResumeAll(ctx context.Context) error {
	return s.storeThenSignal(ctx, func() error { return s.store.ResumeAll(ctx) })
}

func (s *SchedulerFacade) storeThenSignal(ctx context.Context, op func() error) error {
	if err := s.validateState(); err != nil {
		return err
	}
	if err := op(); err != nil {
		return newErr("pauseOrResume", ErrStoreTransient, err)
	}
	s.signaler.signalSchedulingChange(time.Time{})
	return nil
}

// Queries — thin pass-through to the store.

func (s *SchedulerFacade) GetJobDetail(ctx context.Context, name, group string) (*models.JobDetail, error) {
	return s.store.RetrieveJob(ctx, models.JobKey{Name: name, Group: canonicalGroup(group)})
}
func (s *SchedulerFacade) GetTrigger(ctx context.Context, name, group string) (store.Trigger, error) {
	return s.store.RetrieveTrigger(ctx, models.TriggerKey{Name: name, Group: canonicalGroup(group)})
}
func (s *SchedulerFacade) GetTriggerState(ctx context.Context, name, group string) (models.TriggerState, error) {
	return s.store.GetTriggerState(ctx, models.TriggerKey{Name: name, Group: canonicalGroup(group)})
}
func (s *SchedulerFacade) StoreCalendar(ctx context.Context, name string, cal store.Calendar, replace bool) error {
	return s.store.StoreCalendar(ctx, name, cal, replace)
}
func (s *SchedulerFacade) GetCalendar(ctx context.Context, name string) (store.Calendar, error) {
	return s.store.RetrieveCalendar(ctx, name)
}
func (s *SchedulerFacade) GetTriggerGroupNames(ctx context.Context) ([]string, error) {
	return s.store.GetTriggerGroupNames(ctx)
}
func (s *SchedulerFacade) GetJobGroupNames(ctx context.Context) ([]string, error) {
	return s.store.GetJobGroupNames(ctx)
}
func (s *SchedulerFacade) GetJobKeys(ctx context.Context, group string) ([]models.JobKey, error) {
	return s.store.GetJobKeys(ctx, group)
}
func (s *SchedulerFacade) GetTriggerKeys(ctx context.Context, group string) ([]models.TriggerKey, error) {
	return s.store.GetTriggerKeys(ctx, group)
}
func (s *SchedulerFacade) GetTriggersForJob(ctx context.Context, name, group string) ([]store.Trigger, error) {
	return s.store.GetTriggersForJob(ctx, models.JobKey{Name: name, Group: canonicalGroup(group)})
}

// Interrupt asks the ExecutionTracker to interrupt a running execution.
func (s *SchedulerFacade) Interrupt(name, group string) (bool, error) {
	return s.tracker.Interrupt(name, canonicalGroup(group))
}

// ExecutingCount returns the live execution count (used by shutdown-wait
// and by /api health/status surfaces).
func (s *SchedulerFacade) ExecutingCount() int { return s.tracker.Count() }

// NumJobsFired returns the lifetime count of job executions started.
func (s *SchedulerFacade) NumJobsFired() int64 { return s.tracker.NumJobsFired() }

// Lifecycle -----------------------------------------------------------

// Start transitions CREATED/STANDBY to STARTED, launching the loop and
// worker pool on the first call.
func (s *SchedulerFacade) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateShuttingDown || s.state == stateShutdown {
		s.mu.Unlock()
		return newErr("Start", ErrSchedulerShutdown, nil)
	}
	first := !s.initialStart
	s.initialStart = true
	s.state = stateStarted
	if s.loopCtx == nil {
		s.loopCtx, s.loopCancel = context.WithCancel(context.Background())
		s.pool.Start()
		go s.loop.run(s.loopCtx)
	}
	s.mu.Unlock()

	if first {
		if err := s.store.SchedulerStarted(ctx); err != nil {
			return newErr("Start", ErrStoreFatal, err)
		}
	}
	s.loop.setState(loopRunning)
	s.listeners.notifySchedulerStarted()
	return nil
}

// StartDelayed spawns a helper goroutine that sleeps d then calls Start;
// it never blocks the caller.
func (s *SchedulerFacade) StartDelayed(d time.Duration) {
	go func() {
		time.Sleep(d)
		_ = s.Start(context.Background())
	}()
}

// Standby toggles the loop to PAUSED; the scheduler stays resumable.
func (s *SchedulerFacade) Standby() {
	s.mu.Lock()
	s.state = stateStandby
	s.mu.Unlock()
	s.loop.setState(loopPaused)
	s.listeners.notifyStandby()
}

// IsStarted reports !shuttingDown && !closed && !inStandby && initialStart.
func (s *SchedulerFacade) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateStarted && s.initialStart
}

// Shutdown is idempotent: calls after the first are no-ops. With
// waitForCompletion it blocks until every executing job has finished.
func (s *SchedulerFacade) Shutdown(ctx context.Context, waitForCompletion bool) error {
	s.mu.Lock()
	if s.state == stateShuttingDown || s.state == stateShutdown {
		s.mu.Unlock()
		return nil
	}
	s.state = stateShuttingDown
	s.mu.Unlock()

	s.loop.setState(loopPaused)
	s.listeners.notifyShuttingDown()

	if s.cfg.InterruptJobsOnShutdown || (waitForCompletion && s.cfg.InterruptJobsOnShutdownWithWait) {
		for _, ec := range s.tracker.snapshot() {
			if interruptible, ok := ec.job.(Interruptible); ok {
				_ = interruptible.Interrupt()
			}
		}
	}

	s.loop.setState(loopHalted)
	if s.loopCancel != nil {
		s.loopCancel()
		s.loop.waitHalted()
	}
	s.pool.Stop(waitForCompletion)

	if waitForCompletion {
		for s.tracker.Count() > 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	s.mu.Lock()
	s.state = stateShutdown
	s.mu.Unlock()

	if err := s.store.Shutdown(ctx); err != nil {
		s.listeners.notifySchedulerError("store shutdown", err)
	}
	s.holder.Clear()
	s.listeners.notifyShutdown()
	defaultRepository.remove(s.name)
	return nil
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isAlreadyExistsErr(err error) bool {
	return errors.Is(err, store.ErrAlreadyExists)
}
