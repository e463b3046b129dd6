package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minisource/jobengine/internal/models"
)

// InMemoryStore is the default JobStore: mutex-guarded maps. Jobs are
// returned as struct copies; triggers are returned by reference. A single sync.Mutex serializes every operation rather
// than fine-grained per-map locks, since acquisition needs to scan across
// triggers/jobs/pause-state atomically anyway.
type InMemoryStore struct {
	mu sync.Mutex

	jobs      map[models.JobKey]*models.JobDetail
	triggers  map[models.TriggerKey]Trigger
	triggerSt map[models.TriggerKey]models.TriggerState
	calendars map[string]Calendar

	pausedTriggerGroups map[string]struct{}
	pausedJobGroups     map[string]struct{}

	// blockedJobs holds the JobKey of every stateful JobDetail with an
	// execution currently in flight; a stateful job never runs twice
	// concurrently. Locked in TriggersFired, released in
	// TriggeredJobComplete.
	blockedJobs map[models.JobKey]struct{}

	started bool
}

// NewInMemoryStore builds an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs:                make(map[models.JobKey]*models.JobDetail),
		triggers:            make(map[models.TriggerKey]Trigger),
		triggerSt:           make(map[models.TriggerKey]models.TriggerState),
		calendars:           make(map[string]Calendar),
		pausedTriggerGroups: make(map[string]struct{}),
		pausedJobGroups:     make(map[string]struct{}),
		blockedJobs:         make(map[models.JobKey]struct{}),
	}
}

func (s *InMemoryStore) StoreJob(_ context.Context, job *models.JobDetail, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := job.Key()
	if _, exists := s.jobs[key]; exists && !replace {
		return ErrAlreadyExists
	}
	cp := *job
	s.jobs[key] = &cp
	return nil
}

func (s *InMemoryStore) StoreTrigger(_ context.Context, trig Trigger, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeTriggerLocked(trig, replace)
}

func (s *InMemoryStore) storeTriggerLocked(trig Trigger, replace bool) error {
	key := trig.Key()
	if _, exists := s.triggers[key]; exists && !replace {
		return ErrAlreadyExists
	}
	s.triggers[key] = trig
	s.triggerSt[key] = models.TriggerStateNormal
	return nil
}

func (s *InMemoryStore) StoreJobAndTrigger(_ context.Context, job *models.JobDetail, trig Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := job.Key()
	cp := *job
	s.jobs[key] = &cp
	return s.storeTriggerLocked(trig, true)
}

func (s *InMemoryStore) StoreCalendar(_ context.Context, name string, cal Calendar, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.calendars[name]; exists && !replace {
		return ErrAlreadyExists
	}
	s.calendars[name] = cal
	return nil
}

func (s *InMemoryStore) RemoveJob(_ context.Context, key models.JobKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[key]; !exists {
		return false, nil
	}
	delete(s.jobs, key)
	return true, nil
}

func (s *InMemoryStore) RemoveTrigger(_ context.Context, key models.TriggerKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.triggers[key]; !exists {
		return false, nil
	}
	delete(s.triggers, key)
	delete(s.triggerSt, key)
	return true, nil
}

func (s *InMemoryStore) ReplaceTrigger(_ context.Context, key models.TriggerKey, newTrigger Trigger) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.triggers[key]; !exists {
		return false, nil
	}
	delete(s.triggers, key)
	delete(s.triggerSt, key)
	nk := newTrigger.Key()
	s.triggers[nk] = newTrigger
	s.triggerSt[nk] = models.TriggerStateNormal
	return true, nil
}

func (s *InMemoryStore) RetrieveJob(_ context.Context, key models.JobKey) (*models.JobDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[key]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (s *InMemoryStore) RetrieveTrigger(_ context.Context, key models.TriggerKey) (Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[key]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (s *InMemoryStore) RetrieveCalendar(_ context.Context, name string) (Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, ok := s.calendars[name]
	if !ok {
		return nil, ErrNotFound
	}
	return cal, nil
}

// AcquireNextTriggers moves up to maxCount NORMAL triggers whose next fire
// time is no later than noLaterThan into ACQUIRED state. A trigger whose
// next fire time lies more than timeWindow before now has its misfire
// policy applied first.
func (s *InMemoryStore) AcquireNextTriggers(_ context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		key models.TriggerKey
		t   Trigger
	}
	var candidates []candidate
	// acquiredStateful tracks stateful JobKeys claimed by a candidate earlier
	// in this same scan, so two triggers of the same stateful job are never
	// both acquired in one batch.
	acquiredStateful := map[models.JobKey]struct{}{}
	// Scan in next-fire-time order (unset times last) so the earliest due
	// trigger of a stateful job is the one that claims its slot.
	keys := make([]models.TriggerKey, 0, len(s.triggers))
	for key := range s.triggers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := s.triggers[keys[i]].NextFireTime(), s.triggers[keys[j]].NextFireTime()
		return ni != nil && (nj == nil || ni.Before(*nj))
	})
	for _, key := range keys {
		t := s.triggers[key]
		if s.triggerSt[key] != models.TriggerStateNormal {
			continue
		}
		if s.groupPausedLocked(key.Group) || s.jobGroupPausedLocked(t.JobKey().Group) {
			continue
		}
		if job, ok := s.jobs[t.JobKey()]; ok && job.Stateful {
			_, running := s.blockedJobs[t.JobKey()]
			_, reserved := acquiredStateful[t.JobKey()]
			if running || reserved {
				s.triggerSt[key] = models.TriggerStateBlocked
				continue
			}
			acquiredStateful[t.JobKey()] = struct{}{}
		}
		nft := t.NextFireTime()
		if nft == nil {
			continue
		}
		if nft.Before(time.Now().Add(-timeWindow)) {
			var cal Calendar
			if t.CalendarName() != "" {
				cal = s.calendars[t.CalendarName()]
			}
			t.UpdateAfterMisfire(cal)
		}
		if t.NextFireTime() == nil || t.NextFireTime().After(noLaterThan) {
			continue
		}
		candidates = append(candidates, candidate{key: key, t: t})
	}

	sort.Slice(candidates, func(i, j int) bool {
		ni, nj := candidates[i].t.NextFireTime(), candidates[j].t.NextFireTime()
		if ni == nil || nj == nil {
			return false
		}
		return ni.Before(*nj)
	})

	if maxCount > 0 && len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}

	out := make([]Trigger, 0, len(candidates))
	for _, c := range candidates {
		s.triggerSt[c.key] = models.TriggerStateAcquired
		out = append(out, c.t)
	}
	return out, nil
}

func (s *InMemoryStore) ReleaseAcquiredTrigger(_ context.Context, trig Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := trig.Key()
	if _, ok := s.triggers[key]; !ok {
		return nil
	}
	// Only an ACQUIRED trigger goes back to NORMAL; a trigger paused (or
	// otherwise moved on) while it was held keeps its current state.
	if s.triggerSt[key] == models.TriggerStateAcquired {
		s.triggerSt[key] = models.TriggerStateNormal
	}
	return nil
}

// TriggersFired resolves each ACQUIRED trigger into a FireResult,
// advancing its schedule via Triggered.
func (s *InMemoryStore) TriggersFired(_ context.Context, triggers []Trigger) ([]models.FireResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]models.FireResult, 0, len(triggers))
	for _, t := range triggers {
		key := t.Key()
		if s.triggerSt[key] != models.TriggerStateAcquired {
			results = append(results, models.FireResult{NoFire: true})
			continue
		}
		job, ok := s.jobs[t.JobKey()]
		if !ok {
			results = append(results, models.FireResult{NoFire: true})
			continue
		}
		var cal Calendar
		if t.CalendarName() != "" {
			cal = s.calendars[t.CalendarName()]
		}
		scheduled := time.Now()
		if nft := t.NextFireTime(); nft != nil {
			scheduled = *nft
		}
		t.Triggered(cal)
		if job.Stateful {
			s.blockedJobs[job.Key()] = struct{}{}
		}

		jobCopy := *job
		applyJobDataOverride(t, &jobCopy)
		results = append(results, models.FireResult{
			Trigger:   t.Snapshot(models.TriggerStateNormal),
			Job:       &jobCopy,
			Calendar:  t.CalendarName(),
			Scheduled: scheduled,
			Actual:    time.Now(),
		})
		if t.MayFireAgain() {
			s.triggerSt[key] = models.TriggerStateNormal
		} else {
			s.triggerSt[key] = models.TriggerStateComplete
		}
	}
	return results, nil
}

// TriggeredJobComplete applies the dispatcher's instruction code to the
// trigger's stored state, removes non-durable jobs whose last trigger
// reached a terminal state, and releases a stateful job's concurrency
// lock.
func (s *InMemoryStore) TriggeredJobComplete(_ context.Context, trig Trigger, job *models.JobDetail, instructionCode models.InstructionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := trig.Key()

	switch instructionCode {
	case models.DeleteTrigger:
		s.removeTriggerCascadeLocked(key)
	case models.SetTriggerComplete:
		s.removeTriggerCascadeLocked(key)
	case models.SetTriggerError:
		s.triggerSt[key] = models.TriggerStateError
	case models.SetAllJobTriggersComplete:
		for k, t := range s.triggers {
			if t.JobKey() == trig.JobKey() {
				s.removeTriggerCascadeLocked(k)
			}
		}
	case models.SetAllJobTriggersError:
		for k, t := range s.triggers {
			if t.JobKey() == trig.JobKey() {
				s.triggerSt[k] = models.TriggerStateError
			}
		}
	case models.ReExecuteJob:
		// left NORMAL/ACQUIRED state as-is; the loop will reacquire on its
		// own schedule since TriggersFired already advanced NextFireTime.
	}

	if job != nil && job.Stateful {
		delete(s.blockedJobs, job.Key())
		s.releaseBlockedTriggersLocked(job.Key())
	}
	return nil
}

// removeTriggerCascadeLocked removes a terminal trigger outright (rather
// than merely flagging it COMPLETE) and, if that was its job's last
// trigger and the job is non-durable, removes the job too.
func (s *InMemoryStore) removeTriggerCascadeLocked(key models.TriggerKey) {
	t, ok := s.triggers[key]
	if !ok {
		return
	}
	jobKey := t.JobKey()
	delete(s.triggers, key)
	delete(s.triggerSt, key)
	s.maybeRemoveNonDurableJobLocked(jobKey)
}

func (s *InMemoryStore) maybeRemoveNonDurableJobLocked(jobKey models.JobKey) {
	job, ok := s.jobs[jobKey]
	if !ok || job.Durable {
		return
	}
	for _, t := range s.triggers {
		if t.JobKey() == jobKey {
			return
		}
	}
	delete(s.jobs, jobKey)
}

// releaseBlockedTriggersLocked reverts every BLOCKED trigger of jobKey
// back to NORMAL once its stateful execution completes.
func (s *InMemoryStore) releaseBlockedTriggersLocked(jobKey models.JobKey) {
	for k, t := range s.triggers {
		if t.JobKey() == jobKey && s.triggerSt[k] == models.TriggerStateBlocked {
			s.triggerSt[k] = models.TriggerStateNormal
		}
	}
}

func (s *InMemoryStore) PauseTrigger(_ context.Context, key models.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.triggers[key]; ok {
		s.triggerSt[key] = models.TriggerStatePaused
	}
	return nil
}

func (s *InMemoryStore) PauseTriggerGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedTriggerGroups[group] = struct{}{}
	for k := range s.triggers {
		if k.Group == group {
			s.triggerSt[k] = models.TriggerStatePaused
		}
	}
	return nil
}

func (s *InMemoryStore) PauseJob(_ context.Context, key models.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.triggers {
		if t.JobKey() == key {
			s.triggerSt[k] = models.TriggerStatePaused
		}
	}
	return nil
}

func (s *InMemoryStore) PauseJobGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedJobGroups[group] = struct{}{}
	for k, t := range s.triggers {
		if t.JobKey().Group == group {
			s.triggerSt[k] = models.TriggerStatePaused
		}
	}
	return nil
}

func (s *InMemoryStore) PauseAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.triggers {
		s.pausedTriggerGroups[k.Group] = struct{}{}
		s.triggerSt[k] = models.TriggerStatePaused
	}
	return nil
}

func (s *InMemoryStore) ResumeTrigger(_ context.Context, key models.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[key]
	if !ok {
		return nil
	}
	s.resumeTriggerLocked(key, t)
	return nil
}

func (s *InMemoryStore) resumeTriggerLocked(key models.TriggerKey, t Trigger) {
	var cal Calendar
	if t.CalendarName() != "" {
		cal = s.calendars[t.CalendarName()]
	}
	if nft := t.NextFireTime(); nft != nil && nft.Before(time.Now()) {
		t.UpdateAfterMisfire(cal)
	}
	s.triggerSt[key] = models.TriggerStateNormal
}

func (s *InMemoryStore) ResumeTriggerGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedTriggerGroups, group)
	for k, t := range s.triggers {
		if k.Group == group {
			s.resumeTriggerLocked(k, t)
		}
	}
	return nil
}

func (s *InMemoryStore) ResumeJob(_ context.Context, key models.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.triggers {
		if t.JobKey() == key {
			s.resumeTriggerLocked(k, t)
		}
	}
	return nil
}

func (s *InMemoryStore) ResumeJobGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedJobGroups, group)
	for k, t := range s.triggers {
		if t.JobKey().Group == group {
			s.resumeTriggerLocked(k, t)
		}
	}
	return nil
}

func (s *InMemoryStore) ResumeAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedTriggerGroups = make(map[string]struct{})
	s.pausedJobGroups = make(map[string]struct{})
	for k, t := range s.triggers {
		s.resumeTriggerLocked(k, t)
	}
	return nil
}

func (s *InMemoryStore) GetPausedTriggerGroups(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pausedTriggerGroups))
	for g := range s.pausedTriggerGroups {
		out = append(out, g)
	}
	return out, nil
}

func (s *InMemoryStore) GetTriggerGroupNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for k := range s.triggers {
		seen[k.Group] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	return out, nil
}

func (s *InMemoryStore) GetJobGroupNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for k := range s.jobs {
		seen[k.Group] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	return out, nil
}

func (s *InMemoryStore) GetJobKeys(_ context.Context, group string) ([]models.JobKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JobKey, 0, len(s.jobs))
	for k := range s.jobs {
		if group == "" || k.Group == group {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemoryStore) GetTriggerKeys(_ context.Context, group string) ([]models.TriggerKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TriggerKey, 0, len(s.triggers))
	for k := range s.triggers {
		if group == "" || k.Group == group {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemoryStore) GetTriggersForJob(_ context.Context, key models.JobKey) ([]Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Trigger
	for _, t := range s.triggers {
		if t.JobKey() == key {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *InMemoryStore) GetTriggerState(_ context.Context, key models.TriggerKey) (models.TriggerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.triggerSt[key]
	if !ok {
		return models.TriggerStateNone, nil
	}
	return st, nil
}

func (s *InMemoryStore) groupPausedLocked(group string) bool {
	_, ok := s.pausedTriggerGroups[group]
	return ok
}

func (s *InMemoryStore) jobGroupPausedLocked(group string) bool {
	_, ok := s.pausedJobGroups[group]
	return ok
}

func (s *InMemoryStore) IsJobGroupPaused(_ context.Context, group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobGroupPausedLocked(group), nil
}

func (s *InMemoryStore) IsTriggerGroupPaused(_ context.Context, group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupPausedLocked(group), nil
}

func (s *InMemoryStore) SchedulerStarted(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *InMemoryStore) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *InMemoryStore) SupportsPersistence() bool { return false }
func (s *InMemoryStore) Clustered() bool           { return false }

var _ JobStore = (*InMemoryStore)(nil)
