package trigger

import (
	"encoding/json"
	"time"

	"github.com/minisource/jobengine/internal/store"
)

// SimpleTrigger fires every Interval, RepeatCount times (0 = one-shot,
// negative = indefinite repeat).
type SimpleTrigger struct {
	base

	StartAt     time.Time
	Interval    time.Duration
	RepeatCount int // 0 = fire once, <0 = repeat forever

	timesFired      int
	jobDataOverride json.RawMessage
}

// NewSimpleTrigger builds a SimpleTrigger. repeatCount<0 means indefinite.
func NewSimpleTrigger(name, group, jobName, jobGroup string, startAt time.Time, interval time.Duration, repeatCount int, priority int) *SimpleTrigger {
	t := &SimpleTrigger{
		StartAt:     startAt,
		Interval:    interval,
		RepeatCount: repeatCount,
	}
	t.name, t.group = name, group
	t.jobName, t.jobGroup = jobName, jobGroup
	t.priority = priority
	t.misfirePolicy = MisfireSmart
	return t
}

// Kind identifies this trigger type for persistence codecs.
func (t *SimpleTrigger) Kind() string { return "simple" }

// WithCalendar binds an exclusion calendar by name.
func (t *SimpleTrigger) WithCalendar(name string) *SimpleTrigger {
	t.calendarName = name
	return t
}

// WithMisfirePolicy overrides the default smart policy.
func (t *SimpleTrigger) WithMisfirePolicy(p MisfirePolicy) *SimpleTrigger {
	t.misfirePolicy = p
	return t
}

// WithVolatile marks the trigger excluded from durable recovery.
func (t *SimpleTrigger) WithVolatile(v bool) *SimpleTrigger {
	t.volatile = v
	return t
}

// WithJobData attaches a one-shot JobData override consulted by the store's
// TriggersFired when building this trigger's execution, used by manual
// firing to pass ad hoc payloads without mutating the job's own
// JobDetail.JobData.
func (t *SimpleTrigger) WithJobData(data json.RawMessage) *SimpleTrigger {
	t.jobDataOverride = data
	return t
}

// JobDataOverride returns the one-shot JobData set via WithJobData, or nil.
func (t *SimpleTrigger) JobDataOverride() json.RawMessage { return t.jobDataOverride }

func (t *SimpleTrigger) ComputeFirstFireTime(cal store.Calendar) *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	candidate := t.StartAt
	for skips := 0; isExcluded(cal, candidate); skips++ {
		if t.Interval <= 0 || skips >= maxCalendarSkips {
			return nil
		}
		candidate = candidate.Add(t.Interval)
	}
	ft := candidate
	t.nextFireTime = &ft
	return copyTime(t.nextFireTime)
}

func (t *SimpleTrigger) Triggered(cal store.Calendar) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nextFireTime != nil {
		prev := *t.nextFireTime
		t.previousFireTime = &prev
	}
	t.timesFired++

	if t.RepeatCount >= 0 && t.timesFired > t.RepeatCount {
		t.nextFireTime = nil
		return
	}
	if t.Interval <= 0 {
		t.nextFireTime = nil
		return
	}
	next := t.nextFireTime
	if next == nil {
		t.nextFireTime = nil
		return
	}
	candidate := next.Add(t.Interval)
	for skips := 0; isExcluded(cal, candidate); skips++ {
		if skips >= maxCalendarSkips {
			t.nextFireTime = nil
			return
		}
		candidate = candidate.Add(t.Interval)
	}
	t.nextFireTime = &candidate
}

func (t *SimpleTrigger) MayFireAgain() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.RepeatCount < 0 {
		return true
	}
	return t.timesFired <= t.RepeatCount
}

// UpdateAfterMisfire applies the trigger's policy: the smart default
// recomputes the next fire time from "now", skipping missed fires;
// MisfireIgnore fires once immediately and resumes normal cadence.
func (t *SimpleTrigger) UpdateAfterMisfire(cal store.Calendar) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.misfirePolicy == MisfireDoNothing {
		return
	}
	now := time.Now()
	if t.misfirePolicy == MisfireIgnore {
		// Fire once immediately, then resume normal cadence from now.
		ft := now
		t.nextFireTime = &ft
		return
	}
	// MisfireSmart / MisfireFireOnceNow: skip ahead to the next fire time
	// that is not already in the past.
	if t.nextFireTime == nil || t.Interval <= 0 {
		return
	}
	candidate := *t.nextFireTime
	for candidate.Before(now) {
		candidate = candidate.Add(t.Interval)
	}
	t.nextFireTime = &candidate
}
