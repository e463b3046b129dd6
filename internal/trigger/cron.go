package trigger

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/minisource/jobengine/internal/store"
)

// cronParser accepts six-field expressions (with seconds) plus descriptors
// ("@daily" etc).
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronTrigger wraps a robfig/cron/v3 schedule.
type CronTrigger struct {
	base

	Expression string
	schedule   cron.Schedule
}

// NewCronTrigger parses expr via the shared cronParser. Returns an error
// if the expression is invalid.
func NewCronTrigger(name, group, jobName, jobGroup, expr string, priority int) (*CronTrigger, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, err
	}
	t := &CronTrigger{Expression: expr, schedule: sched}
	t.name, t.group = name, group
	t.jobName, t.jobGroup = jobName, jobGroup
	t.priority = priority
	t.misfirePolicy = MisfireFireOnceNow
	return t, nil
}

// Kind identifies this trigger type for persistence codecs.
func (t *CronTrigger) Kind() string { return "cron" }

func (t *CronTrigger) WithCalendar(name string) *CronTrigger {
	t.calendarName = name
	return t
}

func (t *CronTrigger) WithMisfirePolicy(p MisfirePolicy) *CronTrigger {
	t.misfirePolicy = p
	return t
}

func (t *CronTrigger) ComputeFirstFireTime(cal store.Calendar) *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	candidate := t.schedule.Next(time.Now())
	for skips := 0; isExcluded(cal, candidate); skips++ {
		if skips >= maxCalendarSkips {
			return nil
		}
		candidate = t.schedule.Next(candidate)
	}
	ft := candidate
	t.nextFireTime = &ft
	return copyTime(t.nextFireTime)
}

func (t *CronTrigger) Triggered(cal store.Calendar) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nextFireTime != nil {
		prev := *t.nextFireTime
		t.previousFireTime = &prev
	}
	from := time.Now()
	if t.nextFireTime != nil {
		from = *t.nextFireTime
	}
	candidate := t.schedule.Next(from)
	for skips := 0; isExcluded(cal, candidate); skips++ {
		if skips >= maxCalendarSkips {
			t.nextFireTime = nil
			return
		}
		candidate = t.schedule.Next(candidate)
	}
	t.nextFireTime = &candidate
}

// MayFireAgain is always true: cron schedules have no terminal state short
// of explicit unschedule.
func (t *CronTrigger) MayFireAgain() bool { return true }

// UpdateAfterMisfire recomputes from "now" under the default
// MisfireFireOnceNow policy, or fires once immediately under
// MisfireIgnore.
func (t *CronTrigger) UpdateAfterMisfire(cal store.Calendar) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.misfirePolicy == MisfireDoNothing {
		return
	}
	now := time.Now()
	if t.misfirePolicy == MisfireIgnore {
		ft := now
		t.nextFireTime = &ft
		return
	}
	candidate := t.schedule.Next(now)
	for skips := 0; isExcluded(cal, candidate); skips++ {
		if skips >= maxCalendarSkips {
			t.nextFireTime = nil
			return
		}
		candidate = t.schedule.Next(candidate)
	}
	t.nextFireTime = &candidate
}
