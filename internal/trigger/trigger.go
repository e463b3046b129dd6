// Package trigger provides the concrete Trigger kinds the engine
// schedules: SimpleTrigger (fixed interval/repeat count) and CronTrigger
// (robfig/cron/v3 expressions). Both satisfy the store.Trigger interface
// the engine consumes; the engine imports this package only to build the
// one-shot trigger behind TriggerJob.
package trigger

import (
	"sync"
	"time"

	"github.com/minisource/jobengine/internal/models"
	"github.com/minisource/jobengine/internal/store"
)

// MisfirePolicy governs recovery when a fire time elapses unacted-upon.
type MisfirePolicy int

const (
	MisfireSmart MisfirePolicy = iota
	MisfireIgnore
	MisfireFireOnceNow
	MisfireDoNothing
)

// base holds the identity/calendar/priority fields every Trigger kind
// shares, guarded by a mutex since NextFireTime/PreviousFireTime mutate on
// Triggered/UpdateAfterMisfire calls from the loop goroutine while Snapshot
// may be read concurrently by API handlers.
type base struct {
	mu               sync.RWMutex
	name             string
	group            string
	jobName          string
	jobGroup         string
	calendarName     string
	priority         int
	volatile         bool
	misfirePolicy    MisfirePolicy
	nextFireTime     *time.Time
	previousFireTime *time.Time
}

func (b *base) Key() models.TriggerKey { return models.TriggerKey{Name: b.name, Group: b.group} }
func (b *base) JobKey() models.JobKey  { return models.JobKey{Name: b.jobName, Group: b.jobGroup} }
func (b *base) CalendarName() string   { return b.calendarName }
func (b *base) Priority() int          { return b.priority }
func (b *base) Volatile() bool         { return b.volatile }
func (b *base) MisfirePolicy() int     { return int(b.misfirePolicy) }

func (b *base) NextFireTime() *time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyTime(b.nextFireTime)
}

func (b *base) PreviousFireTime() *time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyTime(b.previousFireTime)
}

func (b *base) Snapshot(state models.TriggerState) models.TriggerSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return models.TriggerSnapshot{
		Name:             b.name,
		Group:            b.group,
		JobName:          b.jobName,
		JobGroup:         b.jobGroup,
		CalendarName:     b.calendarName,
		Priority:         b.priority,
		Volatile:         b.volatile,
		MisfirePolicy:    int(b.misfirePolicy),
		State:            state,
		NextFireTime:     copyTime(b.nextFireTime),
		PreviousFireTime: copyTime(b.previousFireTime),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func isExcluded(cal store.Calendar, t time.Time) bool {
	return cal != nil && cal.IsTimeExcluded(t)
}

// maxCalendarSkips bounds the exclusion-skip loops so a calendar that
// excludes every candidate yields "never fires" instead of spinning.
const maxCalendarSkips = 10000

var _ store.Trigger = (*SimpleTrigger)(nil)
var _ store.Trigger = (*CronTrigger)(nil)
