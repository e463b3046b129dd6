// Package store defines the JobStore contract and ships two
// implementations: an in-memory store (default, used by unit tests) and a
// Postgres/GORM-backed store. The engine depends only on the JobStore
// interface in this file; it never imports either concrete implementation.
package store

import (
	"context"
	"time"

	"github.com/minisource/jobengine/internal/models"
)

// Calendar is the time-domain exclusion predicate consulted when computing
// fire times. Concrete kinds live in internal/calendar; the store only
// needs to retrieve/store them by name.
type Calendar interface {
	IsTimeExcluded(t time.Time) bool
}

// Trigger is the store's view of a schedule descriptor: everything the
// store needs to persist plus the schedule-algebra methods a concrete
// Trigger implementation (internal/trigger) provides.
type Trigger interface {
	Key() models.TriggerKey
	JobKey() models.JobKey
	Kind() string
	CalendarName() string
	Priority() int
	Volatile() bool
	MisfirePolicy() int
	ComputeFirstFireTime(cal Calendar) *time.Time
	NextFireTime() *time.Time
	PreviousFireTime() *time.Time
	Triggered(cal Calendar)
	MayFireAgain() bool
	UpdateAfterMisfire(cal Calendar)
	Snapshot(state models.TriggerState) models.TriggerSnapshot
}

// JobStore is the durable home of jobs, triggers, calendars and pause
// state, and the serialisation point for every trigger-state transition.
type JobStore interface {
	StoreJob(ctx context.Context, job *models.JobDetail, replaceExisting bool) error
	StoreTrigger(ctx context.Context, trig Trigger, replaceExisting bool) error
	StoreJobAndTrigger(ctx context.Context, job *models.JobDetail, trig Trigger) error
	StoreCalendar(ctx context.Context, name string, cal Calendar, replaceExisting bool) error

	RemoveJob(ctx context.Context, key models.JobKey) (bool, error)
	RemoveTrigger(ctx context.Context, key models.TriggerKey) (bool, error)
	ReplaceTrigger(ctx context.Context, key models.TriggerKey, newTrigger Trigger) (bool, error)

	RetrieveJob(ctx context.Context, key models.JobKey) (*models.JobDetail, error)
	RetrieveTrigger(ctx context.Context, key models.TriggerKey) (Trigger, error)
	RetrieveCalendar(ctx context.Context, name string) (Calendar, error)

	AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]Trigger, error)
	ReleaseAcquiredTrigger(ctx context.Context, trig Trigger) error
	TriggersFired(ctx context.Context, triggers []Trigger) ([]models.FireResult, error)
	TriggeredJobComplete(ctx context.Context, trig Trigger, job *models.JobDetail, instructionCode models.InstructionCode) error

	PauseTrigger(ctx context.Context, key models.TriggerKey) error
	PauseTriggerGroup(ctx context.Context, group string) error
	PauseJob(ctx context.Context, key models.JobKey) error
	PauseJobGroup(ctx context.Context, group string) error
	PauseAll(ctx context.Context) error

	ResumeTrigger(ctx context.Context, key models.TriggerKey) error
	ResumeTriggerGroup(ctx context.Context, group string) error
	ResumeJob(ctx context.Context, key models.JobKey) error
	ResumeJobGroup(ctx context.Context, group string) error
	ResumeAll(ctx context.Context) error

	GetPausedTriggerGroups(ctx context.Context) ([]string, error)
	GetTriggerGroupNames(ctx context.Context) ([]string, error)
	GetJobGroupNames(ctx context.Context) ([]string, error)
	GetTriggersForJob(ctx context.Context, key models.JobKey) ([]Trigger, error)
	GetTriggerState(ctx context.Context, key models.TriggerKey) (models.TriggerState, error)

	// GetJobKeys/GetTriggerKeys enumerate keys within a group (empty group
	// lists every group); the HTTP API needs these for its listing
	// endpoints.
	GetJobKeys(ctx context.Context, group string) ([]models.JobKey, error)
	GetTriggerKeys(ctx context.Context, group string) ([]models.TriggerKey, error)

	IsJobGroupPaused(ctx context.Context, group string) (bool, error)
	IsTriggerGroupPaused(ctx context.Context, group string) (bool, error)

	SchedulerStarted(ctx context.Context) error
	Shutdown(ctx context.Context) error

	SupportsPersistence() bool
	Clustered() bool
}
