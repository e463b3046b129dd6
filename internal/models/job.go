// Package models holds the durable data shapes the engine and its
// collaborators (store, trigger, API) exchange: jobs, triggers, execution
// records and the requests/filters used to query them.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType identifies which concrete Job implementation a JobDetail resolves
// to through the engine's JobFactory.
type JobType string

const (
	JobTypeHTTP JobType = "http" // executes HTTPExecutor
)

// JobStatus is the lifecycle status surfaced through the API, distinct from
// the store-owned TriggerState of any trigger bound to the job.
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusPaused   JobStatus = "paused"
	JobStatusDisabled JobStatus = "disabled"
	JobStatusDeleted  JobStatus = "deleted"
)

// ExecutionStatus is the lifecycle status of a single JobExecutionContext.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusRetrying  ExecutionStatus = "retrying"
	ExecutionStatusVetoed    ExecutionStatus = "vetoed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// TriggerState is owned exclusively by the JobStore; nothing else mutates
// it.
type TriggerState string

const (
	TriggerStateNormal   TriggerState = "NORMAL"
	TriggerStatePaused   TriggerState = "PAUSED"
	TriggerStateComplete TriggerState = "COMPLETE"
	TriggerStateError    TriggerState = "ERROR"
	TriggerStateBlocked  TriggerState = "BLOCKED"
	TriggerStateAcquired TriggerState = "ACQUIRED"
	TriggerStateNone     TriggerState = "NONE"
)

// InstructionCode steers the store's follow-up action on a trigger after a
// job execution completes.
type InstructionCode int

const (
	NoInstruction InstructionCode = iota
	ReExecuteJob
	SetTriggerComplete
	DeleteTrigger
	SetAllJobTriggersComplete
	SetTriggerError
	SetAllJobTriggersError
)

// JobKey identifies a JobDetail by (name, group); the engine and store
// reference jobs by key, never by object identity.
type JobKey struct {
	Name  string
	Group string
}

// TriggerKey identifies a Trigger by (name, group).
type TriggerKey struct {
	Name  string
	Group string
}

// DefaultGroup is the canonical group name used when the caller supplies
// an empty group.
const DefaultGroup = "DEFAULT"

// ManualTriggerGroup is the reserved group for triggerJob-generated triggers.
const ManualTriggerGroup = "MANUAL_TRIGGER"

// JobDetail is the identity, implementation reference and payload of a
// unit of work. JobData is an opaque string-keyed payload; concrete
// Job implementations (e.g. executor.HTTPExecutor) decode the shape they
// need from it — the core never interprets it.
type JobDetail struct {
	Name             string          `json:"name" gorm:"primaryKey;size:255"`
	Group            string          `json:"group" gorm:"primaryKey;size:255"`
	Type             JobType         `json:"type" gorm:"size:32"`
	Description      string          `json:"description,omitempty" gorm:"type:text"`
	Durable          bool            `json:"durable"`
	Stateful         bool            `json:"stateful"`
	RequestsRecovery bool            `json:"requests_recovery"`
	JobData          json.RawMessage `json:"job_data,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// Key returns the (name, group) identity of the job.
func (j *JobDetail) Key() JobKey { return JobKey{Name: j.Name, Group: j.Group} }

func (JobDetail) TableName() string { return "job_details" }

// JobExecution is the durable record of a single fire, the persisted
// projection of a JobExecutionContext.
type JobExecution struct {
	FireInstanceID uuid.UUID       `json:"fire_instance_id" gorm:"type:uuid;primaryKey"`
	JobName        string          `json:"job_name" gorm:"size:255;index:idx_exec_job"`
	JobGroup       string          `json:"job_group" gorm:"size:255;index:idx_exec_job"`
	TriggerName    string          `json:"trigger_name" gorm:"size:255"`
	TriggerGroup   string          `json:"trigger_group" gorm:"size:255"`
	Status         ExecutionStatus `json:"status" gorm:"size:20;index:idx_exec_status"`
	ScheduledAt    time.Time       `json:"scheduled_at" gorm:"index:idx_exec_scheduled"`
	ActualFireAt   time.Time       `json:"actual_fire_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	DurationMS     *int64          `json:"duration_ms,omitempty"`
	Attempt        int             `json:"attempt" gorm:"default:1"`
	WorkerID       string          `json:"worker_id,omitempty" gorm:"size:100"`
	Response       json.RawMessage `json:"response,omitempty" gorm:"type:jsonb"`
	StatusCode     *int            `json:"status_code,omitempty"`
	Error          string          `json:"error,omitempty" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (JobExecution) TableName() string { return "job_executions" }

// CreateJobRequest is the wire shape accepted by the HTTP export adapter
// for scheduling a new job+trigger pair.
type CreateJobRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=255"`
	Group       string          `json:"group,omitempty"`
	Description string          `json:"description,omitempty"`
	Durable     bool            `json:"durable,omitempty"`
	Stateful    bool            `json:"stateful,omitempty"`
	Endpoint    string          `json:"endpoint" validate:"required,url"`
	Method      string          `json:"method,omitempty"`
	Headers     json.RawMessage `json:"headers,omitempty"`
	JobData     json.RawMessage `json:"job_data,omitempty"`
	Timeout     int             `json:"timeout,omitempty"`
	MaxRetries  int             `json:"max_retries,omitempty"`
	RetryDelay  int             `json:"retry_delay,omitempty"`

	TriggerName    string `json:"trigger_name,omitempty"`
	TriggerGroup   string `json:"trigger_group,omitempty"`
	ScheduleType   string `json:"schedule_type" validate:"required,oneof=cron interval"`
	CronExpr       string `json:"cron_expr,omitempty"`
	IntervalSecs   int    `json:"interval_seconds,omitempty"`
	RepeatCount    int    `json:"repeat_count,omitempty"`
	StartAtSeconds int    `json:"start_at_seconds,omitempty"`
	Priority       int    `json:"priority,omitempty"`
	CalendarName   string `json:"calendar_name,omitempty"`
}

// JobFilter constrains a job listing query.
type JobFilter struct {
	Group    string
	Status   JobStatus
	Name     string
	Page     int
	PageSize int
}

// ExecutionFilter constrains an execution listing query.
type ExecutionFilter struct {
	JobName   string
	JobGroup  string
	Status    ExecutionStatus
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// JobListResult is a page of jobs.
type JobListResult struct {
	Jobs       []JobDetail `json:"jobs"`
	TotalCount int64       `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	HasMore    bool        `json:"has_more"`
}

// ExecutionListResult is a page of executions.
type ExecutionListResult struct {
	Executions []JobExecution `json:"executions"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	HasMore    bool           `json:"has_more"`
}
