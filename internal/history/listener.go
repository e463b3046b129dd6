package history

import (
	"context"
	"time"

	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/models"
)

// Listener is a JobListener (internal/engine) that projects every fire into
// a durable models.JobExecution row via Recorder. Registering it as a
// listener keeps internal/engine free of any history-specific persistence
// call.
type Listener struct {
	recorder Recorder
}

// NewListener wires recorder into the engine's listener pipeline; register
// it with SchedulerFacade.AddJobListener.
func NewListener(recorder Recorder) *Listener {
	return &Listener{recorder: recorder}
}

func (l *Listener) Name() string { return "HistoryRecorder" }

func (l *Listener) JobToBeExecuted(ec *models.JobExecutionContext) {
	entry := &models.JobExecution{
		FireInstanceID: ec.FireInstanceID,
		JobName:        ec.JobDetail.Name,
		JobGroup:       ec.JobDetail.Group,
		TriggerName:    ec.TriggerName,
		TriggerGroup:   ec.TriggerGroup,
		Status:         models.ExecutionStatusRunning,
		ScheduledAt:    ec.ScheduledFireTime,
		ActualFireAt:   ec.ActualFireTime,
		StartedAt:      timePtr(time.Now()),
		Attempt:        1,
	}
	_ = l.recorder.Create(context.Background(), entry)
}

func (l *Listener) JobExecutionVetoed(ec *models.JobExecutionContext) {
	entry, err := l.recorder.FindByID(context.Background(), ec.FireInstanceID)
	if err != nil || entry == nil {
		return
	}
	entry.Status = models.ExecutionStatusVetoed
	entry.CompletedAt = timePtr(time.Now())
	_ = l.recorder.Update(context.Background(), entry)
}

func (l *Listener) JobWasExecuted(ec *models.JobExecutionContext, jobErr error) {
	entry, err := l.recorder.FindByID(context.Background(), ec.FireInstanceID)
	if err != nil || entry == nil {
		return
	}
	now := time.Now()
	entry.CompletedAt = timePtr(now)
	if entry.StartedAt != nil {
		d := now.Sub(*entry.StartedAt).Milliseconds()
		entry.DurationMS = &d
	}
	if jobErr != nil {
		entry.Status = models.ExecutionStatusFailed
		entry.Error = jobErr.Error()
	} else {
		entry.Status = models.ExecutionStatusCompleted
	}
	_ = l.recorder.Update(context.Background(), entry)
}

func timePtr(t time.Time) *time.Time { return &t }

var _ engine.JobListener = (*Listener)(nil)
