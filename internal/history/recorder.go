// Package history persists JobExecution records independently of
// JobStore's scheduling state. Execution rows are an audit trail, not
// scheduling input, so they live behind their own Recorder interface
// rather than widening store.JobStore.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/minisource/jobengine/internal/models"
)

// Recorder persists and queries JobExecution rows.
type Recorder interface {
	Create(ctx context.Context, execution *models.JobExecution) error
	Update(ctx context.Context, execution *models.JobExecution) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.JobExecution, error)
	Query(ctx context.Context, filter models.ExecutionFilter) (*models.ExecutionListResult, error)
	FindByJob(ctx context.Context, jobName, jobGroup string, limit int) ([]models.JobExecution, error)
	Stats(ctx context.Context, jobName, jobGroup *string, start, end time.Time) (*Stats, error)
}

// Stats is the aggregate counter set surfaced under
// /api/v1/executions/stats.
type Stats struct {
	Total       int64   `json:"total"`
	Completed   int64   `json:"completed"`
	Failed      int64   `json:"failed"`
	Vetoed      int64   `json:"vetoed"`
	AvgDuration float64 `json:"avg_duration_ms"`
}
