package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/history"
	"github.com/minisource/jobengine/internal/models"
)

func durationPtr(ms int64) *int64 { return &ms }

func TestInMemoryRecorderCreateAndFindByID(t *testing.T) {
	r := history.NewInMemoryRecorder()
	ctx := context.Background()

	id := uuid.New()
	exec := &models.JobExecution{
		FireInstanceID: id,
		JobName:        "a",
		JobGroup:       "DEFAULT",
		Status:         models.ExecutionStatusRunning,
		ScheduledAt:    time.Now(),
	}
	require.NoError(t, r.Create(ctx, exec))

	got, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.JobName)

	missing, err := r.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInMemoryRecorderQueryFiltersAndPaginates(t *testing.T) {
	r := history.NewInMemoryRecorder()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Create(ctx, &models.JobExecution{
			FireInstanceID: uuid.New(),
			JobName:        "a",
			JobGroup:       "DEFAULT",
			Status:         models.ExecutionStatusCompleted,
			ScheduledAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, r.Create(ctx, &models.JobExecution{
		FireInstanceID: uuid.New(),
		JobName:        "other",
		JobGroup:       "DEFAULT",
		Status:         models.ExecutionStatusFailed,
		ScheduledAt:    base,
	}))

	result, err := r.Query(ctx, models.ExecutionFilter{JobName: "a", Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, result.Executions, 3)
	assert.Equal(t, int64(5), result.TotalCount)
	assert.True(t, result.HasMore)

	result, err = r.Query(ctx, models.ExecutionFilter{JobName: "a", Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, result.Executions, 2)
	assert.False(t, result.HasMore)
}

func TestInMemoryRecorderFindByJobOrdersMostRecentFirstAndLimits(t *testing.T) {
	r := history.NewInMemoryRecorder()
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Create(ctx, &models.JobExecution{
			FireInstanceID: uuid.New(),
			JobName:        "a",
			JobGroup:       "DEFAULT",
			ScheduledAt:    now.Add(time.Duration(i) * time.Minute),
		}))
	}

	out, err := r.FindByJob(ctx, "a", "DEFAULT", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].ScheduledAt.After(out[1].ScheduledAt))
}

func TestInMemoryRecorderStatsAggregates(t *testing.T) {
	r := history.NewInMemoryRecorder()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Create(ctx, &models.JobExecution{
		FireInstanceID: uuid.New(), JobName: "a", JobGroup: "DEFAULT",
		Status: models.ExecutionStatusCompleted, ScheduledAt: now, DurationMS: durationPtr(100),
	}))
	require.NoError(t, r.Create(ctx, &models.JobExecution{
		FireInstanceID: uuid.New(), JobName: "a", JobGroup: "DEFAULT",
		Status: models.ExecutionStatusFailed, ScheduledAt: now, DurationMS: durationPtr(200),
	}))
	require.NoError(t, r.Create(ctx, &models.JobExecution{
		FireInstanceID: uuid.New(), JobName: "a", JobGroup: "DEFAULT",
		Status: models.ExecutionStatusVetoed, ScheduledAt: now,
	}))

	jobName := "a"
	stats, err := r.Stats(ctx, &jobName, nil, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Vetoed)
	assert.Equal(t, float64(150), stats.AvgDuration)
}
