package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minisource/jobengine/internal/models"
)

// InMemoryRecorder stores execution rows in a map, guarded by a single
// mutex in the same style as store.InMemoryStore.
type InMemoryRecorder struct {
	mu         sync.Mutex
	executions map[uuid.UUID]models.JobExecution
}

// NewInMemoryRecorder builds an empty InMemoryRecorder.
func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{executions: make(map[uuid.UUID]models.JobExecution)}
}

func (r *InMemoryRecorder) Create(_ context.Context, execution *models.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions[execution.FireInstanceID] = *execution
	return nil
}

func (r *InMemoryRecorder) Update(_ context.Context, execution *models.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions[execution.FireInstanceID] = *execution
	return nil
}

func (r *InMemoryRecorder) FindByID(_ context.Context, id uuid.UUID) (*models.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *InMemoryRecorder) matches(e models.JobExecution, filter models.ExecutionFilter) bool {
	if filter.JobName != "" && e.JobName != filter.JobName {
		return false
	}
	if filter.JobGroup != "" && e.JobGroup != filter.JobGroup {
		return false
	}
	if filter.Status != "" && e.Status != filter.Status {
		return false
	}
	if filter.StartTime != nil && e.ScheduledAt.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && e.ScheduledAt.After(*filter.EndTime) {
		return false
	}
	return true
}

func (r *InMemoryRecorder) Query(_ context.Context, filter models.ExecutionFilter) (*models.ExecutionListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.JobExecution
	for _, e := range r.executions {
		if r.matches(e, filter) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ScheduledAt.After(matched[j].ScheduledAt) })

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	total := int64(len(matched))
	offset := (page - 1) * pageSize
	end := offset + pageSize
	if offset > len(matched) {
		offset = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return &models.ExecutionListResult{
		Executions: matched[offset:end],
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

func (r *InMemoryRecorder) FindByJob(_ context.Context, jobName, jobGroup string, limit int) ([]models.JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.JobExecution
	for _, e := range r.executions {
		if e.JobName == jobName && e.JobGroup == jobGroup {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRecorder) Stats(_ context.Context, jobName, jobGroup *string, start, end time.Time) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Stats
	var durationSum int64
	var durationCount int64
	for _, e := range r.executions {
		if jobName != nil && e.JobName != *jobName {
			continue
		}
		if jobGroup != nil && e.JobGroup != *jobGroup {
			continue
		}
		if e.ScheduledAt.Before(start) || e.ScheduledAt.After(end) {
			continue
		}
		s.Total++
		switch e.Status {
		case models.ExecutionStatusCompleted:
			s.Completed++
		case models.ExecutionStatusFailed:
			s.Failed++
		case models.ExecutionStatusVetoed:
			s.Vetoed++
		}
		if e.DurationMS != nil {
			durationSum += *e.DurationMS
			durationCount++
		}
	}
	if durationCount > 0 {
		s.AvgDuration = float64(durationSum) / float64(durationCount)
	}
	return &s, nil
}

var _ Recorder = (*InMemoryRecorder)(nil)
