package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minisource/jobengine/internal/models"
)

// GormRecorder is the Postgres-backed Recorder, paginating with the usual
// Where/Order/Offset/Limit pattern.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder builds a GormRecorder. Call AutoMigrate once at startup.
func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) AutoMigrate() error {
	return r.db.AutoMigrate(&models.JobExecution{})
}

func (r *GormRecorder) Create(ctx context.Context, execution *models.JobExecution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}

func (r *GormRecorder) Update(ctx context.Context, execution *models.JobExecution) error {
	return r.db.WithContext(ctx).Save(execution).Error
}

func (r *GormRecorder) FindByID(ctx context.Context, id uuid.UUID) (*models.JobExecution, error) {
	var execution models.JobExecution
	err := r.db.WithContext(ctx).First(&execution, "fire_instance_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *GormRecorder) buildQuery(filter models.ExecutionFilter) *gorm.DB {
	query := r.db.Model(&models.JobExecution{})
	if filter.JobName != "" {
		query = query.Where("job_name = ?", filter.JobName)
	}
	if filter.JobGroup != "" {
		query = query.Where("job_group = ?", filter.JobGroup)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StartTime != nil {
		query = query.Where("scheduled_at >= ?", filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("scheduled_at <= ?", filter.EndTime)
	}
	return query
}

func (r *GormRecorder) Query(ctx context.Context, filter models.ExecutionFilter) (*models.ExecutionListResult, error) {
	var executions []models.JobExecution
	var total int64

	query := r.buildQuery(filter).WithContext(ctx)
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if err := query.Order("scheduled_at DESC").Offset(offset).Limit(pageSize).Find(&executions).Error; err != nil {
		return nil, err
	}

	return &models.ExecutionListResult{
		Executions: executions,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

func (r *GormRecorder) FindByJob(ctx context.Context, jobName, jobGroup string, limit int) ([]models.JobExecution, error) {
	var executions []models.JobExecution
	err := r.db.WithContext(ctx).
		Where("job_name = ? AND job_group = ?", jobName, jobGroup).
		Order("scheduled_at DESC").
		Limit(limit).
		Find(&executions).Error
	return executions, err
}

func (r *GormRecorder) Stats(ctx context.Context, jobName, jobGroup *string, start, end time.Time) (*Stats, error) {
	var s Stats
	query := r.db.WithContext(ctx).Model(&models.JobExecution{}).
		Where("scheduled_at BETWEEN ? AND ?", start, end)
	if jobName != nil {
		query = query.Where("job_name = ?", *jobName)
	}
	if jobGroup != nil {
		query = query.Where("job_group = ?", *jobGroup)
	}
	if err := query.Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := query.Session(&gorm.Session{}).Where("status = ?", models.ExecutionStatusCompleted).Count(&s.Completed).Error; err != nil {
		return nil, err
	}
	if err := query.Session(&gorm.Session{}).Where("status = ?", models.ExecutionStatusFailed).Count(&s.Failed).Error; err != nil {
		return nil, err
	}
	if err := query.Session(&gorm.Session{}).Where("status = ?", models.ExecutionStatusVetoed).Count(&s.Vetoed).Error; err != nil {
		return nil, err
	}
	var avg *float64
	if err := query.Session(&gorm.Session{}).Where("duration_ms IS NOT NULL").
		Select("AVG(duration_ms)").Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		s.AvgDuration = *avg
	}
	return &s, nil
}

var _ Recorder = (*GormRecorder)(nil)
