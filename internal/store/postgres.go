package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minisource/jobengine/internal/lock"
	"github.com/minisource/jobengine/internal/models"
)

// AcquisitionLease is the store's view of the cross-process claim guarding
// AcquireNextTriggers, satisfied by lock.Lease. Interface-shaped so tests
// can substitute a fake without pulling in Redis.
type AcquisitionLease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// PostgresStore is the GORM-backed JobStore. When constructed with an
// AcquisitionLease, trigger acquisition stays single-writer across
// scheduler processes: the lease is claimed on the first acquisition
// round, extended on every subsequent round while this process keeps it,
// and released at Shutdown.
type PostgresStore struct {
	db *gorm.DB

	lease     AcquisitionLease
	leaseMu   sync.Mutex
	leaseHeld bool

	// statefulMu guards blockedJobs, the in-process record of which
	// stateful JobDetails currently have an execution in flight.
	// This is process-local rather than a DB row: a fired trigger's row
	// transitions out of ACQUIRED back to NORMAL/COMPLETE in TriggersFired,
	// before the job body (tracked separately, across the dispatch/execute
	// boundary) actually runs, so the lock can't be recovered from trigger
	// state alone.
	statefulMu  sync.Mutex
	blockedJobs map[models.JobKey]struct{}
}

// NewPostgresStore builds a PostgresStore. lease may be nil for a
// single-process deployment (Clustered() reports false in that case).
func NewPostgresStore(db *gorm.DB, lease AcquisitionLease) *PostgresStore {
	return &PostgresStore{db: db, lease: lease, blockedJobs: make(map[models.JobKey]struct{})}
}

// holdLease claims or renews the acquisition lease for one round. A false
// return with nil error means another scheduler currently owns it.
func (s *PostgresStore) holdLease(ctx context.Context) (bool, error) {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()
	if s.leaseHeld {
		ok, err := s.lease.Extend(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		s.leaseHeld = false // lapsed; fall through and contend again
	}
	ok, err := s.lease.TryAcquire(ctx)
	if err != nil {
		return false, err
	}
	s.leaseHeld = ok
	return ok, nil
}

// AutoMigrate creates/updates the tables PostgresStore depends on.
func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.JobDetail{}, &TriggerRecord{}, &CalendarRecord{}, &PausedGroupRecord{}, &models.JobExecution{})
}

// PausedGroupRecord marks an entire trigger or job group paused. Pause
// state is a row of its own rather than inferred from trigger states, so
// a group reads back as paused even while it has no trigger rows.
type PausedGroupRecord struct {
	Kind      string    `gorm:"primaryKey;size:16"`
	Group     string    `gorm:"primaryKey;size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PausedGroupRecord) TableName() string { return "paused_group_records" }

const (
	pausedKindTrigger = "trigger"
	pausedKindJob     = "job"
)

func (s *PostgresStore) markGroupPaused(ctx context.Context, kind, group string) error {
	rec := PausedGroupRecord{Kind: kind, Group: group}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (s *PostgresStore) clearGroupPaused(ctx context.Context, kind, group string) error {
	return s.db.WithContext(ctx).
		Where("kind = ? AND \"group\" = ?", kind, group).
		Delete(&PausedGroupRecord{}).Error
}

func (s *PostgresStore) StoreJob(ctx context.Context, job *models.JobDetail, replace bool) error {
	db := s.db.WithContext(ctx)
	if replace {
		return db.Save(job).Error
	}
	err := db.Create(job).Error
	if isDuplicateKeyErr(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) StoreTrigger(ctx context.Context, trig Trigger, replace bool) error {
	rec, err := EncodeTriggerRecord(trig, string(models.TriggerStateNormal))
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	if replace {
		return db.Save(&rec).Error
	}
	err = db.Create(&rec).Error
	if isDuplicateKeyErr(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) StoreJobAndTrigger(ctx context.Context, job *models.JobDetail, trig Trigger) error {
	rec, err := EncodeTriggerRecord(trig, string(models.TriggerStateNormal))
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(job).Error; err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
}

func (s *PostgresStore) StoreCalendar(ctx context.Context, name string, cal Calendar, replace bool) error {
	kinded, ok := cal.(interface{ Kind() string })
	if !ok {
		return fmt.Errorf("store: calendar %T does not declare a Kind()", cal)
	}
	rec, err := EncodeCalendarRecord(name, kinded.Kind(), cal)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	if replace {
		return db.Save(&rec).Error
	}
	err = db.Create(&rec).Error
	if isDuplicateKeyErr(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) RemoveJob(ctx context.Context, key models.JobKey) (bool, error) {
	res := s.db.WithContext(ctx).Where("name = ? AND \"group\" = ?", key.Name, key.Group).Delete(&models.JobDetail{})
	return res.RowsAffected > 0, res.Error
}

func (s *PostgresStore) RemoveTrigger(ctx context.Context, key models.TriggerKey) (bool, error) {
	res := s.db.WithContext(ctx).Where("name = ? AND \"group\" = ?", key.Name, key.Group).Delete(&TriggerRecord{})
	return res.RowsAffected > 0, res.Error
}

func (s *PostgresStore) ReplaceTrigger(ctx context.Context, key models.TriggerKey, newTrigger Trigger) (bool, error) {
	rec, err := EncodeTriggerRecord(newTrigger, string(models.TriggerStateNormal))
	if err != nil {
		return false, err
	}
	var existed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("name = ? AND \"group\" = ?", key.Name, key.Group).Delete(&TriggerRecord{})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		if !existed {
			return nil
		}
		return tx.Save(&rec).Error
	})
	return existed, err
}

func (s *PostgresStore) RetrieveJob(ctx context.Context, key models.JobKey) (*models.JobDetail, error) {
	var job models.JobDetail
	err := s.db.WithContext(ctx).Where("name = ? AND \"group\" = ?", key.Name, key.Group).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *PostgresStore) RetrieveTrigger(ctx context.Context, key models.TriggerKey) (Trigger, error) {
	var rec TriggerRecord
	err := s.db.WithContext(ctx).Where("name = ? AND \"group\" = ?", key.Name, key.Group).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeTriggerRecord(rec)
}

func (s *PostgresStore) RetrieveCalendar(ctx context.Context, name string) (Calendar, error) {
	var rec CalendarRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeCalendarRecord(rec)
}

// AcquireNextTriggers renews the acquisition lease (when configured),
// then selects NORMAL triggers due within timeWindow inside a transaction
// so concurrent schedulers never double-acquire a row. Triggers whose
// group or job group carries a paused-group row are skipped even if their
// own state is still NORMAL.
func (s *PostgresStore) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]Trigger, error) {
	if s.lease != nil {
		held, err := s.holdLease(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if !held {
			return nil, nil
		}
	}

	s.statefulMu.Lock()
	defer s.statefulMu.Unlock()

	var out []Trigger
	// acquiredStateful tracks stateful JobKeys claimed by a candidate
	// earlier in this same scan, so two triggers of the same stateful job
	// are never both acquired in one batch.
	acquiredStateful := map[models.JobKey]struct{}{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pausedTriggerGroups := tx.Model(&PausedGroupRecord{}).Select("\"group\"").Where("kind = ?", pausedKindTrigger)
		pausedJobGroups := tx.Model(&PausedGroupRecord{}).Select("\"group\"").Where("kind = ?", pausedKindJob)

		var recs []TriggerRecord
		q := tx.
			Where("state = ?", string(models.TriggerStateNormal)).
			Where("next_fire_time IS NOT NULL AND next_fire_time <= ?", noLaterThan).
			Where("\"group\" NOT IN (?)", pausedTriggerGroups).
			Where("job_group NOT IN (?)", pausedJobGroups).
			Order("next_fire_time ASC, priority DESC").
			Limit(maxCount)
		if err := q.Find(&recs).Error; err != nil {
			return err
		}
		for _, rec := range recs {
			t, err := DecodeTriggerRecord(rec)
			if err != nil {
				return err
			}
			jobKey := t.JobKey()
			var job models.JobDetail
			err = tx.Where("name = ? AND \"group\" = ?", jobKey.Name, jobKey.Group).First(&job).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if job.Stateful {
				_, running := s.blockedJobs[jobKey]
				_, reserved := acquiredStateful[jobKey]
				if running || reserved {
					if err := tx.Model(&TriggerRecord{}).
						Where("name = ? AND \"group\" = ?", rec.Name, rec.Group).
						Update("state", string(models.TriggerStateBlocked)).Error; err != nil {
						return err
					}
					continue
				}
				acquiredStateful[jobKey] = struct{}{}
			}
			if err := tx.Model(&TriggerRecord{}).
				Where("name = ? AND \"group\" = ?", rec.Name, rec.Group).
				Update("state", string(models.TriggerStateAcquired)).Error; err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return out, nil
}

func (s *PostgresStore) ReleaseAcquiredTrigger(ctx context.Context, trig Trigger) error {
	key := trig.Key()
	return s.db.WithContext(ctx).Model(&TriggerRecord{}).
		Where("name = ? AND \"group\" = ?", key.Name, key.Group).
		Where("state = ?", string(models.TriggerStateAcquired)).
		Update("state", string(models.TriggerStateNormal)).Error
}

func (s *PostgresStore) TriggersFired(ctx context.Context, triggers []Trigger) ([]models.FireResult, error) {
	results := make([]models.FireResult, 0, len(triggers))
	for _, t := range triggers {
		job, err := s.RetrieveJob(ctx, t.JobKey())
		if err != nil {
			return nil, err
		}
		if job == nil {
			results = append(results, models.FireResult{NoFire: true})
			continue
		}
		var cal Calendar
		if t.CalendarName() != "" {
			cal, _ = s.RetrieveCalendar(ctx, t.CalendarName())
		}
		scheduled := time.Now()
		if nft := t.NextFireTime(); nft != nil {
			scheduled = *nft
		}
		t.Triggered(cal)
		if job.Stateful {
			s.statefulMu.Lock()
			s.blockedJobs[job.Key()] = struct{}{}
			s.statefulMu.Unlock()
		}

		newState := models.TriggerStateNormal
		if !t.MayFireAgain() {
			newState = models.TriggerStateComplete
		}
		rec, err := EncodeTriggerRecord(t, string(newState))
		if err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
			return nil, err
		}

		jobCopy := *job
		applyJobDataOverride(t, &jobCopy)
		results = append(results, models.FireResult{
			Trigger:   t.Snapshot(newState),
			Job:       &jobCopy,
			Calendar:  t.CalendarName(),
			Scheduled: scheduled,
			Actual:    time.Now(),
		})
	}
	return results, nil
}

// TriggeredJobComplete applies the dispatcher's instruction code to the
// trigger's stored row, removes non-durable jobs whose last trigger
// reached a terminal state, and releases a stateful job's concurrency
// lock.
func (s *PostgresStore) TriggeredJobComplete(ctx context.Context, trig Trigger, job *models.JobDetail, instructionCode models.InstructionCode) error {
	key := trig.Key()
	db := s.db.WithContext(ctx)
	var err error
	switch instructionCode {
	case models.DeleteTrigger:
		err = s.removeTriggerCascade(ctx, key)
	case models.SetTriggerComplete:
		err = s.removeTriggerCascade(ctx, key)
	case models.SetTriggerError:
		err = db.Model(&TriggerRecord{}).Where("name = ? AND \"group\" = ?", key.Name, key.Group).
			Update("state", string(models.TriggerStateError)).Error
	case models.SetAllJobTriggersComplete:
		err = s.removeAllJobTriggersCascade(ctx, trig.JobKey())
	case models.SetAllJobTriggersError:
		err = db.Model(&TriggerRecord{}).Where("job_name = ? AND job_group = ?", trig.JobKey().Name, trig.JobKey().Group).
			Update("state", string(models.TriggerStateError)).Error
	}
	if err != nil {
		return err
	}

	if job != nil && job.Stateful {
		s.statefulMu.Lock()
		delete(s.blockedJobs, job.Key())
		s.statefulMu.Unlock()
		err = db.Model(&TriggerRecord{}).
			Where("job_name = ? AND job_group = ? AND state = ?", job.Name, job.Group, string(models.TriggerStateBlocked)).
			Update("state", string(models.TriggerStateNormal)).Error
	}
	return err
}

// removeTriggerCascade deletes the named trigger outright (rather than
// merely flagging it COMPLETE) and, if that was its job's last trigger and
// the job is non-durable, removes the job too.
func (s *PostgresStore) removeTriggerCascade(ctx context.Context, key models.TriggerKey) error {
	db := s.db.WithContext(ctx)
	var rec TriggerRecord
	err := db.Where("name = ? AND \"group\" = ?", key.Name, key.Group).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := db.Delete(&rec).Error; err != nil {
		return err
	}
	return s.maybeRemoveNonDurableJob(ctx, models.JobKey{Name: rec.JobName, Group: rec.JobGroup})
}

// removeAllJobTriggersCascade deletes every trigger for jobKey and removes
// the job itself if it is non-durable.
func (s *PostgresStore) removeAllJobTriggersCascade(ctx context.Context, jobKey models.JobKey) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("job_name = ? AND job_group = ?", jobKey.Name, jobKey.Group).Delete(&TriggerRecord{}).Error; err != nil {
		return err
	}
	return s.maybeRemoveNonDurableJob(ctx, jobKey)
}

func (s *PostgresStore) maybeRemoveNonDurableJob(ctx context.Context, jobKey models.JobKey) error {
	db := s.db.WithContext(ctx)
	var job models.JobDetail
	err := db.Where("name = ? AND \"group\" = ?", jobKey.Name, jobKey.Group).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if job.Durable {
		return nil
	}
	var count int64
	if err := db.Model(&TriggerRecord{}).Where("job_name = ? AND job_group = ?", jobKey.Name, jobKey.Group).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Where("name = ? AND \"group\" = ?", jobKey.Name, jobKey.Group).Delete(&models.JobDetail{}).Error
}

func (s *PostgresStore) pauseByFilter(ctx context.Context, query string, args ...any) error {
	return s.db.WithContext(ctx).Model(&TriggerRecord{}).Where(query, args...).
		Update("state", string(models.TriggerStatePaused)).Error
}

func (s *PostgresStore) PauseTrigger(ctx context.Context, key models.TriggerKey) error {
	return s.pauseByFilter(ctx, "name = ? AND \"group\" = ?", key.Name, key.Group)
}
func (s *PostgresStore) PauseTriggerGroup(ctx context.Context, group string) error {
	if err := s.markGroupPaused(ctx, pausedKindTrigger, group); err != nil {
		return err
	}
	return s.pauseByFilter(ctx, "\"group\" = ?", group)
}
func (s *PostgresStore) PauseJob(ctx context.Context, key models.JobKey) error {
	return s.pauseByFilter(ctx, "job_name = ? AND job_group = ?", key.Name, key.Group)
}
func (s *PostgresStore) PauseJobGroup(ctx context.Context, group string) error {
	if err := s.markGroupPaused(ctx, pausedKindJob, group); err != nil {
		return err
	}
	return s.pauseByFilter(ctx, "job_group = ?", group)
}
func (s *PostgresStore) PauseAll(ctx context.Context) error {
	groups, err := s.GetTriggerGroupNames(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := s.markGroupPaused(ctx, pausedKindTrigger, g); err != nil {
			return err
		}
	}
	return s.pauseByFilter(ctx, "1 = 1")
}

func (s *PostgresStore) resumeByFilter(ctx context.Context, query string, args ...any) error {
	return s.db.WithContext(ctx).Model(&TriggerRecord{}).
		Where(query, args...).
		Where("state = ?", string(models.TriggerStatePaused)).
		Update("state", string(models.TriggerStateNormal)).Error
}

func (s *PostgresStore) ResumeTrigger(ctx context.Context, key models.TriggerKey) error {
	return s.resumeByFilter(ctx, "name = ? AND \"group\" = ?", key.Name, key.Group)
}
func (s *PostgresStore) ResumeTriggerGroup(ctx context.Context, group string) error {
	if err := s.clearGroupPaused(ctx, pausedKindTrigger, group); err != nil {
		return err
	}
	return s.resumeByFilter(ctx, "\"group\" = ?", group)
}
func (s *PostgresStore) ResumeJob(ctx context.Context, key models.JobKey) error {
	return s.resumeByFilter(ctx, "job_name = ? AND job_group = ?", key.Name, key.Group)
}
func (s *PostgresStore) ResumeJobGroup(ctx context.Context, group string) error {
	if err := s.clearGroupPaused(ctx, pausedKindJob, group); err != nil {
		return err
	}
	return s.resumeByFilter(ctx, "job_group = ?", group)
}
func (s *PostgresStore) ResumeAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&PausedGroupRecord{}).Error; err != nil {
		return err
	}
	return s.resumeByFilter(ctx, "1 = 1")
}

func (s *PostgresStore) GetPausedTriggerGroups(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.db.WithContext(ctx).Model(&PausedGroupRecord{}).
		Where("kind = ?", pausedKindTrigger).
		Pluck("\"group\"", &groups).Error
	return groups, err
}

func (s *PostgresStore) GetTriggerGroupNames(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.db.WithContext(ctx).Model(&TriggerRecord{}).Distinct().Pluck("\"group\"", &groups).Error
	return groups, err
}

func (s *PostgresStore) GetJobGroupNames(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.db.WithContext(ctx).Model(&models.JobDetail{}).Distinct().Pluck("\"group\"", &groups).Error
	return groups, err
}

func (s *PostgresStore) GetJobKeys(ctx context.Context, group string) ([]models.JobKey, error) {
	var jobs []models.JobDetail
	q := s.db.WithContext(ctx).Select("name", "\"group\"")
	if group != "" {
		q = q.Where("\"group\" = ?", group)
	}
	if err := q.Order("\"group\" ASC, name ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	out := make([]models.JobKey, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, models.JobKey{Name: j.Name, Group: j.Group})
	}
	return out, nil
}

func (s *PostgresStore) GetTriggerKeys(ctx context.Context, group string) ([]models.TriggerKey, error) {
	var recs []TriggerRecord
	q := s.db.WithContext(ctx).Select("name", "\"group\"")
	if group != "" {
		q = q.Where("\"group\" = ?", group)
	}
	if err := q.Order("\"group\" ASC, name ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]models.TriggerKey, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.TriggerKey{Name: r.Name, Group: r.Group})
	}
	return out, nil
}

func (s *PostgresStore) GetTriggersForJob(ctx context.Context, key models.JobKey) ([]Trigger, error) {
	var recs []TriggerRecord
	if err := s.db.WithContext(ctx).Where("job_name = ? AND job_group = ?", key.Name, key.Group).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]Trigger, 0, len(recs))
	for _, rec := range recs {
		t, err := DecodeTriggerRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *PostgresStore) GetTriggerState(ctx context.Context, key models.TriggerKey) (models.TriggerState, error) {
	var rec TriggerRecord
	err := s.db.WithContext(ctx).Where("name = ? AND \"group\" = ?", key.Name, key.Group).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TriggerStateNone, nil
	}
	if err != nil {
		return models.TriggerStateNone, err
	}
	return models.TriggerState(rec.State), nil
}

func (s *PostgresStore) groupPaused(ctx context.Context, kind, group string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PausedGroupRecord{}).
		Where("kind = ? AND \"group\" = ?", kind, group).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *PostgresStore) IsJobGroupPaused(ctx context.Context, group string) (bool, error) {
	return s.groupPaused(ctx, pausedKindJob, group)
}

func (s *PostgresStore) IsTriggerGroupPaused(ctx context.Context, group string) (bool, error) {
	return s.groupPaused(ctx, pausedKindTrigger, group)
}

func (s *PostgresStore) SchedulerStarted(ctx context.Context) error { return nil }

func (s *PostgresStore) Shutdown(ctx context.Context) error {
	if s.lease == nil {
		return nil
	}
	s.leaseMu.Lock()
	held := s.leaseHeld
	s.leaseHeld = false
	s.leaseMu.Unlock()
	if !held {
		return nil
	}
	return s.lease.Release(ctx)
}

func (s *PostgresStore) SupportsPersistence() bool { return true }
func (s *PostgresStore) Clustered() bool           { return s.lease != nil }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Postgres' unique_violation SQLSTATE is 23505; pgx surfaces it as a
	// *pgconn.PgError whose Error() string embeds the code, so a substring
	// check covers drivers gorm doesn't translate.
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}

var _ JobStore = (*PostgresStore)(nil)
var _ AcquisitionLease = (*lock.Lease)(nil)
