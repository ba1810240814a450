package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	jobstatus "github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type JobRunRepo interface {
	// Enqueue inserts the job unless its idempotency key is taken, in which case the
	// existing row is returned with created=false.
	Enqueue(dbc dbctx.Context, job *types.JobRun) (*types.JobRun, bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	GetByIdempotencyKey(dbc dbctx.Context, key string) (*types.JobRun, error)
	// ClaimNextRunnable locks one due job of jobType and moves it to running.
	ClaimNextRunnable(dbc dbctx.Context, jobType string, staleRunning time.Duration) (*types.JobRun, error)
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error
	ScheduleRetry(dbc dbctx.Context, id uuid.UUID, lastErr string, nextRunAt time.Time) error
	MarkDead(dbc dbctx.Context, id uuid.UUID, lastErr string) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	// ListStaleExhausted returns running jobs whose worker vanished after their last allowed attempt.
	ListStaleExhausted(dbc dbctx.Context, staleRunning time.Duration, limit int) ([]*types.JobRun, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Enqueue(dbc dbctx.Context, job *types.JobRun) (*types.JobRun, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, false, nil
	}
	now := time.Now().UTC()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = jobstatus.StatusQueued
	}
	if job.NextRunAt.IsZero() {
		job.NextRunAt = now
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(job)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return job, true, nil
	}
	existing, err := r.GetByIdempotencyKey(dbc, job.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.JobRun
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) GetByIdempotencyKey(dbc dbctx.Context, key string) (*types.JobRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, nil
	}
	var job types.JobRun
	if err := transaction.WithContext(dbc.Ctx).Where("idempotency_key = ?", key).Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, jobType string, staleRunning time.Duration) (*types.JobRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.JobRun
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("job_type = ?", jobType).
			Where(`
        (
          (status IN ? AND next_run_at <= ?)
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
            AND attempts < max_attempts
          )
        )
      `, []string{jobstatus.StatusQueued, jobstatus.StatusRetrying}, now, jobstatus.StatusRunning, staleCutoff).
			Order("next_run_at ASC, created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       jobstatus.StatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = jobstatus.StatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) update(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       jobstatus.StatusSucceeded,
		"finished_at":  now,
		"heartbeat_at": now,
		"last_error":   "",
	}
	if len(result) > 0 {
		updates["result"] = result
	}
	return r.update(dbc, id, updates)
}

func (r *jobRunRepo) ScheduleRetry(dbc dbctx.Context, id uuid.UUID, lastErr string, nextRunAt time.Time) error {
	now := time.Now().UTC()
	return r.update(dbc, id, map[string]interface{}{
		"status":        jobstatus.StatusRetrying,
		"last_error":    lastErr,
		"last_error_at": now,
		"next_run_at":   nextRunAt.UTC(),
		"locked_at":     nil,
	})
}

func (r *jobRunRepo) MarkDead(dbc dbctx.Context, id uuid.UUID, lastErr string) error {
	now := time.Now().UTC()
	return r.update(dbc, id, map[string]interface{}{
		"status":        jobstatus.StatusDead,
		"last_error":    lastErr,
		"last_error_at": now,
		"finished_at":   now,
		"locked_at":     nil,
	})
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, jobstatus.StatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRunRepo) ListStaleExhausted(dbc dbctx.Context, staleRunning time.Duration, limit int) ([]*types.JobRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().UTC().Add(-staleRunning)
	var out []*types.JobRun
	err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND heartbeat_at < ? AND attempts >= max_attempts", jobstatus.StatusRunning, cutoff).
		Order("heartbeat_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
