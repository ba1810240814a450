package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// FailedJobRepo is the dead-letter store.
type FailedJobRepo interface {
	// Record writes one row per job run; a second call for the same run is a no-op.
	Record(dbc dbctx.Context, row *types.FailedJob) (bool, error)
	List(dbc dbctx.Context, status, queueName string, limit, offset int) ([]*types.FailedJob, int64, error)
	CountByStatus(dbc dbctx.Context, status string) (int64, error)
}

type failedJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFailedJobRepo(db *gorm.DB, baseLog *logger.Logger) FailedJobRepo {
	return &failedJobRepo{
		db:  db,
		log: baseLog.With("repo", "FailedJobRepo"),
	}
}

func (r *failedJobRepo) Record(dbc dbctx.Context, row *types.FailedJob) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "job_run_id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *failedJobRepo) List(dbc dbctx.Context, status, queueName string, limit, offset int) ([]*types.FailedJob, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.FailedJob{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if queueName != "" {
		q = q.Where("queue_name = ?", queueName)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.FailedJob
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *failedJobRepo) CountByStatus(dbc dbctx.Context, status string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	q := transaction.WithContext(dbc.Ctx).Model(&types.FailedJob{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&n).Error
	return n, err
}
