package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// EventLedgerRepo holds the applied-event ledger and the wrong-answer audit trail.
type EventLedgerRepo interface {
	GetApplied(dbc dbctx.Context, key string) (*types.AppliedEvent, error)
	// RecordApplied returns false when the key was already present.
	RecordApplied(dbc dbctx.Context, row *types.AppliedEvent) (bool, error)
	RecordWrongAnswer(dbc dbctx.Context, row *types.WrongAnswer) error
	CountWrongAnswers(dbc dbctx.Context, learnerID, itemID uuid.UUID) (int64, error)
}

type eventLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventLedgerRepo(db *gorm.DB, baseLog *logger.Logger) EventLedgerRepo {
	return &eventLedgerRepo{
		db:  db,
		log: baseLog.With("repo", "EventLedgerRepo"),
	}
}

func (r *eventLedgerRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *eventLedgerRepo) GetApplied(dbc dbctx.Context, key string) (*types.AppliedEvent, error) {
	if key == "" {
		return nil, nil
	}
	return first[types.AppliedEvent](r.conn(dbc).Where("idempotency_key = ?", key))
}

func (r *eventLedgerRepo) RecordApplied(dbc dbctx.Context, row *types.AppliedEvent) (bool, error) {
	if row == nil || row.IdempotencyKey == "" {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := r.conn(dbc).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *eventLedgerRepo) RecordWrongAnswer(dbc dbctx.Context, row *types.WrongAnswer) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.conn(dbc).Create(row).Error
}

func (r *eventLedgerRepo) CountWrongAnswers(dbc dbctx.Context, learnerID, itemID uuid.UUID) (int64, error) {
	var count int64
	q := r.conn(dbc).Model(&types.WrongAnswer{}).Where("learner_id = ?", learnerID)
	if itemID != uuid.Nil {
		q = q.Where("lesson_item_id = ?", itemID)
	}
	err := q.Count(&count).Error
	return count, err
}
