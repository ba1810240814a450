package rewards

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type LearnerSummaryRepo interface {
	Get(dbc dbctx.Context, learnerID uuid.UUID) (*types.LearnerSummary, error)
	// GetForUpdate reads the row with FOR UPDATE; SQLite ignores the lock clause.
	GetForUpdate(dbc dbctx.Context, learnerID uuid.UUID) (*types.LearnerSummary, error)
	Create(dbc dbctx.Context, row *types.LearnerSummary) error
	Save(dbc dbctx.Context, row *types.LearnerSummary) error
}

type learnerSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerSummaryRepo(db *gorm.DB, baseLog *logger.Logger) LearnerSummaryRepo {
	return &learnerSummaryRepo{
		db:  db,
		log: baseLog.With("repo", "LearnerSummaryRepo"),
	}
}

func (r *learnerSummaryRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *learnerSummaryRepo) get(q *gorm.DB, learnerID uuid.UUID) (*types.LearnerSummary, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.LearnerSummary
	if err := q.Where("learner_id = ?", learnerID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *learnerSummaryRepo) Get(dbc dbctx.Context, learnerID uuid.UUID) (*types.LearnerSummary, error) {
	return r.get(r.conn(dbc), learnerID)
}

func (r *learnerSummaryRepo) GetForUpdate(dbc dbctx.Context, learnerID uuid.UUID) (*types.LearnerSummary, error) {
	return r.get(r.conn(dbc).Clauses(clause.Locking{Strength: "UPDATE"}), learnerID)
}

func (r *learnerSummaryRepo) Create(dbc dbctx.Context, row *types.LearnerSummary) error {
	return r.conn(dbc).Create(row).Error
}

func (r *learnerSummaryRepo) Save(dbc dbctx.Context, row *types.LearnerSummary) error {
	return r.conn(dbc).Save(row).Error
}
