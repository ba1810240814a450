package progress

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// HierarchyRepo stores the item → lesson → unit → module progress records.
// Latest* getters return the highest attempt for (owner, learner), or nil when none exists.
type HierarchyRepo interface {
	GetItemProgress(dbc dbctx.Context, itemID, learnerID uuid.UUID, attempt int) (*types.LessonItemProgress, error)
	SaveItemProgress(dbc dbctx.Context, row *types.LessonItemProgress) error

	LatestLessonProgress(dbc dbctx.Context, lessonID, learnerID uuid.UUID) (*types.LessonProgress, error)
	SaveLessonProgress(dbc dbctx.Context, row *types.LessonProgress) error

	LatestUnitProgress(dbc dbctx.Context, unitID, learnerID uuid.UUID) (*types.UnitProgress, error)
	SaveUnitProgress(dbc dbctx.Context, row *types.UnitProgress) error

	LatestModuleProgress(dbc dbctx.Context, moduleID, learnerID uuid.UUID) (*types.ModuleProgress, error)
	SaveModuleProgress(dbc dbctx.Context, row *types.ModuleProgress) error

	ListLessonProgress(dbc dbctx.Context, learnerID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error)
	ListUnitProgress(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.UnitProgress, error)
	ListModuleProgress(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.ModuleProgress, error)
}

type hierarchyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHierarchyRepo(db *gorm.DB, baseLog *logger.Logger) HierarchyRepo {
	return &hierarchyRepo{
		db:  db,
		log: baseLog.With("repo", "HierarchyRepo"),
	}
}

func (r *hierarchyRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func latestAttempt[T any](db *gorm.DB, ownerColumn string, ownerID, learnerID uuid.UUID) (*T, error) {
	if ownerID == uuid.Nil || learnerID == uuid.Nil {
		return nil, nil
	}
	var rows []*T
	err := db.
		Where(fmt.Sprintf("%s = ? AND learner_id = ?", ownerColumn), ownerID, learnerID).
		Order("attempt_number DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// save inserts when *id is unset and updates every column otherwise.
func save[T any](db *gorm.DB, row *T, id *uuid.UUID) error {
	if row == nil {
		return nil
	}
	if *id == uuid.Nil {
		*id = uuid.New()
		return db.Create(row).Error
	}
	return db.Save(row).Error
}

func (r *hierarchyRepo) GetItemProgress(dbc dbctx.Context, itemID, learnerID uuid.UUID, attempt int) (*types.LessonItemProgress, error) {
	if itemID == uuid.Nil || learnerID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.LessonItemProgress
	err := r.conn(dbc).
		Where("lesson_item_id = ? AND learner_id = ? AND attempt_number = ?", itemID, learnerID, attempt).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *hierarchyRepo) SaveItemProgress(dbc dbctx.Context, row *types.LessonItemProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *hierarchyRepo) LatestLessonProgress(dbc dbctx.Context, lessonID, learnerID uuid.UUID) (*types.LessonProgress, error) {
	return latestAttempt[types.LessonProgress](r.conn(dbc), "lesson_id", lessonID, learnerID)
}

func (r *hierarchyRepo) SaveLessonProgress(dbc dbctx.Context, row *types.LessonProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *hierarchyRepo) LatestUnitProgress(dbc dbctx.Context, unitID, learnerID uuid.UUID) (*types.UnitProgress, error) {
	return latestAttempt[types.UnitProgress](r.conn(dbc), "unit_id", unitID, learnerID)
}

func (r *hierarchyRepo) SaveUnitProgress(dbc dbctx.Context, row *types.UnitProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *hierarchyRepo) LatestModuleProgress(dbc dbctx.Context, moduleID, learnerID uuid.UUID) (*types.ModuleProgress, error) {
	return latestAttempt[types.ModuleProgress](r.conn(dbc), "module_id", moduleID, learnerID)
}

func (r *hierarchyRepo) SaveModuleProgress(dbc dbctx.Context, row *types.ModuleProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *hierarchyRepo) ListLessonProgress(dbc dbctx.Context, learnerID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	var out []*types.LessonProgress
	q := r.conn(dbc).Where("learner_id = ?", learnerID)
	if len(lessonIDs) > 0 {
		q = q.Where("lesson_id IN ?", lessonIDs)
	}
	if err := q.Order("lesson_id ASC, attempt_number ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *hierarchyRepo) ListUnitProgress(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.UnitProgress, error) {
	var out []*types.UnitProgress
	if err := r.conn(dbc).Where("learner_id = ?", learnerID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *hierarchyRepo) ListModuleProgress(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.ModuleProgress, error) {
	var out []*types.ModuleProgress
	if err := r.conn(dbc).Where("learner_id = ?", learnerID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
