package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// siblingOrder is the total order used for every "next sibling" decision.
const siblingOrder = "order_no ASC, created_at ASC, id ASC"

// CatalogRepo is read-only access to the content tree. Getters return (nil, nil) when missing.
type CatalogRepo interface {
	GetModule(dbc dbctx.Context, id uuid.UUID) (*types.Module, error)
	GetUnit(dbc dbctx.Context, id uuid.UUID) (*types.Unit, error)
	GetLesson(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	GetLessonItem(dbc dbctx.Context, id uuid.UUID) (*types.LessonItem, error)
	GetGame(dbc dbctx.Context, id uuid.UUID) (*types.Game, error)

	ListModules(dbc dbctx.Context) ([]*types.Module, error)
	ListUnitsByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.Unit, error)
	ListLessonsByUnitIDs(dbc dbctx.Context, unitIDs []uuid.UUID) ([]*types.Lesson, error)
	ListItemsByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.LessonItem, error)
	ListGamesByUnitIDs(dbc dbctx.Context, unitIDs []uuid.UUID) ([]*types.Game, error)
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	return &catalogRepo{
		db:  db,
		log: baseLog.With("repo", "CatalogRepo"),
	}
}

func (r *catalogRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func getByID[T any](db *gorm.DB, id uuid.UUID) (*T, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*T
	if err := db.Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *catalogRepo) GetModule(dbc dbctx.Context, id uuid.UUID) (*types.Module, error) {
	return getByID[types.Module](r.conn(dbc), id)
}

func (r *catalogRepo) GetUnit(dbc dbctx.Context, id uuid.UUID) (*types.Unit, error) {
	return getByID[types.Unit](r.conn(dbc), id)
}

func (r *catalogRepo) GetLesson(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	return getByID[types.Lesson](r.conn(dbc), id)
}

func (r *catalogRepo) GetLessonItem(dbc dbctx.Context, id uuid.UUID) (*types.LessonItem, error) {
	return getByID[types.LessonItem](r.conn(dbc), id)
}

func (r *catalogRepo) GetGame(dbc dbctx.Context, id uuid.UUID) (*types.Game, error) {
	return getByID[types.Game](r.conn(dbc), id)
}

func (r *catalogRepo) ListModules(dbc dbctx.Context) ([]*types.Module, error) {
	var out []*types.Module
	if err := r.conn(dbc).Order(siblingOrder).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) ListUnitsByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.Unit, error) {
	var out []*types.Unit
	if moduleID == uuid.Nil {
		return out, nil
	}
	if err := r.conn(dbc).
		Where("module_id = ?", moduleID).
		Order(siblingOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) ListLessonsByUnitIDs(dbc dbctx.Context, unitIDs []uuid.UUID) ([]*types.Lesson, error) {
	var out []*types.Lesson
	if len(unitIDs) == 0 {
		return out, nil
	}
	if err := r.conn(dbc).
		Where("unit_id IN ?", unitIDs).
		Order(siblingOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) ListItemsByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.LessonItem, error) {
	var out []*types.LessonItem
	if len(lessonIDs) == 0 {
		return out, nil
	}
	if err := r.conn(dbc).
		Where("lesson_id IN ?", lessonIDs).
		Order(siblingOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) ListGamesByUnitIDs(dbc dbctx.Context, unitIDs []uuid.UUID) ([]*types.Game, error) {
	var out []*types.Game
	if len(unitIDs) == 0 {
		return out, nil
	}
	if err := r.conn(dbc).
		Where("unit_id IN ?", unitIDs).
		Order(siblingOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
