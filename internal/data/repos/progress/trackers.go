package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// TrackerRepo stores streak, daily-goal and game progress.
type TrackerRepo interface {
	GetStreak(dbc dbctx.Context, id uuid.UUID) (*types.StreakProgress, error)
	GetOpenStreak(dbc dbctx.Context, streakID, learnerID uuid.UUID) (*types.StreakProgress, error)
	SaveStreak(dbc dbctx.Context, row *types.StreakProgress) error
	// CloseStaleStreaks closes open streaks whose last achieved day is before cutoff.
	CloseStaleStreaks(dbc dbctx.Context, cutoff time.Time) (int64, error)

	GetDailyGoal(dbc dbctx.Context, id uuid.UUID) (*types.DailyGoalProgress, error)
	SaveDailyGoal(dbc dbctx.Context, row *types.DailyGoalProgress) error
	// CloseStaleDailyGoals closes open daily goals that started before dayStart.
	CloseStaleDailyGoals(dbc dbctx.Context, dayStart time.Time) (int64, error)

	GetGameProgress(dbc dbctx.Context, gameID, learnerID uuid.UUID) (*types.GameProgress, error)
	SaveGameProgress(dbc dbctx.Context, row *types.GameProgress) error
	CountCompletedGames(dbc dbctx.Context, learnerID uuid.UUID, gameIDs []uuid.UUID) (int, error)
}

type trackerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackerRepo(db *gorm.DB, baseLog *logger.Logger) TrackerRepo {
	return &trackerRepo{
		db:  db,
		log: baseLog.With("repo", "TrackerRepo"),
	}
}

func (r *trackerRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func first[T any](q *gorm.DB) (*T, error) {
	var rows []*T
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *trackerRepo) GetStreak(dbc dbctx.Context, id uuid.UUID) (*types.StreakProgress, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return first[types.StreakProgress](r.conn(dbc).Where("id = ?", id))
}

func (r *trackerRepo) GetOpenStreak(dbc dbctx.Context, streakID, learnerID uuid.UUID) (*types.StreakProgress, error) {
	return first[types.StreakProgress](r.conn(dbc).
		Where("streak_id = ? AND learner_id = ? AND in_progress = ?", streakID, learnerID, true).
		Order("start_date DESC"))
}

func (r *trackerRepo) SaveStreak(dbc dbctx.Context, row *types.StreakProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *trackerRepo) CloseStaleStreaks(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.conn(dbc).
		Model(&types.StreakProgress{}).
		Where("in_progress = ? AND last_achieved_date IS NOT NULL AND last_achieved_date < ?", true, cutoff).
		Updates(map[string]interface{}{
			"in_progress": false,
			"end_date":    gorm.Expr("last_achieved_date"),
			"updated_at":  time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *trackerRepo) GetDailyGoal(dbc dbctx.Context, id uuid.UUID) (*types.DailyGoalProgress, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return first[types.DailyGoalProgress](r.conn(dbc).Where("id = ?", id))
}

func (r *trackerRepo) SaveDailyGoal(dbc dbctx.Context, row *types.DailyGoalProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *trackerRepo) CloseStaleDailyGoals(dbc dbctx.Context, dayStart time.Time) (int64, error) {
	now := time.Now().UTC()
	res := r.conn(dbc).
		Model(&types.DailyGoalProgress{}).
		Where("in_progress = ? AND start_date < ?", true, dayStart).
		Updates(map[string]interface{}{
			"in_progress": false,
			"end_date":    now,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}

func (r *trackerRepo) GetGameProgress(dbc dbctx.Context, gameID, learnerID uuid.UUID) (*types.GameProgress, error) {
	if gameID == uuid.Nil || learnerID == uuid.Nil {
		return nil, nil
	}
	return first[types.GameProgress](r.conn(dbc).Where("game_id = ? AND learner_id = ?", gameID, learnerID))
}

func (r *trackerRepo) SaveGameProgress(dbc dbctx.Context, row *types.GameProgress) error {
	return save(r.conn(dbc), row, &row.ID)
}

func (r *trackerRepo) CountCompletedGames(dbc dbctx.Context, learnerID uuid.UUID, gameIDs []uuid.UUID) (int, error) {
	if len(gameIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.conn(dbc).
		Model(&types.GameProgress{}).
		Where("learner_id = ? AND game_id IN ? AND is_completed = ?", learnerID, gameIDs, true).
		Count(&count).Error
	return int(count), err
}
