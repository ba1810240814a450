package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/modules/progress/steps"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Catalog   repos.CatalogRepo
	Hierarchy repos.HierarchyRepo
	Trackers  repos.TrackerRepo
	Ledger    repos.EventLedgerRepo
}

// Usecases aggregates learner events into progress rows. Every method writes through the
// caller's transaction; none of them commit.
type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	QuestionResult = steps.QuestionResult
	GameResult     = steps.GameResult
	Snapshot       = steps.Snapshot
)

func (u Usecases) stepDeps() steps.AggregateDeps {
	return steps.AggregateDeps{
		Log:       u.deps.Log,
		Catalog:   u.deps.Catalog,
		Hierarchy: u.deps.Hierarchy,
		Trackers:  u.deps.Trackers,
		Ledger:    u.deps.Ledger,
	}
}

func (u Usecases) ApplyQuestion(dbc dbctx.Context, in domainagg.QuestionAnsweredInput) (QuestionResult, error) {
	return steps.ApplyQuestion(dbc, u.stepDeps(), in)
}

func (u Usecases) ApplyGame(dbc dbctx.Context, in domainagg.GameCompletedInput) (GameResult, error) {
	return steps.ApplyGame(dbc, u.stepDeps(), in)
}

func (u Usecases) ApplyStreak(dbc dbctx.Context, in domainagg.StreakTickInput) (domainagg.StreakOutcome, error) {
	return steps.ApplyStreak(dbc, u.stepDeps(), in)
}

func (u Usecases) ApplyDailyGoal(dbc dbctx.Context, in domainagg.DailyGoalIncrementInput) (domainagg.DailyGoalOutcome, error) {
	return steps.ApplyDailyGoal(dbc, u.stepDeps(), in)
}

// CheckAnswer grades an answer against the item's accepted answers.
func (u Usecases) CheckAnswer(item *types.LessonItem, answer string) (bool, error) {
	return steps.CheckAnswer(item, answer)
}

// LoadSnapshot reads the ordered module tree containing moduleID.
func (u Usecases) LoadSnapshot(dbc dbctx.Context, moduleID uuid.UUID) (*Snapshot, error) {
	return steps.LoadSnapshot(dbc, u.deps.Catalog, moduleID)
}
