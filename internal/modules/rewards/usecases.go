package rewards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/modules/rewards/steps"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Rules     repos.RewardRuleRepo
	Grants    repos.GrantRepo
	Summaries repos.LearnerSummaryRepo
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	Facts         = steps.Facts
	LevelFacts    = steps.LevelFacts
	StreakFacts   = steps.StreakFacts
	GoalFacts     = steps.GoalFacts
	EvaluateInput = steps.EvaluateInput
	Evaluation    = steps.Evaluation
	RewardResult  = steps.RewardResult
	SummaryDelta  = steps.SummaryDelta
)

func (u Usecases) Evaluate(dbc dbctx.Context, in EvaluateInput) (Evaluation, error) {
	return steps.EvaluateRules(dbc, steps.EvaluateDeps{Log: u.deps.Log, Rules: u.deps.Rules}, in)
}

func (u Usecases) Reward(dbc dbctx.Context, learnerID uuid.UUID, inputs []EvaluateInput, at time.Time) (RewardResult, error) {
	return steps.Reward(dbc, steps.RewardDeps{Log: u.deps.Log, Rules: u.deps.Rules, Grants: u.deps.Grants}, learnerID, inputs, at)
}

func (u Usecases) AwardBadge(dbc dbctx.Context, learnerID, badgeID uuid.UUID, at time.Time) (bool, error) {
	return steps.AwardBadge(dbc, steps.GrantDeps{Grants: u.deps.Grants}, learnerID, badgeID, nil, at)
}

func (u Usecases) AwardCertificate(dbc dbctx.Context, learnerID, certificateID uuid.UUID, at time.Time) (bool, error) {
	return steps.AwardCertificate(dbc, steps.GrantDeps{Grants: u.deps.Grants}, learnerID, certificateID, nil, at)
}

func (u Usecases) Project(dbc dbctx.Context, learnerID uuid.UUID, d SummaryDelta) (*types.LearnerSummary, error) {
	return steps.ProjectSummary(dbc, steps.ProjectDeps{Summaries: u.deps.Summaries}, learnerID, d)
}

func (u Usecases) SeedRules(dbc dbctx.Context, raw []byte) (int, error) {
	return steps.SeedRules(dbc, steps.SeedDeps{Log: u.deps.Log, Rules: u.deps.Rules}, raw)
}
