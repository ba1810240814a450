package steps

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

func setup(t *testing.T) (*gorm.DB, dbctx.Context, repos.Set) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	return tx, dbctx.Context{Ctx: context.Background(), Tx: tx}, repos.NewSet(db, testutil.Logger(t))
}

func TestAwardBadge_Idempotent(t *testing.T) {
	_, dbc, set := setup(t)
	deps := GrantDeps{Grants: set.Grants}
	learner, badge := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	granted, err := AwardBadge(dbc, deps, learner, badge, nil, at)
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = AwardBadge(dbc, deps, learner, badge, nil, at.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, granted)

	rows, err := set.Grants.ListBadges(dbc, learner)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	cert := uuid.New()
	granted, err = AwardCertificate(dbc, deps, learner, cert, nil, at)
	require.NoError(t, err)
	require.True(t, granted)
	granted, err = AwardCertificate(dbc, deps, learner, cert, nil, at)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestReward_SumsFiringRulesAndGrantsOnce(t *testing.T) {
	_, dbc, set := setup(t)
	lesson := uuid.New()
	badge := uuid.New()

	global := rule(rewards.ContextLesson, rewards.FieldIsCompleted, rewards.OpEqual)
	global.ThresholdValue = i64(1)
	global.XPPercent = intp(50)
	global.Priority = 1

	scoped := rule(rewards.ContextLesson, rewards.FieldMasteryLevel, rewards.OpGTE)
	scoped.ContextEntityID = &lesson
	scoped.ThresholdValue = i64(100)
	scoped.XPValue = intp(3)
	scoped.BadgeID = &badge
	scoped.Priority = 5

	missed := rule(rewards.ContextLesson, rewards.FieldXPEarned, rewards.OpGTE)
	missed.ThresholdValue = i64(1000)
	missed.XPValue = intp(100)

	otherEntity := uuid.New()
	elsewhere := rule(rewards.ContextLesson, rewards.FieldIsCompleted, rewards.OpEqual)
	elsewhere.ContextEntityID = &otherEntity
	elsewhere.ThresholdValue = i64(1)
	elsewhere.XPValue = intp(100)

	_, err := set.Rules.Create(dbc, []*types.RewardRule{global, scoped, missed, elsewhere})
	require.NoError(t, err)

	deps := RewardDeps{Log: testutil.Logger(t), Rules: set.Rules, Grants: set.Grants}
	learner := uuid.New()
	in := []EvaluateInput{{
		Context:  rewards.ContextLesson,
		EntityID: lesson,
		Facts:    LevelFacts{Context: rewards.ContextLesson, IsCompleted: true, MasteryPercent: 100, XPEarned: 9, CompletedCount: 3},
		BaseXP:   9,
	}}

	res, err := Reward(dbc, deps, learner, in, time.Now())
	require.NoError(t, err)
	require.Equal(t, 7, res.Rewards.XP)
	require.Equal(t, []uuid.UUID{badge}, res.Rewards.Badges)
	require.Equal(t, 1, res.NewBadges)
	require.Equal(t, []uuid.UUID{scoped.ID, global.ID}, res.Evaluations[0].Fired)

	again, err := Reward(dbc, deps, learner, in, time.Now())
	require.NoError(t, err)
	require.Equal(t, 7, again.Rewards.XP)
	require.Empty(t, again.Rewards.Badges)
	require.Zero(t, again.NewBadges)
}

func TestEvaluateRules_PreviousSnapshotSuppressesHeldRules(t *testing.T) {
	_, dbc, set := setup(t)
	done := rule(rewards.ContextDailyGoal, rewards.FieldIsCompleted, rewards.OpEqual)
	done.ThresholdValue = i64(1)
	done.XPValue = intp(50)
	halfway := rule(rewards.ContextDailyGoal, rewards.FieldCurrentGoalValue, rewards.OpGTE)
	halfway.ThresholdValue = i64(15)
	halfway.XPValue = intp(5)
	_, err := set.Rules.Create(dbc, []*types.RewardRule{done, halfway})
	require.NoError(t, err)

	deps := EvaluateDeps{Log: testutil.Logger(t), Rules: set.Rules}
	goal := uuid.New()

	crossing, err := EvaluateRules(dbc, deps, EvaluateInput{
		Context:  rewards.ContextDailyGoal,
		EntityID: goal,
		Facts:    GoalFacts{CurrentValue: 35, GoalValue: 30, IsAchieved: true},
		Previous: GoalFacts{CurrentValue: 25, GoalValue: 30},
		BaseXP:   35,
	})
	require.NoError(t, err)
	require.Equal(t, 50, crossing.XP)
	require.Equal(t, []uuid.UUID{done.ID}, crossing.Fired)

	after, err := EvaluateRules(dbc, deps, EvaluateInput{
		Context:  rewards.ContextDailyGoal,
		EntityID: goal,
		Facts:    GoalFacts{CurrentValue: 40, GoalValue: 30, IsAchieved: true},
		Previous: GoalFacts{CurrentValue: 35, GoalValue: 30, IsAchieved: true},
		BaseXP:   40,
	})
	require.NoError(t, err)
	require.Zero(t, after.XP)
	require.Empty(t, after.Fired)
}

func TestReward_NoRulesIsZero(t *testing.T) {
	_, dbc, set := setup(t)
	deps := RewardDeps{Rules: set.Rules, Grants: set.Grants}
	res, err := Reward(dbc, deps, uuid.New(), []EvaluateInput{{
		Context: rewards.ContextDailyGoal,
		Facts:   GoalFacts{CurrentValue: 5, GoalValue: 10},
		BaseXP:  5,
	}}, time.Now())
	require.NoError(t, err)
	require.Zero(t, res.Rewards.XP)
	require.NotNil(t, res.Rewards.Badges)
}

func TestProjectSummary_Accumulates(t *testing.T) {
	_, dbc, set := setup(t)
	deps := ProjectDeps{Summaries: set.Summaries}
	learner := uuid.New()

	row, err := ProjectSummary(dbc, deps, learner, SummaryDelta{XP: 10, Question: true, Correct: true, LessonsCompleted: 1, StreakValue: 2})
	require.NoError(t, err)
	require.EqualValues(t, 10, row.TotalXP)
	require.Equal(t, 100.0, row.Accuracy)

	row, err = ProjectSummary(dbc, deps, learner, SummaryDelta{Question: true})
	require.NoError(t, err)
	require.Equal(t, 2, row.QuestionsAnswered)
	require.Equal(t, 1, row.QuestionsCorrect)
	require.Equal(t, 50.0, row.Accuracy)

	row, err = ProjectSummary(dbc, deps, learner, SummaryDelta{XP: 5, Question: true, Correct: true, StreakValue: 1})
	require.NoError(t, err)
	require.EqualValues(t, 15, row.TotalXP)
	require.Equal(t, 66.67, row.Accuracy)
	require.Equal(t, 2, row.LongestStreak)
	require.Equal(t, 1, row.LessonsCompleted)

	stored, err := set.Summaries.Get(dbc, learner)
	require.NoError(t, err)
	require.Equal(t, row.QuestionsAnswered, stored.QuestionsAnswered)
}

func TestSeedRules_OnlyWhenEmpty(t *testing.T) {
	_, dbc, set := setup(t)
	deps := SeedDeps{Rules: set.Rules}
	raw := []byte("rules:\n  - context: UNIT\n    condition_field: isCompleted\n    operator: \"=\"\n    threshold_value: 1\n    xp_value: 20\n")

	n, err := SeedRules(dbc, deps, raw)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = SeedRules(dbc, deps, raw)
	require.NoError(t, err)
	require.Zero(t, n)

	active, err := set.Rules.ListActive(dbc, rewards.ContextUnit, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
}
