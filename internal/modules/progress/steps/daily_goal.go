package steps

import (
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

// ApplyDailyGoal adds a positive delta to an open daily goal. Achievement is sticky.
func ApplyDailyGoal(dbc dbctx.Context, deps AggregateDeps, in domainagg.DailyGoalIncrementInput) (domainagg.DailyGoalOutcome, error) {
	const op = "progress.ApplyDailyGoal"
	var out domainagg.DailyGoalOutcome
	if in.Delta <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "delta must be positive", nil)
	}
	g, err := deps.Trackers.GetDailyGoal(dbc, in.GoalProgressID)
	if err != nil {
		return out, err
	}
	if g == nil || g.LearnerID != in.LearnerID {
		return out, notFound(op, "daily goal progress", in.GoalProgressID)
	}
	if !g.InProgress {
		return out, domainagg.NewError(domainagg.CodePreconditionFailed, op, "daily goal is closed", nil)
	}
	at := eventTime(in.At)
	g.CurrentValue += in.Delta
	newly := false
	if !g.IsAchieved && g.CurrentValue >= g.GoalValue {
		g.IsAchieved = true
		g.AchievedAt = &at
		newly = true
	}
	if err := deps.Trackers.SaveDailyGoal(dbc, g); err != nil {
		return out, err
	}
	return domainagg.DailyGoalOutcome{
		GoalProgressID: g.ID,
		GoalID:         g.GoalID,
		GoalValue:      g.GoalValue,
		CurrentValue:   g.CurrentValue,
		IsAchieved:     g.IsAchieved,
		NewlyAchieved:  newly,
	}, nil
}
