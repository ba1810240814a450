package steps

import (
	"math"

	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
)

// Facts is the progress snapshot a rule is evaluated against. The concrete type is fixed
// by the rule context: LevelFacts for LESSON/UNIT/MODULE, StreakFacts, GoalFacts.
type Facts interface {
	factsContext() rewards.Context
}

type LevelFacts struct {
	Context        rewards.Context
	IsCompleted    bool
	MasteryPercent float64
	XPEarned       int
	CompletedCount int
}

func (f LevelFacts) factsContext() rewards.Context { return f.Context }

type StreakFacts struct {
	CurrentValue int
	IsAchieved   bool
}

func (StreakFacts) factsContext() rewards.Context { return rewards.ContextStreak }

type GoalFacts struct {
	CurrentValue int
	GoalValue    int
	IsAchieved   bool
}

func (GoalFacts) factsContext() rewards.Context { return rewards.ContextDailyGoal }

// accessor reads one numeric field; ok is false when facts are of the wrong shape.
type accessor func(Facts) (v int64, ok bool)

func levelField(get func(LevelFacts) int64) accessor {
	return func(f Facts) (int64, bool) {
		lf, ok := f.(LevelFacts)
		if !ok {
			return 0, false
		}
		return get(lf), true
	}
}

func streakField(get func(StreakFacts) int64) accessor {
	return func(f Facts) (int64, bool) {
		sf, ok := f.(StreakFacts)
		if !ok {
			return 0, false
		}
		return get(sf), true
	}
}

func goalField(get func(GoalFacts) int64) accessor {
	return func(f Facts) (int64, bool) {
		gf, ok := f.(GoalFacts)
		if !ok {
			return 0, false
		}
		return get(gf), true
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// resolveField binds a condition field name to an accessor for the given context.
func resolveField(ctx rewards.Context, field string) (accessor, bool) {
	switch ctx {
	case rewards.ContextLesson, rewards.ContextUnit, rewards.ContextModule:
		switch field {
		case rewards.FieldIsCompleted:
			return levelField(func(f LevelFacts) int64 { return boolInt(f.IsCompleted) }), true
		case rewards.FieldMasteryLevel:
			return levelField(func(f LevelFacts) int64 { return int64(math.Floor(f.MasteryPercent)) }), true
		case rewards.FieldXPEarned:
			return levelField(func(f LevelFacts) int64 { return int64(f.XPEarned) }), true
		case rewards.FieldCompletedCount:
			return levelField(func(f LevelFacts) int64 { return int64(f.CompletedCount) }), true
		}
	case rewards.ContextStreak:
		switch field {
		case rewards.FieldCurrentStreakValue:
			return streakField(func(f StreakFacts) int64 { return int64(f.CurrentValue) }), true
		case rewards.FieldIsCompleted:
			return streakField(func(f StreakFacts) int64 { return boolInt(f.IsAchieved) }), true
		}
	case rewards.ContextDailyGoal:
		switch field {
		case rewards.FieldCurrentGoalValue:
			return goalField(func(f GoalFacts) int64 { return int64(f.CurrentValue) }), true
		case rewards.FieldGoalValue:
			return goalField(func(f GoalFacts) int64 { return int64(f.GoalValue) }), true
		case rewards.FieldIsCompleted:
			return goalField(func(f GoalFacts) int64 { return boolInt(f.IsAchieved) }), true
		}
	}
	return nil, false
}
