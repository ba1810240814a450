package steps

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
)

func i64(v int64) *int64 { return &v }
func intp(v int) *int    { return &v }

func rule(ctx rewards.Context, field string, op rewards.Operator) *types.RewardRule {
	return &types.RewardRule{ID: uuid.New(), Context: ctx, ConditionField: field, Operator: op, IsActive: true}
}

func TestCompiledRule_PercentFloors(t *testing.T) {
	r := rule(rewards.ContextLesson, rewards.FieldIsCompleted, rewards.OpEqual)
	r.ThresholdValue = i64(1)
	r.XPPercent = intp(50)
	c, err := CompileRule(r)
	require.NoError(t, err)
	require.Equal(t, 4, c.XP(9))
	require.Equal(t, 0, c.XP(1))

	r.XPPercent = nil
	r.XPValue = intp(15)
	c, err = CompileRule(r)
	require.NoError(t, err)
	require.Equal(t, 15, c.XP(9))
}

func TestCompiledRule_BooleanCoercion(t *testing.T) {
	r := rule(rewards.ContextUnit, rewards.FieldIsCompleted, rewards.OpEqual)
	r.ThresholdValue = i64(1)
	c, err := CompileRule(r)
	require.NoError(t, err)

	require.True(t, c.Fires(LevelFacts{Context: rewards.ContextUnit, IsCompleted: true}))
	require.False(t, c.Fires(LevelFacts{Context: rewards.ContextUnit}))
	// wrong fact shape never fires
	require.False(t, c.Fires(StreakFacts{CurrentValue: 1, IsAchieved: true}))
}

func TestCompiledRule_Operators(t *testing.T) {
	between := rule(rewards.ContextStreak, rewards.FieldCurrentStreakValue, rewards.OpBetween)
	between.ThresholdMin, between.ThresholdMax = i64(3), i64(5)
	c, err := CompileRule(between)
	require.NoError(t, err)
	for v, want := range map[int]bool{2: false, 3: true, 4: true, 5: true, 6: false} {
		require.Equal(t, want, c.Fires(StreakFacts{CurrentValue: v}), "streak %d", v)
	}

	gte := rule(rewards.ContextDailyGoal, rewards.FieldCurrentGoalValue, rewards.OpGTE)
	gte.ThresholdValue = i64(30)
	c, err = CompileRule(gte)
	require.NoError(t, err)
	require.True(t, c.Fires(GoalFacts{CurrentValue: 30, GoalValue: 30}))
	require.False(t, c.Fires(GoalFacts{CurrentValue: 29, GoalValue: 30}))

	lte := rule(rewards.ContextModule, rewards.FieldMasteryLevel, rewards.OpLTE)
	lte.ThresholdValue = i64(50)
	c, err = CompileRule(lte)
	require.NoError(t, err)
	require.True(t, c.Fires(LevelFacts{Context: rewards.ContextModule, MasteryPercent: 50.99}))
	require.False(t, c.Fires(LevelFacts{Context: rewards.ContextModule, MasteryPercent: 51}))
}

func TestCompileRule_Rejects(t *testing.T) {
	badField := rule(rewards.ContextStreak, rewards.FieldMasteryLevel, rewards.OpEqual)
	badField.ThresholdValue = i64(1)

	noThreshold := rule(rewards.ContextLesson, rewards.FieldXPEarned, rewards.OpGTE)

	emptyRange := rule(rewards.ContextLesson, rewards.FieldXPEarned, rewards.OpBetween)
	emptyRange.ThresholdMin, emptyRange.ThresholdMax = i64(5), i64(1)

	bothXP := rule(rewards.ContextLesson, rewards.FieldXPEarned, rewards.OpGTE)
	bothXP.ThresholdValue = i64(1)
	bothXP.XPValue, bothXP.XPPercent = intp(1), intp(1)

	unknownOp := rule(rewards.ContextLesson, rewards.FieldXPEarned, rewards.Operator("!="))
	unknownOp.ThresholdValue = i64(1)

	basePercent := rule(rewards.ContextLesson, rewards.FieldIsCompleted, rewards.OpEqual)
	basePercent.ThresholdValue = i64(1)
	basePercent.RuleKind = rewards.RuleKindBase
	basePercent.XPPercent = intp(50)

	unknownKind := rule(rewards.ContextLesson, rewards.FieldIsCompleted, rewards.OpEqual)
	unknownKind.ThresholdValue = i64(1)
	unknownKind.RuleKind = rewards.RuleKind("EXTRA")

	for name, r := range map[string]*types.RewardRule{
		"field":     badField,
		"threshold": noThreshold,
		"range":     emptyRange,
		"xp":        bothXP,
		"operator":  unknownOp,
		"base xp":   basePercent,
		"kind":      unknownKind,
	} {
		_, err := CompileRule(r)
		require.Error(t, err, name)
	}

	ok := rule(rewards.ContextLesson, rewards.FieldXPEarned, rewards.OpGTE)
	ok.ThresholdValue = i64(1)
	compiled := CompileRules(nil, []*types.RewardRule{badField, ok, noThreshold})
	require.Len(t, compiled, 1)
	require.Equal(t, ok.ID, compiled[0].Rule.ID)
}

func TestParseRuleSeed(t *testing.T) {
	badge := uuid.New()
	raw := []byte(`
rules:
  - name: lesson done
    context: lesson
    condition_field: isCompleted
    operator: "="
    threshold_value: 1
    xp_percent: 50
    priority: 10
  - name: week streak
    context: STREAK
    condition_field: currentStreakValue
    operator: BETWEEN
    threshold_min: 7
    threshold_max: 13
    badge_id: ` + badge.String() + `
    is_active: false
`)
	rules, err := ParseRuleSeed(raw)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, rewards.ContextLesson, rules[0].Context)
	require.True(t, rules[0].IsActive)
	require.Equal(t, rewards.RuleKindBonus, rules[0].RuleKind)
	require.False(t, rules[1].IsActive)
	require.NotNil(t, rules[1].BadgeID)
	require.Equal(t, badge, *rules[1].BadgeID)

	_, err = ParseRuleSeed([]byte("rules:\n  - context: LESSON\n    condition_field: nope\n    operator: \"=\"\n    threshold_value: 1\n"))
	require.Error(t, err)
}
