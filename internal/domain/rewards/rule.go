// Package rewards holds the reward rule table, the grant ledger rows and the per-learner summary.
package rewards

import (
	"time"

	"github.com/google/uuid"
)

type Context string

const (
	ContextLesson    Context = "LESSON"
	ContextUnit      Context = "UNIT"
	ContextModule    Context = "MODULE"
	ContextStreak    Context = "STREAK"
	ContextDailyGoal Context = "DAILY_GOAL"
)

type Operator string

const (
	OpEqual   Operator = "="
	OpGTE     Operator = ">="
	OpLTE     Operator = "<="
	OpBetween Operator = "BETWEEN"
)

// RuleKind labels a rule's payout. BASE rules are the fixed award for reaching a
// milestone and must use XPValue. BONUS rules may scale with the event's base XP
// through XPPercent. Both add to the event's XP the same way once fired.
type RuleKind string

const (
	RuleKindBase  RuleKind = "BASE"
	RuleKindBonus RuleKind = "BONUS"
)

// Condition fields a rule may test. Which ones are valid depends on the rule's context.
const (
	FieldIsCompleted        = "isCompleted"
	FieldMasteryLevel       = "masteryLevel"
	FieldXPEarned           = "xpEarned"
	FieldCompletedCount     = "completedCount"
	FieldCurrentStreakValue = "currentStreakValue"
	FieldCurrentGoalValue   = "currentGoalValue"
	FieldGoalValue          = "goalValue"
)

// RewardRule is one row of the rule table. ContextEntityID nil means the rule applies to
// every entity of its context. Exactly one of XPValue / XPPercent is expected to be set.
type RewardRule struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id" yaml:"id"`
	Name            string     `gorm:"column:name" json:"name" yaml:"name"`
	Context         Context    `gorm:"column:context;not null;index:idx_reward_rule_ctx,priority:1" json:"context" yaml:"context"`
	ContextEntityID *uuid.UUID `gorm:"type:uuid;column:context_entity_id;index:idx_reward_rule_ctx,priority:2" json:"context_entity_id,omitempty" yaml:"context_entity_id"`
	ConditionField  string     `gorm:"column:condition_field;not null" json:"condition_field" yaml:"condition_field"`
	Operator        Operator   `gorm:"column:operator;not null" json:"operator" yaml:"operator"`
	ThresholdValue  *int64     `gorm:"column:threshold_value" json:"threshold_value,omitempty" yaml:"threshold_value"`
	ThresholdMin    *int64     `gorm:"column:threshold_min" json:"threshold_min,omitempty" yaml:"threshold_min"`
	ThresholdMax    *int64     `gorm:"column:threshold_max" json:"threshold_max,omitempty" yaml:"threshold_max"`
	XPValue         *int       `gorm:"column:xp_value" json:"xp_value,omitempty" yaml:"xp_value"`
	XPPercent       *int       `gorm:"column:xp_percent" json:"xp_percent,omitempty" yaml:"xp_percent"`
	RuleKind        RuleKind   `gorm:"column:rule_kind;not null;default:BONUS" json:"rule_kind" yaml:"rule_kind"`
	BadgeID         *uuid.UUID `gorm:"type:uuid;column:badge_id" json:"badge_id,omitempty" yaml:"badge_id"`
	CertificateID   *uuid.UUID `gorm:"type:uuid;column:certificate_id" json:"certificate_id,omitempty" yaml:"certificate_id"`
	Priority        int        `gorm:"column:priority;not null;default:0" json:"priority" yaml:"priority"`
	IsActive        bool       `gorm:"column:is_active;not null;index" json:"is_active" yaml:"is_active"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at" yaml:"-"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at" yaml:"-"`
}

func (RewardRule) TableName() string { return "reward_rule" }
