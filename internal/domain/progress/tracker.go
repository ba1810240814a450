package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StreakProgress is alive only while LastAchievedDate is the day before the next activity.
type StreakProgress struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StreakID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"streak_id"`
	LearnerID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"learner_id"`
	CurrentValue     int        `gorm:"column:current_value;not null;default:0" json:"current_value"`
	IsAchieved       bool       `gorm:"column:is_achieved;not null;default:false" json:"is_achieved"`
	InProgress       bool       `gorm:"column:in_progress;not null;index" json:"in_progress"`
	StartDate        time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	LastAchievedDate *time.Time `gorm:"column:last_achieved_date" json:"last_achieved_date,omitempty"`
	EndDate          *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

func (StreakProgress) TableName() string { return "streak_progress" }

// DailyGoalProgress only ever grows; IsAchieved is sticky.
type DailyGoalProgress struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"goal_id"`
	LearnerID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"learner_id"`
	GoalValue    int        `gorm:"column:goal_value;not null" json:"goal_value"`
	CurrentValue int        `gorm:"column:current_value;not null;default:0" json:"current_value"`
	IsAchieved   bool       `gorm:"column:is_achieved;not null;default:false" json:"is_achieved"`
	InProgress   bool       `gorm:"column:in_progress;not null;index" json:"in_progress"`
	StartDate    time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	EndDate      *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	AchievedAt   *time.Time `gorm:"column:achieved_at" json:"achieved_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (DailyGoalProgress) TableName() string { return "daily_goal_progress" }

// AppliedEvent records that a submission's contribution has been folded into progress.
// A second delivery of the same submission finds this row and skips aggregation.
type AppliedEvent struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IdempotencyKey string         `gorm:"column:idempotency_key;not null;uniqueIndex" json:"idempotency_key"`
	LearnerID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	Kind           string         `gorm:"column:kind;not null" json:"kind"`
	JobID          *uuid.UUID     `gorm:"type:uuid;column:job_id" json:"job_id,omitempty"`
	Result         datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	AppliedAt      time.Time      `gorm:"column:applied_at;not null" json:"applied_at"`
}

func (AppliedEvent) TableName() string { return "applied_event" }

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
