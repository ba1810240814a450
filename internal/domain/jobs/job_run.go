package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusRetrying  = "retrying"
	StatusSucceeded = "succeeded"
	StatusDead      = "dead"
)

// Job kinds. Each kind has its own worker group.
const (
	KindQuestionSubmission = "question_submission"
	KindStreakProgress     = "streak_progress"
	KindDailyGoalProgress  = "daily_goal_progress"
	KindGameCompletion     = "game_completion"
)

// JobRun is the durable queue row. IdempotencyKey makes enqueue of one submission at-most-once.
type JobRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	JobType        string         `gorm:"column:job_type;not null;index:idx_job_run_claim,priority:1" json:"job_type"`
	IdempotencyKey string         `gorm:"column:idempotency_key;not null;uniqueIndex" json:"idempotency_key"`
	Status         string         `gorm:"column:status;not null;index:idx_job_run_claim,priority:2" json:"status"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts    int            `gorm:"column:max_attempts;not null;default:5" json:"max_attempts"`
	NextRunAt      time.Time      `gorm:"column:next_run_at;not null;index:idx_job_run_claim,priority:3" json:"next_run_at"`
	LastError      string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LockedAt       *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt    *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	FinishedAt     *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result         datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

// Terminal reports whether the job will never be claimed again.
func (j *JobRun) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusDead
}
