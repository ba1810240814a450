package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	FailedStatusPending    = "pending"
	FailedStatusProcessing = "processing"
	FailedStatusFailed     = "failed"
	FailedStatusCompleted  = "completed"
)

// FailedJob is the dead-letter record written once a job exhausts its attempts.
// It is a side record for inspection and manual replay; nothing re-submits from it.
type FailedJob struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobRunID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"job_run_id"`
	QueueName   string         `gorm:"column:queue_name;not null;index" json:"queue_name"`
	LearnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Attempts    int            `gorm:"column:attempts;not null" json:"attempts"`
	MaxAttempts int            `gorm:"column:max_attempts;not null" json:"max_attempts"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	LastError   string         `gorm:"column:last_error" json:"last_error"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	ProcessedAt *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (FailedJob) TableName() string { return "failed_job" }
