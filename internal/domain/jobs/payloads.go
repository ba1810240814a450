package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Trace carries request correlation ids from the producer into worker logs.
type Trace struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type QuestionSubmissionJob struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	LearnerID    uuid.UUID `json:"learner_id"`
	LessonItemID uuid.UUID `json:"lesson_item_id"`
	Answer       string    `json:"answer"`
	IsCorrect    bool      `json:"is_correct"`
	XPBase       int       `json:"xp_base"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Trace        Trace     `json:"trace"`
}

type StreakProgressJob struct {
	SubmissionID     uuid.UUID `json:"submission_id"`
	LearnerID        uuid.UUID `json:"learner_id"`
	StreakProgressID uuid.UUID `json:"streak_progress_id"`
	ActivityDate     time.Time `json:"activity_date"`
	Trace            Trace     `json:"trace"`
}

type DailyGoalProgressJob struct {
	SubmissionID   uuid.UUID `json:"submission_id"`
	LearnerID      uuid.UUID `json:"learner_id"`
	GoalProgressID uuid.UUID `json:"goal_progress_id"`
	Delta          int       `json:"delta"`
	SubmittedAt    time.Time `json:"submitted_at"`
	Trace          Trace     `json:"trace"`
}

type GameCompletionJob struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	LearnerID    uuid.UUID `json:"learner_id"`
	GameID       uuid.UUID `json:"game_id"`
	Score        int       `json:"score"`
	CompletedAt  time.Time `json:"completed_at"`
	Trace        Trace     `json:"trace"`
}

// IdempotencyKey is shared by the job row and the applied-event ledger.
func IdempotencyKey(kind string, submissionID uuid.UUID) string {
	return kind + ":" + submissionID.String()
}
