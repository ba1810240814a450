package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ProgressEngineContract = Contract{
	Name:             "Progress.ProgressEngine",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns progress hierarchy, streak and daily-goal trackers, reward grants and the learner " +
		"summary in one learner-locked write boundary.",
}

// ProgressEngine applies one learner event atomically: aggregate, evaluate rules, grant, project.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodePreconditionFailed, CodeConflict, CodeRetryable, CodeInternal.
type ProgressEngine interface {
	Aggregate

	ApplyQuestionAnswered(ctx context.Context, in QuestionAnsweredInput) (Outcome, error)
	ApplyGameCompleted(ctx context.Context, in GameCompletedInput) (Outcome, error)
	ApplyStreakTick(ctx context.Context, in StreakTickInput) (Outcome, error)
	ApplyDailyGoalIncrement(ctx context.Context, in DailyGoalIncrementInput) (Outcome, error)
}

type QuestionAnsweredInput struct {
	SubmissionID uuid.UUID
	JobID        *uuid.UUID
	LearnerID    uuid.UUID
	LessonItemID uuid.UUID
	Answer       string
	IsCorrect    bool
	XPBase       int
	At           time.Time
}

type GameCompletedInput struct {
	SubmissionID uuid.UUID
	JobID        *uuid.UUID
	LearnerID    uuid.UUID
	GameID       uuid.UUID
	Score        int
	At           time.Time
}

type StreakTickInput struct {
	SubmissionID     uuid.UUID
	JobID            *uuid.UUID
	LearnerID        uuid.UUID
	StreakProgressID uuid.UUID
	ActivityDate     time.Time
}

type DailyGoalIncrementInput struct {
	SubmissionID   uuid.UUID
	JobID          *uuid.UUID
	LearnerID      uuid.UUID
	GoalProgressID uuid.UUID
	Delta          int
	At             time.Time
}

const (
	LevelLessonItem = "lesson_item"
	LevelLesson     = "lesson"
	LevelUnit       = "unit"
	LevelModule     = "module"
)

// LevelOutcome is the post-event state of one hierarchical progress record.
type LevelOutcome struct {
	Level            string     `json:"level"`
	EntityID         uuid.UUID  `json:"entity_id"`
	ProgressID       uuid.UUID  `json:"progress_id"`
	AttemptNumber    int        `json:"attempt_number"`
	CompletedCount   int        `json:"completed_count"`
	TotalChildren    int        `json:"total_children"`
	MasteryPercent   float64    `json:"mastery_percent"`
	IsCompleted      bool       `json:"is_completed"`
	NewlyCompleted   bool       `json:"newly_completed"`
	FirstCompletion  bool       `json:"first_completion"`
	XPEarned         int        `json:"xp_earned"`
	CurrentPointerID *uuid.UUID `json:"current_pointer_id,omitempty"`
}

// Unlock names a progress record created because its previous sibling completed.
type Unlock struct {
	Level      string    `json:"level"`
	EntityID   uuid.UUID `json:"entity_id"`
	ProgressID uuid.UUID `json:"progress_id"`
}

type StreakOutcome struct {
	StreakProgressID uuid.UUID  `json:"streak_progress_id"`
	StreakID         uuid.UUID  `json:"streak_id"`
	CurrentValue     int        `json:"current_value"`
	Counted          bool       `json:"counted"`
	Restarted        bool       `json:"restarted"`
	ClosedID         *uuid.UUID `json:"closed_id,omitempty"`
}

type DailyGoalOutcome struct {
	GoalProgressID uuid.UUID `json:"goal_progress_id"`
	GoalID         uuid.UUID `json:"goal_id"`
	GoalValue      int       `json:"goal_value"`
	CurrentValue   int       `json:"current_value"`
	IsAchieved     bool      `json:"is_achieved"`
	NewlyAchieved  bool      `json:"newly_achieved"`
}

type GameOutcome struct {
	GameID         uuid.UUID `json:"game_id"`
	GameProgressID uuid.UUID `json:"game_progress_id"`
	BestScore      int       `json:"best_score"`
	NewlyCompleted bool      `json:"newly_completed"`
}

// Rewards is the sum of everything granted by one event.
type Rewards struct {
	XP           int         `json:"xp"`
	Badges       []uuid.UUID `json:"badges"`
	Certificates []uuid.UUID `json:"certificates"`
}

// Outcome is what an engine write produced. It is persisted in the applied-event ledger
// and replayed verbatim when the same submission is delivered twice.
type Outcome struct {
	Kind         string            `json:"kind"`
	SubmissionID uuid.UUID         `json:"submission_id"`
	LearnerID    uuid.UUID         `json:"learner_id"`
	IsCorrect    *bool             `json:"is_correct,omitempty"`
	Levels       []LevelOutcome    `json:"levels,omitempty"`
	Unlocks      []Unlock          `json:"unlocks,omitempty"`
	Streak       *StreakOutcome    `json:"streak,omitempty"`
	DailyGoal    *DailyGoalOutcome `json:"daily_goal,omitempty"`
	Game         *GameOutcome      `json:"game,omitempty"`
	Rewards      Rewards           `json:"rewards"`
	AppliedAt    time.Time         `json:"applied_at"`
	Replayed     bool              `json:"-"`
}

// Level returns the outcome for the given level, if the event touched it.
func (o Outcome) Level(level string) (LevelOutcome, bool) {
	for _, l := range o.Levels {
		if l.Level == level {
			return l, true
		}
	}
	return LevelOutcome{}, false
}
