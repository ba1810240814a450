// Package progress holds the per-learner progress rows written by the progress engine.
package progress

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// State is the shared part of every hierarchical progress row.
type State struct {
	CompletedCount   int        `gorm:"column:completed_count;not null;default:0" json:"completed_count"`
	CurrentPointerID *uuid.UUID `gorm:"type:uuid;column:current_pointer_id" json:"current_pointer_id,omitempty"`
	MasteryPercent   float64    `gorm:"column:mastery_percent;not null;default:0" json:"mastery_percent"`
	IsCompleted      bool       `gorm:"column:is_completed;not null;default:false;index" json:"is_completed"`
	XPEarned         int        `gorm:"column:xp_earned;not null;default:0" json:"xp_earned"`
	StartedAt        time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt          *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
}

// Recompute sets MasteryPercent from CompletedCount against the current child total.
// The count is clamped to the total so mastery stays within [0,100].
func (s *State) Recompute(totalChildren int) {
	if totalChildren <= 0 {
		s.MasteryPercent = 0
		return
	}
	if s.CompletedCount > totalChildren {
		s.CompletedCount = totalChildren
	}
	if s.CompletedCount < 0 {
		s.CompletedCount = 0
	}
	if s.CompletedCount == totalChildren {
		s.MasteryPercent = 100
		return
	}
	pct := float64(s.CompletedCount) / float64(totalChildren) * 100
	s.MasteryPercent = math.Round(pct*100) / 100
}

// Complete flips IsCompleted once. It reports whether this call made the transition.
func (s *State) Complete(at time.Time) bool {
	if s.IsCompleted {
		return false
	}
	s.IsCompleted = true
	s.EndedAt = &at
	return true
}

type LessonItemProgress struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonItemID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_item_progress_attempt,priority:1" json:"lesson_item_id"`
	LearnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_item_progress_attempt,priority:2;index" json:"learner_id"`
	AttemptNumber int       `gorm:"column:attempt_number;not null;default:1;uniqueIndex:idx_lesson_item_progress_attempt,priority:3" json:"attempt_number"`
	AnswerCount   int       `gorm:"column:answer_count;not null;default:0" json:"answer_count"`
	CorrectCount  int       `gorm:"column:correct_count;not null;default:0" json:"correct_count"`
	State
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonItemProgress) TableName() string { return "lesson_item_progress" }

type LessonProgress struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_attempt,priority:1" json:"lesson_id"`
	LearnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_attempt,priority:2;index" json:"learner_id"`
	AttemptNumber int       `gorm:"column:attempt_number;not null;default:1;uniqueIndex:idx_lesson_progress_attempt,priority:3" json:"attempt_number"`
	State
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

type UnitProgress struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unit_progress_attempt,priority:1" json:"unit_id"`
	LearnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unit_progress_attempt,priority:2;index" json:"learner_id"`
	AttemptNumber int       `gorm:"column:attempt_number;not null;default:1;uniqueIndex:idx_unit_progress_attempt,priority:3" json:"attempt_number"`
	State
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UnitProgress) TableName() string { return "unit_progress" }

type ModuleProgress struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_attempt,priority:1" json:"module_id"`
	LearnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_attempt,priority:2;index" json:"learner_id"`
	AttemptNumber int       `gorm:"column:attempt_number;not null;default:1;uniqueIndex:idx_module_progress_attempt,priority:3" json:"attempt_number"`
	State
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }

// GameProgress records a learner finishing a unit game.
type GameProgress struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GameID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_game_progress_learner,priority:1" json:"game_id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_game_progress_learner,priority:2;index" json:"learner_id"`
	IsCompleted bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	BestScore   int        `gorm:"column:best_score;not null;default:0" json:"best_score"`
	XPEarned    int        `gorm:"column:xp_earned;not null;default:0" json:"xp_earned"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (GameProgress) TableName() string { return "game_progress" }

// WrongAnswer is an append-only audit row for incorrect submissions.
type WrongAnswer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	LessonItemID  uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_item_id"`
	AttemptNumber int       `gorm:"column:attempt_number;not null" json:"attempt_number"`
	Answer        string    `gorm:"column:answer;type:text" json:"answer"`
	CreatedAt     time.Time `gorm:"not null;index" json:"created_at"`
}

func (WrongAnswer) TableName() string { return "wrong_answer" }
