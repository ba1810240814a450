// Package catalog holds the content hierarchy (module → unit → lesson → item) and games.
// These tables are administered elsewhere; the progress engine only reads them.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Module struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	OrderNo   int       `gorm:"column:order_no;not null;default:0;index" json:"order_no"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Module) TableName() string { return "module" }

type Unit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID  uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	OrderNo   int       `gorm:"column:order_no;not null;default:0;index" json:"order_no"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Unit) TableName() string { return "unit" }

type Lesson struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID    uuid.UUID `gorm:"type:uuid;not null;index" json:"unit_id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	OrderNo   int       `gorm:"column:order_no;not null;default:0;index" json:"order_no"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

const (
	ItemKindSingleChoice   = "single_choice"
	ItemKindMultipleChoice = "multiple_choice"
	ItemKindText           = "text"
)

// LessonItem is a question inside a lesson.
type LessonItem struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Prompt         string         `gorm:"column:prompt;type:text" json:"prompt"`
	Kind           string         `gorm:"column:kind;not null;default:single_choice" json:"kind"`
	CorrectAnswers datatypes.JSON `gorm:"column:correct_answers;type:jsonb" json:"-"`
	XP             int            `gorm:"column:xp;not null;default:0" json:"xp"`
	OrderNo        int            `gorm:"column:order_no;not null;default:0;index" json:"order_no"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (LessonItem) TableName() string { return "lesson_item" }

// Game is a unit-level activity; when a unit has games, every one must be completed
// before the unit counts as completed.
type Game struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID    uuid.UUID `gorm:"type:uuid;not null;index" json:"unit_id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	XP        int       `gorm:"column:xp;not null;default:0" json:"xp"`
	OrderNo   int       `gorm:"column:order_no;not null;default:0" json:"order_no"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Game) TableName() string { return "game" }
