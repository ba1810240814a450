package rewards

import (
	"time"

	"github.com/google/uuid"
)

// BadgeGrant is append-only; (learner_id, badge_id) is unique.
type BadgeGrant struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_badge_grant_learner,priority:1" json:"learner_id"`
	BadgeID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_badge_grant_learner,priority:2" json:"badge_id"`
	RuleID      *uuid.UUID `gorm:"type:uuid;column:rule_id" json:"rule_id,omitempty"`
	DateAwarded time.Time  `gorm:"column:date_awarded;not null" json:"date_awarded"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
}

func (BadgeGrant) TableName() string { return "badge_grant" }

// CertificateGrant is append-only; (learner_id, certificate_id) is unique.
type CertificateGrant struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_grant_learner,priority:1" json:"learner_id"`
	CertificateID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_grant_learner,priority:2" json:"certificate_id"`
	RuleID        *uuid.UUID `gorm:"type:uuid;column:rule_id" json:"rule_id,omitempty"`
	DateAwarded   time.Time  `gorm:"column:date_awarded;not null" json:"date_awarded"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
}

func (CertificateGrant) TableName() string { return "certificate_grant" }

// LearnerSummary is the denormalized per-learner projection.
type LearnerSummary struct {
	LearnerID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"learner_id"`
	TotalXP           int64     `gorm:"column:total_xp;not null;default:0" json:"total_xp"`
	BadgesCount       int       `gorm:"column:badges_count;not null;default:0" json:"badges_count"`
	CertificatesCount int       `gorm:"column:certificates_count;not null;default:0" json:"certificates_count"`
	ModulesCompleted  int       `gorm:"column:modules_completed;not null;default:0" json:"modules_completed"`
	UnitsCompleted    int       `gorm:"column:units_completed;not null;default:0" json:"units_completed"`
	LessonsCompleted  int       `gorm:"column:lessons_completed;not null;default:0" json:"lessons_completed"`
	GamesCompleted    int       `gorm:"column:games_completed;not null;default:0" json:"games_completed"`
	QuestionsAnswered int       `gorm:"column:questions_answered;not null;default:0" json:"questions_answered"`
	QuestionsCorrect  int       `gorm:"column:questions_correct;not null;default:0" json:"questions_correct"`
	Accuracy          float64   `gorm:"column:accuracy;not null;default:0" json:"accuracy"`
	LongestStreak     int       `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (LearnerSummary) TableName() string { return "learner_summary" }
