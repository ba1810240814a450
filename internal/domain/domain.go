package domain

import (
	"github.com/yungbote/vaccilearn-backend/internal/domain/catalog"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/domain/progress"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
)

type Module = catalog.Module
type Unit = catalog.Unit
type Lesson = catalog.Lesson
type LessonItem = catalog.LessonItem
type Game = catalog.Game

type ProgressState = progress.State
type LessonItemProgress = progress.LessonItemProgress
type LessonProgress = progress.LessonProgress
type UnitProgress = progress.UnitProgress
type ModuleProgress = progress.ModuleProgress
type GameProgress = progress.GameProgress
type StreakProgress = progress.StreakProgress
type DailyGoalProgress = progress.DailyGoalProgress
type WrongAnswer = progress.WrongAnswer
type AppliedEvent = progress.AppliedEvent

type RewardRule = rewards.RewardRule
type BadgeGrant = rewards.BadgeGrant
type CertificateGrant = rewards.CertificateGrant
type LearnerSummary = rewards.LearnerSummary

type JobRun = jobs.JobRun
type FailedJob = jobs.FailedJob

// Models lists every table owned by this service, in migration order.
func Models() []any {
	return []any{
		&catalog.Module{},
		&catalog.Unit{},
		&catalog.Lesson{},
		&catalog.LessonItem{},
		&catalog.Game{},
		&progress.LessonItemProgress{},
		&progress.LessonProgress{},
		&progress.UnitProgress{},
		&progress.ModuleProgress{},
		&progress.GameProgress{},
		&progress.StreakProgress{},
		&progress.DailyGoalProgress{},
		&progress.WrongAnswer{},
		&progress.AppliedEvent{},
		&rewards.RewardRule{},
		&rewards.BadgeGrant{},
		&rewards.CertificateGrant{},
		&rewards.LearnerSummary{},
		&jobs.JobRun{},
		&jobs.FailedJob{},
	}
}
