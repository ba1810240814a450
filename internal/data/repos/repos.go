package repos

import (
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/catalog"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/progress"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type CatalogRepo = catalog.CatalogRepo

type HierarchyRepo = progress.HierarchyRepo
type TrackerRepo = progress.TrackerRepo
type EventLedgerRepo = progress.EventLedgerRepo

type RewardRuleRepo = rewards.RewardRuleRepo
type GrantRepo = rewards.GrantRepo
type LearnerSummaryRepo = rewards.LearnerSummaryRepo

type JobRunRepo = jobs.JobRunRepo
type FailedJobRepo = jobs.FailedJobRepo

// Set bundles every repo so app wiring and tests build them in one place.
type Set struct {
	Catalog     CatalogRepo
	Hierarchy   HierarchyRepo
	Trackers    TrackerRepo
	EventLedger EventLedgerRepo
	Rules       RewardRuleRepo
	Grants      GrantRepo
	Summaries   LearnerSummaryRepo
	JobRuns     JobRunRepo
	FailedJobs  FailedJobRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Catalog:     catalog.NewCatalogRepo(db, log),
		Hierarchy:   progress.NewHierarchyRepo(db, log),
		Trackers:    progress.NewTrackerRepo(db, log),
		EventLedger: progress.NewEventLedgerRepo(db, log),
		Rules:       rewards.NewRewardRuleRepo(db, log),
		Grants:      rewards.NewGrantRepo(db, log),
		Summaries:   rewards.NewLearnerSummaryRepo(db, log),
		JobRuns:     jobs.NewJobRunRepo(db, log),
		FailedJobs:  jobs.NewFailedJobRepo(db, log),
	}
}
