package steps

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

type ProjectDeps struct {
	Summaries repos.LearnerSummaryRepo
}

// SummaryDelta is what one event adds to the learner summary. Completion counters must only
// be set for levels that transitioned to completed in that event.
type SummaryDelta struct {
	XP               int
	Badges           int
	Certificates     int
	ModulesCompleted int
	UnitsCompleted   int
	LessonsCompleted int
	GamesCompleted   int
	Question         bool
	Correct          bool
	StreakValue      int
}

// ProjectSummary upserts the learner summary row. The row is read FOR UPDATE so the caller's
// transaction serializes concurrent projections for the same learner.
func ProjectSummary(dbc dbctx.Context, deps ProjectDeps, learnerID uuid.UUID, d SummaryDelta) (*types.LearnerSummary, error) {
	row, err := deps.Summaries.GetForUpdate(dbc, learnerID)
	if err != nil {
		return nil, err
	}
	create := row == nil
	if create {
		row = &types.LearnerSummary{LearnerID: learnerID}
	}
	applyDelta(row, d)
	if create {
		now := time.Now().UTC()
		row.CreatedAt, row.UpdatedAt = now, now
		if err := deps.Summaries.Create(dbc, row); err != nil {
			return nil, err
		}
		return row, nil
	}
	if err := deps.Summaries.Save(dbc, row); err != nil {
		return nil, err
	}
	return row, nil
}

func applyDelta(row *types.LearnerSummary, d SummaryDelta) {
	row.TotalXP += int64(d.XP)
	row.BadgesCount += d.Badges
	row.CertificatesCount += d.Certificates
	row.ModulesCompleted += d.ModulesCompleted
	row.UnitsCompleted += d.UnitsCompleted
	row.LessonsCompleted += d.LessonsCompleted
	row.GamesCompleted += d.GamesCompleted
	if d.Question {
		row.QuestionsAnswered++
		if d.Correct {
			row.QuestionsCorrect++
		}
	}
	if row.QuestionsAnswered > 0 {
		row.Accuracy = math.Round(float64(row.QuestionsCorrect)/float64(row.QuestionsAnswered)*10000) / 100
	}
	if d.StreakValue > row.LongestStreak {
		row.LongestStreak = d.StreakValue
	}
}
