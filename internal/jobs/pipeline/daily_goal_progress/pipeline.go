package daily_goal_progress

import (
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	var in jobs.DailyGoalProgressJob
	if err := jc.Decode(&in); err != nil {
		return err
	}
	out, err := p.engine.ApplyDailyGoalIncrement(jc.Ctx, domainagg.DailyGoalIncrementInput{
		SubmissionID:   in.SubmissionID,
		JobID:          jc.JobID(),
		LearnerID:      in.LearnerID,
		GoalProgressID: in.GoalProgressID,
		Delta:          in.Delta,
		At:             in.SubmittedAt,
	})
	if err != nil {
		return err
	}
	if out.DailyGoal != nil && out.DailyGoal.NewlyAchieved {
		p.log.Info("daily goal achieved", "goal_progress_id", in.GoalProgressID, "learner_id", in.LearnerID)
	}
	jc.SetResult(out)
	p.notify.NotifyOutcome(jc.Ctx, out)
	return nil
}
