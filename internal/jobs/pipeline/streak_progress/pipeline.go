package streak_progress

import (
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	var in jobs.StreakProgressJob
	if err := jc.Decode(&in); err != nil {
		return err
	}
	out, err := p.engine.ApplyStreakTick(jc.Ctx, domainagg.StreakTickInput{
		SubmissionID:     in.SubmissionID,
		JobID:            jc.JobID(),
		LearnerID:        in.LearnerID,
		StreakProgressID: in.StreakProgressID,
		ActivityDate:     in.ActivityDate,
	})
	if err != nil {
		return err
	}
	if out.Streak != nil && !out.Streak.Counted {
		p.log.Debug("streak tick already counted for day", "streak_progress_id", in.StreakProgressID)
	}
	jc.SetResult(out)
	p.notify.NotifyOutcome(jc.Ctx, out)
	return nil
}
