package game_completion

import (
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	var in jobs.GameCompletionJob
	if err := jc.Decode(&in); err != nil {
		return err
	}
	out, err := p.engine.ApplyGameCompleted(jc.Ctx, domainagg.GameCompletedInput{
		SubmissionID: in.SubmissionID,
		JobID:        jc.JobID(),
		LearnerID:    in.LearnerID,
		GameID:       in.GameID,
		Score:        in.Score,
		At:           in.CompletedAt,
	})
	if err != nil {
		return err
	}
	jc.SetResult(out)
	p.notify.NotifyOutcome(jc.Ctx, out)
	return nil
}
