package question_submission

import (
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/vaccilearn-backend/internal/jobs/runtime"
)

// Run applies the answer, then announces the committed outcome. A redelivered
// submission replays the stored outcome and announces it again.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	var in jobs.QuestionSubmissionJob
	if err := jc.Decode(&in); err != nil {
		return err
	}
	out, err := p.engine.ApplyQuestionAnswered(jc.Ctx, domainagg.QuestionAnsweredInput{
		SubmissionID: in.SubmissionID,
		JobID:        jc.JobID(),
		LearnerID:    in.LearnerID,
		LessonItemID: in.LessonItemID,
		Answer:       in.Answer,
		IsCorrect:    in.IsCorrect,
		XPBase:       in.XPBase,
		At:           in.SubmittedAt,
	})
	if err != nil {
		return err
	}
	jc.SetResult(out)
	p.notify.NotifyOutcome(jc.Ctx, out)
	return nil
}
