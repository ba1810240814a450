package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	progressmod "github.com/yungbote/vaccilearn-backend/internal/modules/progress"
	rewardsmod "github.com/yungbote/vaccilearn-backend/internal/modules/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type ProgressEngineDeps struct {
	BaseDeps
	Progress progressmod.Usecases
	Rewards  rewardsmod.Usecases
	Ledger   repos.EventLedgerRepo
	Now      func() time.Time
}

type progressEngine struct {
	deps ProgressEngineDeps
}

func NewProgressEngine(deps ProgressEngineDeps) domainagg.ProgressEngine {
	deps.BaseDeps = deps.BaseDeps.withDefaults()
	if deps.Log != nil {
		deps.Log = deps.Log.With("aggregate", "ProgressEngine")
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &progressEngine{deps: deps}
}

// NewProgressEngineFromRepos wires the engine and both modules from a repo set.
func NewProgressEngineFromRepos(base BaseDeps, set repos.Set) domainagg.ProgressEngine {
	return NewProgressEngine(ProgressEngineDeps{
		BaseDeps: base,
		Progress: progressmod.New(progressmod.UsecasesDeps{
			DB:        base.DB,
			Log:       base.Log,
			Catalog:   set.Catalog,
			Hierarchy: set.Hierarchy,
			Trackers:  set.Trackers,
			Ledger:    set.EventLedger,
		}),
		Rewards: rewardsmod.New(rewardsmod.UsecasesDeps{
			DB:        base.DB,
			Log:       base.Log,
			Rules:     set.Rules,
			Grants:    set.Grants,
			Summaries: set.Summaries,
		}),
		Ledger: set.EventLedger,
	})
}

func (e *progressEngine) Contract() domainagg.Contract {
	return domainagg.ProgressEngineContract
}

// eventPlan is what one event hands to the shared reward/projection tail.
type eventPlan struct {
	out    domainagg.Outcome
	rules  []rewardsmod.EvaluateInput
	delta  rewardsmod.SummaryDelta
	baseXP int
}

func (e *progressEngine) ApplyQuestionAnswered(ctx context.Context, in domainagg.QuestionAnsweredInput) (domainagg.Outcome, error) {
	const op = "progress_engine.apply_question_answered"
	if err := requireIDs(op, in.SubmissionID, in.LearnerID, in.LessonItemID); err != nil {
		return domainagg.Outcome{}, err
	}
	if in.XPBase < 0 {
		return domainagg.Outcome{}, domainagg.NewError(domainagg.CodeValidation, op, "xp base must not be negative", nil)
	}
	return e.apply(ctx, op, jobs.KindQuestionSubmission, in.SubmissionID, in.LearnerID, in.JobID, func(dbc dbctx.Context) (eventPlan, error) {
		res, err := e.deps.Progress.ApplyQuestion(dbc, in)
		if err != nil {
			return eventPlan{}, err
		}
		correct := in.IsCorrect
		plan := eventPlan{
			out: domainagg.Outcome{
				IsCorrect: &correct,
				Levels:    []domainagg.LevelOutcome{res.Item, res.Lesson, res.Unit, res.Module},
				Unlocks:   res.Unlocks,
			},
			delta: rewardsmod.SummaryDelta{Question: true, Correct: in.IsCorrect},
		}
		if res.Item.NewlyCompleted {
			plan.baseXP = in.XPBase
		}
		if res.Lesson.FirstCompletion {
			plan.delta.LessonsCompleted = 1
		}
		if res.Unit.NewlyCompleted {
			plan.delta.UnitsCompleted = 1
		}
		if res.Module.NewlyCompleted {
			plan.delta.ModulesCompleted = 1
		}
		plan.rules = levelRules(in.XPBase, res.Lesson, res.Unit, res.Module)
		return plan, nil
	})
}

func (e *progressEngine) ApplyGameCompleted(ctx context.Context, in domainagg.GameCompletedInput) (domainagg.Outcome, error) {
	const op = "progress_engine.apply_game_completed"
	if err := requireIDs(op, in.SubmissionID, in.LearnerID, in.GameID); err != nil {
		return domainagg.Outcome{}, err
	}
	return e.apply(ctx, op, jobs.KindGameCompletion, in.SubmissionID, in.LearnerID, in.JobID, func(dbc dbctx.Context) (eventPlan, error) {
		res, err := e.deps.Progress.ApplyGame(dbc, in)
		if err != nil {
			return eventPlan{}, err
		}
		game := res.Game
		plan := eventPlan{
			out: domainagg.Outcome{
				Levels:  []domainagg.LevelOutcome{res.Unit, res.Module},
				Unlocks: res.Unlocks,
				Game:    &game,
			},
		}
		if game.NewlyCompleted {
			plan.baseXP = res.GameXP
			plan.delta.GamesCompleted = 1
		}
		if res.Unit.NewlyCompleted {
			plan.delta.UnitsCompleted = 1
		}
		if res.Module.NewlyCompleted {
			plan.delta.ModulesCompleted = 1
		}
		plan.rules = levelRules(res.GameXP, res.Unit, res.Module)
		return plan, nil
	})
}

func (e *progressEngine) ApplyStreakTick(ctx context.Context, in domainagg.StreakTickInput) (domainagg.Outcome, error) {
	const op = "progress_engine.apply_streak_tick"
	if err := requireIDs(op, in.SubmissionID, in.LearnerID, in.StreakProgressID); err != nil {
		return domainagg.Outcome{}, err
	}
	return e.apply(ctx, op, jobs.KindStreakProgress, in.SubmissionID, in.LearnerID, in.JobID, func(dbc dbctx.Context) (eventPlan, error) {
		res, err := e.deps.Progress.ApplyStreak(dbc, in)
		if err != nil {
			return eventPlan{}, err
		}
		plan := eventPlan{
			out:   domainagg.Outcome{Streak: &res},
			delta: rewardsmod.SummaryDelta{StreakValue: res.CurrentValue},
		}
		if res.Counted {
			plan.rules = []rewardsmod.EvaluateInput{{
				Context:  rewards.ContextStreak,
				EntityID: res.StreakID,
				Facts:    rewardsmod.StreakFacts{CurrentValue: res.CurrentValue, IsAchieved: true},
				BaseXP:   res.CurrentValue,
			}}
		}
		return plan, nil
	})
}

func (e *progressEngine) ApplyDailyGoalIncrement(ctx context.Context, in domainagg.DailyGoalIncrementInput) (domainagg.Outcome, error) {
	const op = "progress_engine.apply_daily_goal_increment"
	if err := requireIDs(op, in.SubmissionID, in.LearnerID, in.GoalProgressID); err != nil {
		return domainagg.Outcome{}, err
	}
	if in.Delta <= 0 {
		return domainagg.Outcome{}, domainagg.NewError(domainagg.CodeValidation, op, "delta must be positive", nil)
	}
	return e.apply(ctx, op, jobs.KindDailyGoalProgress, in.SubmissionID, in.LearnerID, in.JobID, func(dbc dbctx.Context) (eventPlan, error) {
		res, err := e.deps.Progress.ApplyDailyGoal(dbc, in)
		if err != nil {
			return eventPlan{}, err
		}
		return eventPlan{
			out: domainagg.Outcome{DailyGoal: &res},
			rules: []rewardsmod.EvaluateInput{{
				Context:  rewards.ContextDailyGoal,
				EntityID: res.GoalID,
				Facts:    rewardsmod.GoalFacts{CurrentValue: res.CurrentValue, GoalValue: res.GoalValue, IsAchieved: res.IsAchieved},
				Previous: rewardsmod.GoalFacts{
					CurrentValue: res.CurrentValue - in.Delta,
					GoalValue:    res.GoalValue,
					IsAchieved:   res.IsAchieved && !res.NewlyAchieved,
				},
				BaseXP: res.CurrentValue,
			}},
		}, nil
	})
}

// apply is the shared write path: lock the learner, replay if the submission was already
// applied, otherwise aggregate, reward, project and record the outcome in the ledger.
func (e *progressEngine) apply(
	ctx context.Context,
	op string,
	kind string,
	submissionID uuid.UUID,
	learnerID uuid.UUID,
	jobID *uuid.UUID,
	aggregate func(dbc dbctx.Context) (eventPlan, error),
) (domainagg.Outcome, error) {
	var (
		out   domainagg.Outcome
		fired []rewardsmod.Evaluation
	)
	key := jobs.IdempotencyKey(kind, submissionID)
	log := e.log().With("op", op, "learner_id", learnerID.String(), "submission_id", submissionID.String())

	err := executeWrite(ctx, e.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		out, fired = domainagg.Outcome{}, nil
		if err := e.deps.Locker.Lock(dbc, learnerID); err != nil {
			return err
		}
		applied, err := e.deps.Ledger.GetApplied(dbc, key)
		if err != nil {
			return err
		}
		if applied != nil {
			if err := json.Unmarshal(applied.Result, &out); err != nil {
				return InvariantError("stored outcome for " + key + " is unreadable: " + err.Error())
			}
			out.Replayed = true
			return nil
		}

		plan, err := aggregate(dbc)
		if err != nil {
			return err
		}
		at := e.deps.Now()
		rw, err := e.deps.Rewards.Reward(dbc, learnerID, plan.rules, at)
		if err != nil {
			return err
		}
		fired = rw.Evaluations

		out = plan.out
		out.Kind = kind
		out.SubmissionID = submissionID
		out.LearnerID = learnerID
		out.AppliedAt = at
		out.Rewards = rw.Rewards
		out.Rewards.XP += plan.baseXP

		delta := plan.delta
		delta.XP = out.Rewards.XP
		delta.Badges = rw.NewBadges
		delta.Certificates = rw.NewCertificates
		if _, err := e.deps.Rewards.Project(dbc, learnerID, delta); err != nil {
			return err
		}

		raw, err := json.Marshal(out)
		if err != nil {
			return err
		}
		recorded, err := e.deps.Ledger.RecordApplied(dbc, &types.AppliedEvent{
			IdempotencyKey: key,
			LearnerID:      learnerID,
			Kind:           kind,
			JobID:          jobID,
			Result:         datatypes.JSON(raw),
			AppliedAt:      at,
		})
		if err != nil {
			return err
		}
		if !recorded {
			// another transaction applied the same submission first; the retry replays it
			return ConflictError("submission " + key + " applied concurrently")
		}
		return nil
	})
	if err != nil {
		log.Warn("progress event failed", "error", err)
		return domainagg.Outcome{}, err
	}

	if out.Replayed {
		e.deps.Hooks.IncReplayed(kind)
		log.Debug("progress event replayed from ledger")
		return out, nil
	}
	for _, ev := range fired {
		for range ev.Fired {
			e.deps.Hooks.IncRuleFired(string(ev.Context))
		}
	}
	for range out.Rewards.Badges {
		e.deps.Hooks.IncGrant("badge")
	}
	for range out.Rewards.Certificates {
		e.deps.Hooks.IncGrant("certificate")
	}
	log.Debug("progress event applied", "xp", out.Rewards.XP, "unlocks", len(out.Unlocks))
	return out, nil
}

func (e *progressEngine) log() *logger.Logger {
	if e.deps.Log == nil {
		return logger.Nop()
	}
	return e.deps.Log
}

var levelContexts = map[string]rewards.Context{
	domainagg.LevelLesson: rewards.ContextLesson,
	domainagg.LevelUnit:   rewards.ContextUnit,
	domainagg.LevelModule: rewards.ContextModule,
}

// levelRules builds rule inputs for the levels that completed in this event.
func levelRules(baseXP int, levels ...domainagg.LevelOutcome) []rewardsmod.EvaluateInput {
	var out []rewardsmod.EvaluateInput
	for _, l := range levels {
		ctx, ok := levelContexts[l.Level]
		if !ok || !l.NewlyCompleted {
			continue
		}
		out = append(out, rewardsmod.EvaluateInput{
			Context:  ctx,
			EntityID: l.EntityID,
			Facts: rewardsmod.LevelFacts{
				Context:        ctx,
				IsCompleted:    l.IsCompleted,
				MasteryPercent: l.MasteryPercent,
				XPEarned:       l.XPEarned,
				CompletedCount: l.CompletedCount,
			},
			BaseXP: baseXP,
		})
	}
	return out
}

func requireIDs(op string, ids ...uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return domainagg.NewError(domainagg.CodeValidation, op, "submission, learner and target ids are required", nil)
		}
	}
	return nil
}
