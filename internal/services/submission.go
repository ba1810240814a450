package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	progressdom "github.com/yungbote/vaccilearn-backend/internal/domain/progress"
	progressmod "github.com/yungbote/vaccilearn-backend/internal/modules/progress"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/vaccilearn-backend/internal/pkg/errors"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

const defaultMaxAttempts = 5

// SubmissionService validates learner events synchronously and enqueues them. Progress
// and rewards are applied later by the workers.
type SubmissionService interface {
	SubmitQuestion(dbc dbctx.Context, learnerID uuid.UUID, in QuestionSubmission) (*QuestionAck, error)
	SubmitStreakTick(dbc dbctx.Context, learnerID uuid.UUID, in StreakTickSubmission) (*Ack, error)
	SubmitDailyGoalIncrement(dbc dbctx.Context, learnerID uuid.UUID, in DailyGoalSubmission) (*Ack, error)
	SubmitGameCompletion(dbc dbctx.Context, learnerID uuid.UUID, in GameSubmission) (*Ack, error)
}

// SubmissionID is optional on every input. A client retrying the same submission
// passes the id it got back and the enqueue collapses onto the first job.
type QuestionSubmission struct {
	SubmissionID uuid.UUID
	LessonItemID uuid.UUID
	Answer       string
}

type StreakTickSubmission struct {
	SubmissionID     uuid.UUID
	StreakProgressID uuid.UUID
	Date             time.Time
}

type DailyGoalSubmission struct {
	SubmissionID   uuid.UUID
	GoalProgressID uuid.UUID
	Value          int
}

type GameSubmission struct {
	SubmissionID uuid.UUID
	GameID       uuid.UUID
	Score        int
}

type Ack struct {
	Accepted     bool      `json:"accepted"`
	Duplicate    bool      `json:"duplicate"`
	SubmissionID uuid.UUID `json:"submissionId"`
	JobID        uuid.UUID `json:"jobId"`
}

type QuestionAck struct {
	Ack
	Correctness     bool       `json:"correctness"`
	NextItemPointer *uuid.UUID `json:"nextItemPointer"`
}

type SubmissionServiceDeps struct {
	Log         *logger.Logger
	Jobs        repos.JobRunRepo
	Catalog     repos.CatalogRepo
	Trackers    repos.TrackerRepo
	Progress    progressmod.Usecases
	Metrics     *observability.Metrics
	MaxAttempts int
	Now         func() time.Time
}

type submissionService struct {
	log         *logger.Logger
	jobs        repos.JobRunRepo
	catalog     repos.CatalogRepo
	trackers    repos.TrackerRepo
	progress    progressmod.Usecases
	metrics     *observability.Metrics
	maxAttempts int
	now         func() time.Time
}

func NewSubmissionService(deps SubmissionServiceDeps) SubmissionService {
	s := &submissionService{
		log:         deps.Log.With("service", "SubmissionService"),
		jobs:        deps.Jobs,
		catalog:     deps.Catalog,
		trackers:    deps.Trackers,
		progress:    deps.Progress,
		metrics:     deps.Metrics,
		maxAttempts: deps.MaxAttempts,
		now:         deps.Now,
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *submissionService) SubmitQuestion(dbc dbctx.Context, learnerID uuid.UUID, in QuestionSubmission) (*QuestionAck, error) {
	if learnerID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if in.LessonItemID == uuid.Nil {
		return nil, apierr.Validation("lessonItemId is required")
	}
	if strings.TrimSpace(in.Answer) == "" {
		return nil, apierr.Validation("answer is required")
	}
	item, err := s.catalog.GetLessonItem(dbc, in.LessonItemID)
	if err != nil {
		return nil, fmt.Errorf("load lesson item: %w", err)
	}
	if item == nil {
		return nil, apierr.NotFound("lesson item")
	}
	correct, err := s.progress.CheckAnswer(item, in.Answer)
	if err != nil {
		return nil, fmt.Errorf("check answer: %w", err)
	}
	next, err := s.followingItem(dbc, item)
	if err != nil {
		return nil, err
	}

	submissionID := mintID(in.SubmissionID)
	job, created, err := s.enqueue(dbc, jobs.KindQuestionSubmission, learnerID, submissionID, jobs.QuestionSubmissionJob{
		SubmissionID: submissionID,
		LearnerID:    learnerID,
		LessonItemID: item.ID,
		Answer:       in.Answer,
		IsCorrect:    correct,
		XPBase:       item.XP,
		SubmittedAt:  s.now(),
		Trace:        traceOf(dbc),
	})
	if err != nil {
		return nil, err
	}
	return &QuestionAck{
		Ack:             ack(job, submissionID, created),
		Correctness:     correct,
		NextItemPointer: next,
	}, nil
}

func (s *submissionService) followingItem(dbc dbctx.Context, item *types.LessonItem) (*uuid.UUID, error) {
	lesson, err := s.catalog.GetLesson(dbc, item.LessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson")
	}
	unit, err := s.catalog.GetUnit(dbc, lesson.UnitID)
	if err != nil {
		return nil, fmt.Errorf("load unit: %w", err)
	}
	if unit == nil {
		return nil, apierr.NotFound("unit")
	}
	snap, err := s.progress.LoadSnapshot(dbc, unit.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}
	if next := snap.FollowingItem(item.ID); next != nil {
		id := next.ID
		return &id, nil
	}
	return nil, nil
}

func (s *submissionService) SubmitStreakTick(dbc dbctx.Context, learnerID uuid.UUID, in StreakTickSubmission) (*Ack, error) {
	if learnerID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if in.StreakProgressID == uuid.Nil {
		return nil, apierr.Validation("streakProgressId is required")
	}
	if in.Date.IsZero() {
		return nil, apierr.Validation("date is required")
	}
	streak, err := s.trackers.GetStreak(dbc, in.StreakProgressID)
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}
	if streak == nil {
		return nil, apierr.NotFound("streak progress")
	}
	if streak.LearnerID != learnerID {
		return nil, apierr.Forbidden("streak progress")
	}

	submissionID := mintID(in.SubmissionID)
	job, created, err := s.enqueue(dbc, jobs.KindStreakProgress, learnerID, submissionID, jobs.StreakProgressJob{
		SubmissionID:     submissionID,
		LearnerID:        learnerID,
		StreakProgressID: streak.ID,
		ActivityDate:     progressdom.Day(in.Date),
		Trace:            traceOf(dbc),
	})
	if err != nil {
		return nil, err
	}
	a := ack(job, submissionID, created)
	return &a, nil
}

func (s *submissionService) SubmitDailyGoalIncrement(dbc dbctx.Context, learnerID uuid.UUID, in DailyGoalSubmission) (*Ack, error) {
	if learnerID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if in.GoalProgressID == uuid.Nil {
		return nil, apierr.Validation("goalProgressId is required")
	}
	if in.Value <= 0 {
		return nil, apierr.Validation("value must be positive, got %d", in.Value)
	}
	goal, err := s.trackers.GetDailyGoal(dbc, in.GoalProgressID)
	if err != nil {
		return nil, fmt.Errorf("load daily goal: %w", err)
	}
	if goal == nil {
		return nil, apierr.NotFound("daily goal progress")
	}
	if goal.LearnerID != learnerID {
		return nil, apierr.Forbidden("daily goal progress")
	}
	if !goal.InProgress {
		return nil, apierr.New(http.StatusUnprocessableEntity, "precondition_failed", fmt.Errorf("daily goal progress is closed"))
	}

	submissionID := mintID(in.SubmissionID)
	job, created, err := s.enqueue(dbc, jobs.KindDailyGoalProgress, learnerID, submissionID, jobs.DailyGoalProgressJob{
		SubmissionID:   submissionID,
		LearnerID:      learnerID,
		GoalProgressID: goal.ID,
		Delta:          in.Value,
		SubmittedAt:    s.now(),
		Trace:          traceOf(dbc),
	})
	if err != nil {
		return nil, err
	}
	a := ack(job, submissionID, created)
	return &a, nil
}

func (s *submissionService) SubmitGameCompletion(dbc dbctx.Context, learnerID uuid.UUID, in GameSubmission) (*Ack, error) {
	if learnerID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if in.GameID == uuid.Nil {
		return nil, apierr.Validation("gameId is required")
	}
	if in.Score < 0 {
		return nil, apierr.Validation("score must not be negative")
	}
	game, err := s.catalog.GetGame(dbc, in.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if game == nil {
		return nil, apierr.NotFound("game")
	}

	submissionID := mintID(in.SubmissionID)
	job, created, err := s.enqueue(dbc, jobs.KindGameCompletion, learnerID, submissionID, jobs.GameCompletionJob{
		SubmissionID: submissionID,
		LearnerID:    learnerID,
		GameID:       game.ID,
		Score:        in.Score,
		CompletedAt:  s.now(),
		Trace:        traceOf(dbc),
	})
	if err != nil {
		return nil, err
	}
	a := ack(job, submissionID, created)
	return &a, nil
}

func (s *submissionService) enqueue(dbc dbctx.Context, kind string, learnerID, submissionID uuid.UUID, payload any) (*types.JobRun, bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	job, created, err := s.jobs.Enqueue(dbc, &types.JobRun{
		LearnerID:      learnerID,
		JobType:        kind,
		IdempotencyKey: jobs.IdempotencyKey(kind, submissionID),
		Status:         jobs.StatusQueued,
		MaxAttempts:    s.maxAttempts,
		NextRunAt:      s.now(),
		Payload:        datatypes.JSON(raw),
	})
	if err != nil {
		return nil, false, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	if job.LearnerID != learnerID {
		// a reused submission id from someone else's request
		return nil, false, apierr.Forbidden("submission")
	}
	s.metrics.IncSubmission(kind)
	s.log.Debug("submission enqueued",
		"job_type", kind,
		"job_id", job.ID,
		"submission_id", submissionID,
		"learner_id", learnerID,
		"created", created,
	)
	return job, created, nil
}

func ack(job *types.JobRun, submissionID uuid.UUID, created bool) Ack {
	return Ack{
		Accepted:     true,
		Duplicate:    !created,
		SubmissionID: submissionID,
		JobID:        job.ID,
	}
}

func mintID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func traceOf(dbc dbctx.Context) jobs.Trace {
	td := ctxutil.GetTraceData(dbc.Ctx)
	if td == nil {
		return jobs.Trace{}
	}
	return jobs.Trace{TraceID: td.TraceID, RequestID: td.RequestID}
}
