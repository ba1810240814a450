package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type FailedJobFilter struct {
	Status string
	Queue  string
	Limit  int
	Offset int
}

type FailedJobPage struct {
	Items  []*types.FailedJob `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// FailedJobService is the read side of the dead-letter store. Replay is an
// operator action outside this service.
type FailedJobService interface {
	List(dbc dbctx.Context, f FailedJobFilter) (*FailedJobPage, error)
	OpenCount(dbc dbctx.Context) (int64, error)
}

type failedJobService struct {
	log    *logger.Logger
	failed repos.FailedJobRepo
}

func NewFailedJobService(baseLog *logger.Logger, failed repos.FailedJobRepo) FailedJobService {
	return &failedJobService{log: baseLog.With("service", "FailedJobService"), failed: failed}
}

var failedStatuses = map[string]bool{
	jobs.FailedStatusPending:    true,
	jobs.FailedStatusProcessing: true,
	jobs.FailedStatusFailed:     true,
	jobs.FailedStatusCompleted:  true,
}

var queueNames = map[string]bool{
	jobs.KindQuestionSubmission: true,
	jobs.KindStreakProgress:     true,
	jobs.KindDailyGoalProgress:  true,
	jobs.KindGameCompletion:     true,
}

func (s *failedJobService) List(dbc dbctx.Context, f FailedJobFilter) (*FailedJobPage, error) {
	f.Status = strings.TrimSpace(f.Status)
	f.Queue = strings.TrimSpace(f.Queue)
	if f.Status != "" && !failedStatuses[f.Status] {
		return nil, apierr.Validation("unknown status %q", f.Status)
	}
	if f.Queue != "" && !queueNames[f.Queue] {
		return nil, apierr.Validation("unknown queue %q", f.Queue)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	rows, total, err := s.failed.List(dbc, f.Status, f.Queue, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	if rows == nil {
		rows = []*types.FailedJob{}
	}
	return &FailedJobPage{Items: rows, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *failedJobService) OpenCount(dbc dbctx.Context) (int64, error) {
	return s.failed.CountByStatus(dbc, jobs.FailedStatusFailed)
}
