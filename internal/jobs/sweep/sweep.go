// Package sweep runs the nightly housekeeping pass: trackers whose day has passed are
// closed, runs abandoned on their final attempt are dead-lettered, and the open
// dead-letter count is published.
package sweep

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	progressdom "github.com/yungbote/vaccilearn-backend/internal/domain/progress"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

const DefaultSpec = "15 0 * * *"

type StaleReaper interface {
	DeadLetterStale(ctx context.Context, limit int) (int, error)
}

type Deps struct {
	Log      *logger.Logger
	Trackers repos.TrackerRepo
	Failed   repos.FailedJobRepo
	Reaper   StaleReaper
	Metrics  *observability.Metrics
	Now      func() time.Time
}

type Report struct {
	StreaksClosed   int64
	GoalsClosed     int64
	JobsDeadLetters int
	FailedJobsOpen  int64
}

type Sweeper struct {
	deps Deps
	spec string
}

func New(deps Deps, spec string) *Sweeper {
	deps.Log = deps.Log.With("component", "Sweeper")
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSpec
	}
	return &Sweeper{deps: deps, spec: spec}
}

// Run schedules RunOnce on the cron spec (UTC) until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.deps.Log.Error("sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}
	c.Start()
	s.deps.Log.Info("sweep scheduled", "spec", s.spec)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	var rep Report
	dbc := dbctx.Context{Ctx: ctx}
	today := progressdom.Day(s.deps.Now())

	n, err := s.deps.Trackers.CloseStaleStreaks(dbc, today.AddDate(0, 0, -1))
	if err != nil {
		return rep, fmt.Errorf("close stale streaks: %w", err)
	}
	rep.StreaksClosed = n

	n, err = s.deps.Trackers.CloseStaleDailyGoals(dbc, today)
	if err != nil {
		return rep, fmt.Errorf("close stale daily goals: %w", err)
	}
	rep.GoalsClosed = n

	if s.deps.Reaper != nil {
		dead, err := s.deps.Reaper.DeadLetterStale(ctx, 500)
		rep.JobsDeadLetters = dead
		if err != nil {
			return rep, fmt.Errorf("dead-letter stale jobs: %w", err)
		}
	}

	open, err := s.deps.Failed.CountByStatus(dbc, jobs.FailedStatusFailed)
	if err != nil {
		return rep, fmt.Errorf("count failed jobs: %w", err)
	}
	rep.FailedJobsOpen = open
	s.deps.Metrics.SetFailedJobsOpen(open)

	s.deps.Log.Info("sweep finished",
		"streaks_closed", rep.StreaksClosed,
		"goals_closed", rep.GoalsClosed,
		"jobs_dead_lettered", rep.JobsDeadLetters,
		"failed_jobs_open", rep.FailedJobsOpen,
	)
	return rep, nil
}
