package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	"github.com/yungbote/vaccilearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

type fakeReaper struct{ calls, n int }

func (f *fakeReaper) DeadLetterStale(ctx context.Context, limit int) (int, error) {
	f.calls++
	return f.n, nil
}

func TestSweeper_RunOnce(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	now := time.Date(2024, 1, 14, 0, 30, 0, 0, time.UTC)
	learner := uuid.New()

	broken := testutil.SeedStreak(t, db, learner, 4, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	alive := testutil.SeedStreak(t, db, learner, 2, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC))
	yesterdayGoal := testutil.SeedDailyGoal(t, db, learner, 30, 10, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC))
	todayGoal := testutil.SeedDailyGoal(t, db, learner, 30, 0, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC))

	reaper := &fakeReaper{n: 2}
	s := New(Deps{
		Log:      log,
		Trackers: set.Trackers,
		Failed:   set.FailedJobs,
		Reaper:   reaper,
		Metrics:  observability.New(),
		Now:      func() time.Time { return now },
	}, "")

	rep, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if reaper.calls != 1 || rep.JobsDeadLetters != 2 {
		t.Fatalf("reaper: calls=%d report=%+v", reaper.calls, rep)
	}
	if rep.StreaksClosed < 1 || rep.GoalsClosed < 1 {
		t.Fatalf("report: %+v", rep)
	}

	dbc := dbctx.Context{Ctx: context.Background()}
	reload := func(id uuid.UUID) *types.StreakProgress {
		row, err := set.Trackers.GetStreak(dbc, id)
		if err != nil || row == nil {
			t.Fatalf("reload streak: %v", err)
		}
		return row
	}
	if got := reload(broken.ID); got.InProgress || got.EndDate == nil {
		t.Fatalf("gapped streak should be closed: %+v", got)
	}
	if got := reload(alive.ID); !got.InProgress {
		t.Fatalf("streak achieved yesterday must stay open: %+v", got)
	}

	g, _ := set.Trackers.GetDailyGoal(dbc, yesterdayGoal.ID)
	if g.InProgress {
		t.Fatalf("yesterday's goal should be closed")
	}
	g, _ = set.Trackers.GetDailyGoal(dbc, todayGoal.ID)
	if !g.InProgress {
		t.Fatalf("today's goal must stay open")
	}
}

func TestSweeper_RejectsBadSpec(t *testing.T) {
	s := New(Deps{Log: testutil.Logger(t)}, "not a cron spec")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err == nil {
		t.Fatalf("expected schedule error")
	}
}
