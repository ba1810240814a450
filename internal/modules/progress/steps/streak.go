package steps

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	progressdom "github.com/yungbote/vaccilearn-backend/internal/domain/progress"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

// ApplyStreak counts one day of activity against a streak record.
//
// Activity on the day after LastAchievedDate extends the streak, the same day (or an
// earlier one) is ignored, and a gap closes the record and starts a new run at 1.
func ApplyStreak(dbc dbctx.Context, deps AggregateDeps, in domainagg.StreakTickInput) (domainagg.StreakOutcome, error) {
	const op = "progress.ApplyStreak"
	var out domainagg.StreakOutcome
	if in.ActivityDate.IsZero() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "activity date is required", nil)
	}
	day := progressdom.Day(in.ActivityDate)

	sp, err := deps.Trackers.GetStreak(dbc, in.StreakProgressID)
	if err != nil {
		return out, err
	}
	if sp == nil || sp.LearnerID != in.LearnerID {
		return out, notFound(op, "streak progress", in.StreakProgressID)
	}
	if !sp.InProgress {
		open, err := deps.Trackers.GetOpenStreak(dbc, sp.StreakID, in.LearnerID)
		if err != nil {
			return out, err
		}
		if open == nil {
			fresh, err := startStreak(dbc, deps, sp.StreakID, in.LearnerID, day)
			if err != nil {
				return out, err
			}
			return streakOutcome(fresh, true, true, nil), nil
		}
		sp = open
	}

	if sp.LastAchievedDate == nil {
		sp.CurrentValue = 1
		sp.LastAchievedDate = &day
		sp.IsAchieved = true
		if err := deps.Trackers.SaveStreak(dbc, sp); err != nil {
			return out, err
		}
		return streakOutcome(sp, true, false, nil), nil
	}

	last := progressdom.Day(*sp.LastAchievedDate)
	gap := int(day.Sub(last) / (24 * time.Hour))
	switch {
	case gap <= 0:
		return streakOutcome(sp, false, false, nil), nil
	case gap == 1:
		sp.CurrentValue++
		sp.LastAchievedDate = &day
		sp.IsAchieved = true
		if err := deps.Trackers.SaveStreak(dbc, sp); err != nil {
			return out, err
		}
		return streakOutcome(sp, true, false, nil), nil
	default:
		sp.InProgress = false
		sp.EndDate = &last
		if err := deps.Trackers.SaveStreak(dbc, sp); err != nil {
			return out, err
		}
		fresh, err := startStreak(dbc, deps, sp.StreakID, in.LearnerID, day)
		if err != nil {
			return out, err
		}
		closed := sp.ID
		return streakOutcome(fresh, true, true, &closed), nil
	}
}

func startStreak(dbc dbctx.Context, deps AggregateDeps, streakID, learnerID uuid.UUID, day time.Time) (*types.StreakProgress, error) {
	fresh := &types.StreakProgress{
		StreakID:         streakID,
		LearnerID:        learnerID,
		CurrentValue:     1,
		IsAchieved:       true,
		InProgress:       true,
		StartDate:        day,
		LastAchievedDate: &day,
	}
	if err := deps.Trackers.SaveStreak(dbc, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func streakOutcome(sp *types.StreakProgress, counted, restarted bool, closedID *uuid.UUID) domainagg.StreakOutcome {
	return domainagg.StreakOutcome{
		StreakProgressID: sp.ID,
		StreakID:         sp.StreakID,
		CurrentValue:     sp.CurrentValue,
		Counted:          counted,
		Restarted:        restarted,
		ClosedID:         closedID,
	}
}
