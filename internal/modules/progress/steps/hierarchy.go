package steps

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

func levelOutcome(level string, entityID, progressID uuid.UUID, attempt, total int, st types.ProgressState, newly, first bool) domainagg.LevelOutcome {
	return domainagg.LevelOutcome{
		Level:            level,
		EntityID:         entityID,
		ProgressID:       progressID,
		AttemptNumber:    attempt,
		CompletedCount:   st.CompletedCount,
		TotalChildren:    total,
		MasteryPercent:   st.MasteryPercent,
		IsCompleted:      st.IsCompleted,
		NewlyCompleted:   newly,
		FirstCompletion:  first,
		XPEarned:         st.XPEarned,
		CurrentPointerID: st.CurrentPointerID,
	}
}

// settleUnit recomputes mastery and completes the unit when every lesson has been
// completed at least once and every attached game is completed.
func settleUnit(dbc dbctx.Context, deps AggregateDeps, snap *Snapshot, up *types.UnitProgress, at time.Time) (bool, error) {
	lessons := snap.Lessons(up.UnitID)
	up.Recompute(len(lessons))
	if up.IsCompleted {
		return false, nil
	}
	gameIDs := snap.GameIDs(up.UnitID)
	if len(lessons) == 0 && len(gameIDs) == 0 {
		return false, nil
	}
	if up.CompletedCount < len(lessons) {
		return false, nil
	}
	if len(gameIDs) > 0 {
		done, err := deps.Trackers.CountCompletedGames(dbc, up.LearnerID, gameIDs)
		if err != nil {
			return false, err
		}
		if done < len(gameIDs) {
			return false, nil
		}
	}
	return up.Complete(at), nil
}

// advanceModule folds a unit-level change into the module record and performs the
// unit and module unlocks that follow from it.
func advanceModule(dbc dbctx.Context, deps AggregateDeps, snap *Snapshot, unitID, learnerID uuid.UUID, xpDelta int, unitNewly bool, at time.Time) (domainagg.LevelOutcome, []domainagg.Unlock, error) {
	var unlocks []domainagg.Unlock
	mp, err := deps.Hierarchy.LatestModuleProgress(dbc, snap.Module.ID, learnerID)
	if err != nil {
		return domainagg.LevelOutcome{}, nil, err
	}
	if mp == nil {
		mp = &types.ModuleProgress{
			ModuleID:      snap.Module.ID,
			LearnerID:     learnerID,
			AttemptNumber: 1,
			State:         types.ProgressState{StartedAt: at, CurrentPointerID: idPtr(unitID)},
		}
	}
	mp.XPEarned += xpDelta
	var nextUnit *types.Unit
	if unitNewly {
		mp.CompletedCount++
		nextUnit = snap.NextUnit(unitID)
		if nextUnit != nil {
			mp.CurrentPointerID = idPtr(nextUnit.ID)
		} else {
			mp.CurrentPointerID = nil
		}
	}
	mp.Recompute(len(snap.Units))
	moduleNewly := false
	if len(snap.Units) > 0 && mp.CompletedCount >= len(snap.Units) {
		moduleNewly = mp.Complete(at)
	}
	if err := deps.Hierarchy.SaveModuleProgress(dbc, mp); err != nil {
		return domainagg.LevelOutcome{}, nil, err
	}

	if nextUnit != nil {
		u, err := startUnit(dbc, deps, nextUnit.ID, snap.FirstLesson(nextUnit.ID), snap, learnerID, at)
		if err != nil {
			return domainagg.LevelOutcome{}, nil, err
		}
		unlocks = append(unlocks, u...)
	}
	if moduleNewly && snap.NextModule != nil {
		u, err := startModule(dbc, deps, snap.NextModule, learnerID, at)
		if err != nil {
			return domainagg.LevelOutcome{}, nil, err
		}
		unlocks = append(unlocks, u...)
	}
	out := levelOutcome(domainagg.LevelModule, snap.Module.ID, mp.ID, mp.AttemptNumber, len(snap.Units), mp.State, moduleNewly, moduleNewly)
	return out, unlocks, nil
}

// startLesson creates attempt 1 of a lesson pointing at its first item, unless the
// learner already has a record for it.
func startLesson(dbc dbctx.Context, deps AggregateDeps, lesson *types.Lesson, firstItem *types.LessonItem, learnerID uuid.UUID, at time.Time) ([]domainagg.Unlock, error) {
	if lesson == nil {
		return nil, nil
	}
	existing, err := deps.Hierarchy.LatestLessonProgress(dbc, lesson.ID, learnerID)
	if err != nil || existing != nil {
		return nil, err
	}
	lp := &types.LessonProgress{
		LessonID:      lesson.ID,
		LearnerID:     learnerID,
		AttemptNumber: 1,
		State:         types.ProgressState{StartedAt: at},
	}
	if firstItem != nil {
		lp.CurrentPointerID = idPtr(firstItem.ID)
	}
	if err := deps.Hierarchy.SaveLessonProgress(dbc, lp); err != nil {
		return nil, err
	}
	return []domainagg.Unlock{{Level: domainagg.LevelLesson, EntityID: lesson.ID, ProgressID: lp.ID}}, nil
}

// startUnit creates the unit record pointing at its first lesson, and that lesson's record.
// snap may be nil when the unit belongs to another module.
func startUnit(dbc dbctx.Context, deps AggregateDeps, unitID uuid.UUID, firstLesson *types.Lesson, snap *Snapshot, learnerID uuid.UUID, at time.Time) ([]domainagg.Unlock, error) {
	var unlocks []domainagg.Unlock
	existing, err := deps.Hierarchy.LatestUnitProgress(dbc, unitID, learnerID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		up := &types.UnitProgress{
			UnitID:        unitID,
			LearnerID:     learnerID,
			AttemptNumber: 1,
			State:         types.ProgressState{StartedAt: at},
		}
		if firstLesson != nil {
			up.CurrentPointerID = idPtr(firstLesson.ID)
		}
		if err := deps.Hierarchy.SaveUnitProgress(dbc, up); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, domainagg.Unlock{Level: domainagg.LevelUnit, EntityID: unitID, ProgressID: up.ID})
	}
	if firstLesson == nil {
		return unlocks, nil
	}
	var firstItem *types.LessonItem
	if snap != nil {
		firstItem = snap.FirstItem(firstLesson.ID)
	} else {
		items, err := deps.Catalog.ListItemsByLessonIDs(dbc, []uuid.UUID{firstLesson.ID})
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			firstItem = items[0]
		}
	}
	u, err := startLesson(dbc, deps, firstLesson, firstItem, learnerID, at)
	if err != nil {
		return nil, err
	}
	return append(unlocks, u...), nil
}

// startModule opens the next module at its first unit.
func startModule(dbc dbctx.Context, deps AggregateDeps, module *types.Module, learnerID uuid.UUID, at time.Time) ([]domainagg.Unlock, error) {
	var unlocks []domainagg.Unlock
	units, err := deps.Catalog.ListUnitsByModule(dbc, module.ID)
	if err != nil {
		return nil, err
	}
	existing, err := deps.Hierarchy.LatestModuleProgress(dbc, module.ID, learnerID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		mp := &types.ModuleProgress{
			ModuleID:      module.ID,
			LearnerID:     learnerID,
			AttemptNumber: 1,
			State:         types.ProgressState{StartedAt: at},
		}
		if len(units) > 0 {
			mp.CurrentPointerID = idPtr(units[0].ID)
		}
		if err := deps.Hierarchy.SaveModuleProgress(dbc, mp); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, domainagg.Unlock{Level: domainagg.LevelModule, EntityID: module.ID, ProgressID: mp.ID})
	}
	if len(units) == 0 {
		return unlocks, nil
	}
	lessons, err := deps.Catalog.ListLessonsByUnitIDs(dbc, []uuid.UUID{units[0].ID})
	if err != nil {
		return nil, err
	}
	var firstLesson *types.Lesson
	if len(lessons) > 0 {
		firstLesson = lessons[0]
	}
	u, err := startUnit(dbc, deps, units[0].ID, firstLesson, nil, learnerID, at)
	if err != nil {
		return nil, err
	}
	return append(unlocks, u...), nil
}
