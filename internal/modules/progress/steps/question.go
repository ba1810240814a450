package steps

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

// ApplyQuestion folds one graded answer into item, lesson, unit and module progress.
//
// Records are created lazily on first touch. A completed lesson opens a new attempt on
// the next answer; retakes count toward the lesson but never toward the unit.
func ApplyQuestion(dbc dbctx.Context, deps AggregateDeps, in domainagg.QuestionAnsweredInput) (QuestionResult, error) {
	const op = "progress.ApplyQuestion"
	var res QuestionResult
	at := eventTime(in.At)

	item, err := deps.Catalog.GetLessonItem(dbc, in.LessonItemID)
	if err != nil {
		return res, err
	}
	if item == nil {
		return res, notFound(op, "lesson item", in.LessonItemID)
	}
	lesson, err := deps.Catalog.GetLesson(dbc, item.LessonID)
	if err != nil {
		return res, err
	}
	if lesson == nil {
		return res, notFound(op, "lesson", item.LessonID)
	}
	unit, err := deps.Catalog.GetUnit(dbc, lesson.UnitID)
	if err != nil {
		return res, err
	}
	if unit == nil {
		return res, notFound(op, "unit", lesson.UnitID)
	}
	snap, err := LoadSnapshot(dbc, deps.Catalog, unit.ModuleID)
	if err != nil {
		return res, err
	}
	if snap == nil {
		return res, notFound(op, "module", unit.ModuleID)
	}

	lp, err := deps.Hierarchy.LatestLessonProgress(dbc, lesson.ID, in.LearnerID)
	if err != nil {
		return res, err
	}
	switch {
	case lp == nil:
		lp = newLessonAttempt(lesson.ID, in.LearnerID, 1, at)
	case lp.IsCompleted:
		lp = newLessonAttempt(lesson.ID, in.LearnerID, lp.AttemptNumber+1, at)
	}

	// item
	ip, err := deps.Hierarchy.GetItemProgress(dbc, item.ID, in.LearnerID, lp.AttemptNumber)
	if err != nil {
		return res, err
	}
	if ip == nil {
		ip = &types.LessonItemProgress{
			LessonItemID:  item.ID,
			LearnerID:     in.LearnerID,
			AttemptNumber: lp.AttemptNumber,
			State:         types.ProgressState{StartedAt: at},
		}
	}
	ip.AnswerCount++
	itemNewly := false
	if in.IsCorrect {
		ip.CorrectCount++
		if !ip.IsCompleted {
			ip.CompletedCount = 1
			ip.XPEarned += in.XPBase
			itemNewly = ip.Complete(at)
		}
	}
	ip.Recompute(1)
	if err := deps.Hierarchy.SaveItemProgress(dbc, ip); err != nil {
		return res, err
	}
	if !in.IsCorrect {
		if err := deps.Ledger.RecordWrongAnswer(dbc, &types.WrongAnswer{
			LearnerID:     in.LearnerID,
			LessonItemID:  item.ID,
			AttemptNumber: lp.AttemptNumber,
			Answer:        in.Answer,
			CreatedAt:     at,
		}); err != nil {
			return res, err
		}
	}
	res.Item = levelOutcome(domainagg.LevelLessonItem, item.ID, ip.ID, ip.AttemptNumber, 1, ip.State, itemNewly, itemNewly && ip.AttemptNumber == 1)

	// lesson
	items := snap.Items(lesson.ID)
	xpDelta := 0
	if itemNewly {
		xpDelta = in.XPBase
		lp.CompletedCount++
		lp.XPEarned += xpDelta
		if next := snap.NextItem(item.ID); next != nil {
			lp.CurrentPointerID = idPtr(next.ID)
		} else {
			lp.CurrentPointerID = nil
		}
	} else if lp.CurrentPointerID == nil && !lp.IsCompleted {
		lp.CurrentPointerID = idPtr(item.ID)
	}
	lp.Recompute(len(items))
	lessonNewly := false
	if len(items) > 0 && lp.CompletedCount >= len(items) {
		lessonNewly = lp.Complete(at)
	}
	if err := deps.Hierarchy.SaveLessonProgress(dbc, lp); err != nil {
		return res, err
	}
	lessonFirst := lessonNewly && lp.AttemptNumber == 1
	res.Lesson = levelOutcome(domainagg.LevelLesson, lesson.ID, lp.ID, lp.AttemptNumber, len(items), lp.State, lessonNewly, lessonFirst)

	// unit
	up, err := deps.Hierarchy.LatestUnitProgress(dbc, unit.ID, in.LearnerID)
	if err != nil {
		return res, err
	}
	if up == nil {
		up = &types.UnitProgress{
			UnitID:        unit.ID,
			LearnerID:     in.LearnerID,
			AttemptNumber: 1,
			State:         types.ProgressState{StartedAt: at, CurrentPointerID: idPtr(lesson.ID)},
		}
	}
	up.XPEarned += xpDelta
	var nextLesson *types.Lesson
	if lessonFirst {
		up.CompletedCount++
		nextLesson = snap.NextLesson(lesson.ID)
		if nextLesson != nil {
			up.CurrentPointerID = idPtr(nextLesson.ID)
		} else {
			up.CurrentPointerID = nil
		}
	}
	unitNewly, err := settleUnit(dbc, deps, snap, up, at)
	if err != nil {
		return res, err
	}
	if err := deps.Hierarchy.SaveUnitProgress(dbc, up); err != nil {
		return res, err
	}
	res.Unit = levelOutcome(domainagg.LevelUnit, unit.ID, up.ID, up.AttemptNumber, len(snap.Lessons(unit.ID)), up.State, unitNewly, unitNewly)

	if nextLesson != nil {
		unlocked, err := startLesson(dbc, deps, nextLesson, snap.FirstItem(nextLesson.ID), in.LearnerID, at)
		if err != nil {
			return res, err
		}
		res.Unlocks = append(res.Unlocks, unlocked...)
	}

	// module
	mod, unlocked, err := advanceModule(dbc, deps, snap, unit.ID, in.LearnerID, xpDelta, unitNewly, at)
	if err != nil {
		return res, err
	}
	res.Module = mod
	res.Unlocks = append(res.Unlocks, unlocked...)
	return res, nil
}

func newLessonAttempt(lessonID, learnerID uuid.UUID, attempt int, at time.Time) *types.LessonProgress {
	return &types.LessonProgress{
		LessonID:      lessonID,
		LearnerID:     learnerID,
		AttemptNumber: attempt,
		State:         types.ProgressState{StartedAt: at},
	}
}
