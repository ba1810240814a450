package steps

import (
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

// ApplyGame records a game completion. The game is completed once; later plays only raise
// the best score. First completion adds the game's xp to its unit and module and may
// complete the unit when every lesson is already done.
func ApplyGame(dbc dbctx.Context, deps AggregateDeps, in domainagg.GameCompletedInput) (GameResult, error) {
	const op = "progress.ApplyGame"
	var res GameResult
	at := eventTime(in.At)

	game, err := deps.Catalog.GetGame(dbc, in.GameID)
	if err != nil {
		return res, err
	}
	if game == nil {
		return res, notFound(op, "game", in.GameID)
	}
	if in.Score < 0 {
		return res, domainagg.NewError(domainagg.CodeValidation, op, "score must not be negative", nil)
	}
	unit, err := deps.Catalog.GetUnit(dbc, game.UnitID)
	if err != nil {
		return res, err
	}
	if unit == nil {
		return res, notFound(op, "unit", game.UnitID)
	}
	snap, err := LoadSnapshot(dbc, deps.Catalog, unit.ModuleID)
	if err != nil {
		return res, err
	}
	if snap == nil {
		return res, notFound(op, "module", unit.ModuleID)
	}

	gp, err := deps.Trackers.GetGameProgress(dbc, game.ID, in.LearnerID)
	if err != nil {
		return res, err
	}
	if gp == nil {
		gp = &types.GameProgress{GameID: game.ID, LearnerID: in.LearnerID}
	}
	if in.Score > gp.BestScore {
		gp.BestScore = in.Score
	}
	newly := false
	if !gp.IsCompleted {
		gp.IsCompleted = true
		gp.CompletedAt = &at
		gp.XPEarned = game.XP
		newly = true
	}
	if err := deps.Trackers.SaveGameProgress(dbc, gp); err != nil {
		return res, err
	}
	res.Game = domainagg.GameOutcome{
		GameID:         game.ID,
		GameProgressID: gp.ID,
		BestScore:      gp.BestScore,
		NewlyCompleted: newly,
	}
	xpDelta := 0
	if newly {
		xpDelta = game.XP
	}
	res.GameXP = game.XP

	up, err := deps.Hierarchy.LatestUnitProgress(dbc, unit.ID, in.LearnerID)
	if err != nil {
		return res, err
	}
	if up == nil {
		up = &types.UnitProgress{
			UnitID:        unit.ID,
			LearnerID:     in.LearnerID,
			AttemptNumber: 1,
			State:         types.ProgressState{StartedAt: at},
		}
		if first := snap.FirstLesson(unit.ID); first != nil {
			up.CurrentPointerID = idPtr(first.ID)
		}
	}
	up.XPEarned += xpDelta
	unitNewly, err := settleUnit(dbc, deps, snap, up, at)
	if err != nil {
		return res, err
	}
	if err := deps.Hierarchy.SaveUnitProgress(dbc, up); err != nil {
		return res, err
	}
	res.Unit = levelOutcome(domainagg.LevelUnit, unit.ID, up.ID, up.AttemptNumber, len(snap.Lessons(unit.ID)), up.State, unitNewly, unitNewly)

	mod, unlocked, err := advanceModule(dbc, deps, snap, unit.ID, in.LearnerID, xpDelta, unitNewly, at)
	if err != nil {
		return res, err
	}
	res.Module = mod
	res.Unlocks = unlocked
	return res, nil
}
