package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// AggregateDeps are the repos every progress step reads and writes. All calls go through
// the caller's dbctx so the whole event lands in one transaction.
type AggregateDeps struct {
	Log       *logger.Logger
	Catalog   repos.CatalogRepo
	Hierarchy repos.HierarchyRepo
	Trackers  repos.TrackerRepo
	Ledger    repos.EventLedgerRepo
}

// QuestionResult is the post-event state of the four hierarchy levels.
type QuestionResult struct {
	Item    domainagg.LevelOutcome
	Lesson  domainagg.LevelOutcome
	Unit    domainagg.LevelOutcome
	Module  domainagg.LevelOutcome
	Unlocks []domainagg.Unlock
}

// GameResult carries the unit/module state after a game completion.
type GameResult struct {
	Game    domainagg.GameOutcome
	GameXP  int
	Unit    domainagg.LevelOutcome
	Module  domainagg.LevelOutcome
	Unlocks []domainagg.Unlock
}

func notFound(op, what string, id uuid.UUID) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, what+" "+id.String()+" not found", nil)
}

func eventTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

func idPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
