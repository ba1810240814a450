package aggregates

import (
	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

// LearnerLocker serializes engine transactions for one learner.
type LearnerLocker interface {
	Lock(dbc dbctx.Context, learnerID uuid.UUID) error
}

type advisoryLocker struct{}

// NewLearnerLocker takes a transaction-scoped Postgres advisory lock keyed by the learner id.
// Other dialects run without it; SQLite already serializes writers.
func NewLearnerLocker() LearnerLocker { return advisoryLocker{} }

func (advisoryLocker) Lock(dbc dbctx.Context, learnerID uuid.UUID) error {
	if dbc.Tx == nil {
		return InvariantError("learner lock requires a transaction")
	}
	if dbc.Tx.Dialector == nil || dbc.Tx.Dialector.Name() != "postgres" {
		return nil
	}
	return dbc.Tx.WithContext(dbc.Ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?::text, 0))", learnerID.String()).Error
}
