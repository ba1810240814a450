package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/data/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

var errInjectedCommit = errors.New("injected commit failure")

// InjectedTxRunner counts transaction lifecycle calls and injects failures. With DB set it
// runs the body inside a real transaction and rolls it back on any injected failure, so
// tests can assert that nothing from the body survived.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin, failCommit := r.FailBegin, r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	run := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		if failCommit != nil {
			return errors.Join(errInjectedCommit, failCommit)
		}
		return nil
	}

	var err error
	if r.DB != nil {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = run(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		if errors.Is(err, errInjectedCommit) {
			return failCommit
		}
		return err
	}
	r.CommitCalls++
	return nil
}
