package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_SQLiteMessages(t *testing.T) {
	cases := map[string]domainagg.ErrorCode{
		"UNIQUE constraint failed: badge_grant.learner_id, badge_grant.badge_id": domainagg.CodeConflict,
		"database is locked":  domainagg.CodeRetryable,
		"no such table: nope": domainagg.CodeInternal,
	}
	for msg, want := range cases {
		if got := domainagg.CodeOf(MapError("op", errors.New(msg))); got != want {
			t.Fatalf("%q: want %s got %s", msg, want, got)
		}
	}
}

func TestMapError_PgCodes(t *testing.T) {
	cases := map[string]domainagg.ErrorCode{
		"23505": domainagg.CodeConflict,
		"23503": domainagg.CodePreconditionFailed,
		"40P01": domainagg.CodeRetryable,
	}
	for code, want := range cases {
		err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: code})
		if got := domainagg.CodeOf(MapError("op", err)); got != want {
			t.Fatalf("%s: want %s got %s", code, want, got)
		}
	}
}

func TestPermanentCodes(t *testing.T) {
	if !domainagg.Permanent(MapError("op", ValidationError("x"))) {
		t.Fatalf("validation should be permanent")
	}
	if domainagg.Permanent(MapError("op", RetryableError("x"))) {
		t.Fatalf("retryable should not be permanent")
	}
}
