package apierr

import (
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	pkgerrors "github.com/yungbote/vaccilearn-backend/internal/pkg/errors"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", Validation("bad %s", "date"), http.StatusBadRequest, CodeValidation},
		{"wrapped api error", fmt.Errorf("submit: %w", NotFound("lesson item")), http.StatusNotFound, CodeNotFound},
		{"aggregate validation", domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil), http.StatusBadRequest, CodeValidation},
		{"aggregate precondition", domainagg.NewError(domainagg.CodePreconditionFailed, "op", "closed", nil), http.StatusUnprocessableEntity, "precondition_failed"},
		{"sentinel forbidden", fmt.Errorf("x: %w", pkgerrors.ErrForbidden), http.StatusForbidden, CodeForbidden},
		{"sentinel unauthorized", pkgerrors.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := Classify(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("Classify(%v) = %d/%s, want %d/%s", tc.err, status, code, tc.status, tc.code)
			}
		})
	}
}
