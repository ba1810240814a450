// Package apierr carries an HTTP status and a stable code alongside an error so
// services can decide how a failure surfaces without importing the transport.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	pkgerrors "github.com/yungbote/vaccilearn-backend/internal/pkg/errors"
)

const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeConflict     = "conflict"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func Forbidden(what string) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf("%s belongs to another learner", what))
}

// Classify resolves the status and code for any error a handler may see.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status, apiErr.Code
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return http.StatusBadRequest, CodeValidation
	case domainagg.CodeNotFound:
		return http.StatusNotFound, CodeNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict, CodeConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusUnprocessableEntity, string(domainagg.CodePreconditionFailed)
	}
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, pkgerrors.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	}
	return http.StatusInternalServerError, CodeInternal
}
