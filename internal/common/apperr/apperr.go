// Package apperr holds the sentinel errors shared by every service.
// Controllers translate them to HTTP statuses with errors.Is; services wrap
// them with context via fmt.Errorf("...: %w", ...).
package apperr

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	// ErrConflict means another request won the race for the same resource.
	// It is surfaced to the caller, never retried automatically.
	ErrConflict = errors.New("resource conflict")
	ErrInternal = errors.New("internal error")
)
