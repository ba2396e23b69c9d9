// Package apperror defines the error kinds returned by the pantry core.
// Every expected domain failure is an *AppError; callers branch on Kind
// with errors.Is against the sentinels below.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure.
type Kind string

const (
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindUnsupportedUnit   Kind = "UNSUPPORTED_UNIT"
	KindUnitMismatch      Kind = "UNIT_MISMATCH"
	KindUnknownItem       Kind = "UNKNOWN_ITEM"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindDuplicateRecipe   Kind = "DUPLICATE_RECIPE"
	KindNullItem          Kind = "NULL_ITEM"
	KindNullRecipe        Kind = "NULL_RECIPE"
	KindNullStorage       Kind = "NULL_STORAGE"

	// KindInternal is reported for errors that did not originate here.
	KindInternal Kind = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. They match any *AppError of the same kind.
var (
	ErrInvalidArgument   = &AppError{Kind: KindInvalidArgument}
	ErrUnsupportedUnit   = &AppError{Kind: KindUnsupportedUnit}
	ErrUnitMismatch      = &AppError{Kind: KindUnitMismatch}
	ErrUnknownItem       = &AppError{Kind: KindUnknownItem}
	ErrInsufficientStock = &AppError{Kind: KindInsufficientStock}
	ErrDuplicateRecipe   = &AppError{Kind: KindDuplicateRecipe}
	ErrNullItem          = &AppError{Kind: KindNullItem}
	ErrNullRecipe        = &AppError{Kind: KindNullRecipe}
	ErrNullStorage       = &AppError{Kind: KindNullStorage}
)

var statusByKind = map[Kind]int{
	KindInvalidArgument:   http.StatusBadRequest,
	KindUnsupportedUnit:   http.StatusBadRequest,
	KindUnitMismatch:      http.StatusBadRequest,
	KindUnknownItem:       http.StatusNotFound,
	KindInsufficientStock: http.StatusUnprocessableEntity,
	KindDuplicateRecipe:   http.StatusConflict,
	KindNullItem:          http.StatusBadRequest,
	KindNullRecipe:        http.StatusBadRequest,
	KindNullStorage:       http.StatusBadRequest,
}

// AppError is the error type of the pantry core.
type AppError struct {
	// Kind is the machine-readable failure class
	Kind Kind `json:"code"`

	// Message is a human-readable description
	Message string `json:"message"`

	// Details carries the offending values (unit token, amounts, names)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying cause, if any
	Err error `json:"-"`
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// HTTPStatus is the suggested response status for the error's kind.
func (e *AppError) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// InvalidArgument reports a blank, non-positive or otherwise invalid input.
func InvalidArgument(format string, args ...any) *AppError {
	return New(KindInvalidArgument, format, args...)
}

// UnsupportedUnit reports a unit token outside the recognized set.
func UnsupportedUnit(token string) *AppError {
	return New(KindUnsupportedUnit, "unsupported unit: %q", token).WithDetail("unit", token)
}

// UnitMismatch reports a unit whose family differs from the stored item's.
func UnitMismatch(name, requested, stored string) *AppError {
	return New(KindUnitMismatch, "unit %q is not compatible with %s stored in %s", requested, name, stored).
		WithDetail("name", name).
		WithDetail("requested_unit", requested).
		WithDetail("stored_unit", stored)
}

// UnknownItem reports that no batches exist under a name.
func UnknownItem(name string) *AppError {
	return New(KindUnknownItem, "no stock registered for %q", name).WithDetail("name", name)
}

// InsufficientStock reports a withdrawal larger than the pooled amount.
func InsufficientStock(name string, requested, available fmt.Stringer, unit string) *AppError {
	return New(KindInsufficientStock, "cannot remove %s %s of %s, only %s available", requested, unit, name, available).
		WithDetail("name", name).
		WithDetail("requested", requested.String()).
		WithDetail("available", available.String()).
		WithDetail("unit", unit)
}

// DuplicateRecipe reports a recipe whose name is already taken.
func DuplicateRecipe(name string) *AppError {
	return New(KindDuplicateRecipe, "recipe %q already exists", name).WithDetail("name", name)
}

// NullItem reports a missing item reference.
func NullItem() *AppError {
	return New(KindNullItem, "item cannot be nil")
}

// NullRecipe reports a missing recipe reference.
func NullRecipe() *AppError {
	return New(KindNullRecipe, "recipe cannot be nil")
}

// NullStorage reports a missing storage reference.
func NullStorage() *AppError {
	return New(KindNullStorage, "storage cannot be nil")
}

// --- Inspection ---

// AsAppError extracts an *AppError from the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps any error to a response status.
func HTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
