// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrConflict     = errors.New("conflicting update")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Problem kinds reported in the "type" member.
const (
	KindNotFound     = "not_found"
	KindForbidden    = "forbidden"
	KindValidation   = "validation"
	KindConflict     = "conflict"
	KindUnauthorized = "unauthorized"
	KindInternal     = "internal"
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field failures. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + e.Fields[0].Field + " " + e.Fields[0].Message
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Classify resolves the HTTP status, problem kind and title for err.
func Classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, KindNotFound, "Not Found"
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, KindConflict, "Duplicate"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, KindConflict, "Conflict"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, KindValidation, "Validation Failed"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, KindForbidden, "Forbidden"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, KindUnauthorized, "Unauthorized"
	default:
		return http.StatusInternalServerError, KindInternal, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	Responder{}.Respond(w, nil, err)
}
