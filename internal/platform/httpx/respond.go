// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type      string       `json:"type,omitempty"`
	Title     string       `json:"title"`
	Status    int          `json:"status"`
	Detail    string       `json:"detail,omitempty"`
	Instance  string       `json:"instance,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
	Trace     string       `json:"trace,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body required", ErrValidation)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body required", ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", ErrValidation, err)
	}
	return nil
}

// Responder writes problem responses for errors returned by services.
// Debug adds the stack trace and the internal cause; it must stay off in production.
type Responder struct {
	Logger *slog.Logger
	Debug  bool
}

// Respond classifies err and writes the matching problem document.
func (rs Responder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, title := Classify(err)
	problem := ProblemDetail{
		Type:   kind,
		Title:  title,
		Status: status,
	}
	if status < http.StatusInternalServerError || rs.Debug {
		problem.Detail = err.Error()
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		problem.Errors = verr.Fields
	}
	if r != nil {
		problem.Instance = r.URL.Path
		problem.RequestID = middleware.GetReqID(r.Context())
	}
	if rs.Debug {
		problem.Trace = string(debug.Stack())
	}
	if status >= http.StatusInternalServerError && rs.Logger != nil {
		rs.Logger.Error("request failed",
			slog.Any("error", err),
			slog.String("request_id", problem.RequestID),
			slog.String("path", problem.Instance),
		)
	}
	writeProblem(w, problem)
}
