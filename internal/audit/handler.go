package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	dateLayout        = "2006-01-02"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters TimelineFilters) (Result, error)
	Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger    *slog.Logger
	service   TimelineService
	responder httpx.Responder
	rbac      rbac.Middleware
	now       func() time.Time
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService, responder httpx.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, rbac: rbac, now: time.Now}
}

// MountRoutes registers the admin-only audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.RoleAdmin))
	r.Get("/", h.timeline)
	r.Get("/export", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	csvBytes, err := WriteCSV(rows)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-timeline.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters reads from/to as dates. Without an entity_id the window
// defaults to the last seven days; with one the whole history is searched.
func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	var fields []httpx.FieldError

	now := h.now().UTC()
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			fields = append(fields, httpx.FieldError{Field: "to", Message: "must be a date (YYYY-MM-DD)"})
		}
		filters.To = to.AddDate(0, 0, 1)
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			fields = append(fields, httpx.FieldError{Field: "from", Message: "must be a date (YYYY-MM-DD)"})
		}
		filters.From = from
	} else if strings.TrimSpace(filters.EntityID) == "" {
		end := filters.To
		if end.IsZero() {
			end = now
		}
		filters.From = end.Add(-defaultDateRange)
	}
	if len(fields) == 0 && !filters.From.IsZero() && !filters.To.IsZero() {
		if filters.From.After(filters.To) {
			fields = append(fields, httpx.FieldError{Field: "from", Message: "must not be after to"})
		} else if filters.To.Sub(filters.From) > maxDateRangeHours*time.Hour {
			fields = append(fields, httpx.FieldError{Field: "to", Message: "range must not exceed 90 days"})
		}
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fields = append(fields, httpx.FieldError{Field: "page", Message: "must be a positive integer"})
		}
		filters.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			fields = append(fields, httpx.FieldError{Field: "page_size", Message: "must be a positive integer"})
		}
		filters.PageSize = size
	}
	if len(fields) > 0 {
		return TimelineFilters{}, &httpx.ValidationError{Fields: fields}
	}
	return filters, nil
}
