package statistics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
)

// Handler exposes statistics endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder httpx.Responder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, responder httpx.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder}
}

// MountRoutes registers statistics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/arrivals", h.arrivals)
	r.Get("/entities", h.entities)
}

func (h *Handler) arrivals(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Arrivals(r.Context())
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) entities(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Entities(r.Context())
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
