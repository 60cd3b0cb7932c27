package arrivals

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
)

// IdempotencyHeader carries the client supplied key for create.
const IdempotencyHeader = "Idempotency-Key"

// Handler manages arrival HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	responder httpx.Responder
	rbac      rbac.Middleware
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, responder httpx.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: httpx.NewValidator(),
		responder: responder,
		rbac:      rbac,
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{number}", h.show)
	r.Get("/{number}/line-split", h.lineSplit)
	r.Put("/{number}", h.update)
	r.Post("/{number}/start-processing", h.startProcessing)
	r.Post("/{number}/scan", h.scan)
	r.Post("/{number}/finish-processing", h.finishProcessing)

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin))
		r.Post("/", h.create)
		r.Delete("/", h.deleteMany)
		r.Delete("/{number}", h.delete)
		r.Post("/{number}/add-products", h.addProducts)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseListFilters(r.URL.Query())
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), arrivalNumber(r))
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) lineSplit(w http.ResponseWriter, r *http.Request) {
	split, err := h.service.LineSplit(r.Context(), arrivalNumber(r))
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, split)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Create(r.Context(), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	arrival, err := h.service.Update(r.Context(), arrivalNumber(r), req)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, arrival)
}

func (h *Handler) addProducts(w http.ResponseWriter, r *http.Request) {
	var req AttachProductsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AttachProducts(r.Context(), arrivalNumber(r), req)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) startProcessing(w http.ResponseWriter, r *http.Request) {
	var req StartProcessingRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.StartProcessing(r.Context(), arrivalNumber(r), req)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Scan(r.Context(), arrivalNumber(r), req)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) finishProcessing(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.FinishProcessing(r.Context(), arrivalNumber(r))
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Delete(r.Context(), arrivalNumber(r))
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) deleteMany(w http.ResponseWriter, r *http.Request) {
	var req DeleteManyRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.DeleteMany(r.Context(), req.ArrivalNumbers)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// decode reads and validates a JSON body, writing the problem response itself
// on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		h.responder.Respond(w, r, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.responder.Respond(w, r, err)
		return false
	}
	return true
}

func arrivalNumber(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "number"))
}
