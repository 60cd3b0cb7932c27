package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
)

// Handler manages master data endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	responder httpx.Responder
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder httpx.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), responder: responder, rbac: rbac}
}

// MountRoutes registers one sub-router per reference table. Reads and
// updates are open to any caller; create and delete need admin.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, kind := range Kinds {
		r.Route("/"+string(kind), func(r chi.Router) {
			h.mountLookup(r, kind)
		})
	}

	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Get("/{id}", h.showSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.RoleAdmin))
			r.Post("/", h.createSupplier)
			r.Delete("/", h.deleteSuppliers)
			r.Delete("/{id}", h.deleteSupplier)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{barcode}", h.showProduct)
		r.Put("/{barcode}", h.updateProduct)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.RoleAdmin))
			r.Post("/", h.createProduct)
			r.Delete("/", h.deleteProducts)
			r.Delete("/{barcode}", h.deleteProduct)
		})
	})
}

func (h *Handler) mountLookup(r chi.Router, kind Kind) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		result, err := h.service.ListLookups(r.Context(), kind, ParseListFilters(r.URL.Query()))
		h.respond(w, r, http.StatusOK, result, err)
	})
	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.id(w, r)
		if !ok {
			return
		}
		result, err := h.service.GetLookup(r.Context(), kind, id)
		h.respond(w, r, http.StatusOK, result, err)
	})
	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.id(w, r)
		if !ok {
			return
		}
		var req LookupRequest
		if !h.decode(w, r, &req) {
			return
		}
		result, err := h.service.UpdateLookup(r.Context(), kind, id, req)
		h.respond(w, r, http.StatusOK, result, err)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin))
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req LookupRequest
			if !h.decode(w, r, &req) {
				return
			}
			result, err := h.service.CreateLookup(r.Context(), kind, req)
			h.respond(w, r, http.StatusCreated, result, err)
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			var req DeleteManyRequest
			if !h.decode(w, r, &req) {
				return
			}
			result, err := h.service.DeleteLookups(r.Context(), kind, req.IDs)
			h.respond(w, r, http.StatusOK, result, err)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := h.id(w, r)
			if !ok {
				return
			}
			result, err := h.service.DeleteLookup(r.Context(), kind, id)
			h.respond(w, r, http.StatusOK, result, err)
		})
	})
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListSuppliers(r.Context(), ParseListFilters(r.URL.Query()))
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) showSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	result, err := h.service.GetSupplier(r.Context(), id)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.CreateSupplier(r.Context(), req)
	h.respond(w, r, http.StatusCreated, result, err)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req UpdateSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.UpdateSupplier(r.Context(), id, req)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	result, err := h.service.DeleteSupplier(r.Context(), id)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) deleteSuppliers(w http.ResponseWriter, r *http.Request) {
	var req DeleteManyRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.DeleteSuppliers(r.Context(), req.IDs)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseProductFilters(r.URL.Query())
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	result, err := h.service.ListProducts(r.Context(), filters)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetProduct(r.Context(), barcode(r))
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.CreateProduct(r.Context(), req)
	h.respond(w, r, http.StatusCreated, result, err)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.UpdateProduct(r.Context(), barcode(r), req)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeleteProduct(r.Context(), barcode(r))
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) deleteProducts(w http.ResponseWriter, r *http.Request) {
	var req DeleteManyProductsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.DeleteProducts(r.Context(), req.Barcodes)
	h.respond(w, r, http.StatusOK, result, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, result any, err error) {
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, status, result)
}

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

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.responder.Respond(w, r, &httpx.ValidationError{Fields: []httpx.FieldError{{Field: "id", Message: "must be a positive integer"}}})
		return 0, false
	}
	return id, true
}

func barcode(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "barcode"))
}
