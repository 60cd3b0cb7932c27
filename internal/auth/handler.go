package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	responder httpx.Responder
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler instance.
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

// MountRoutes registers auth routes on provided router. Registration needs an
// authenticated admin.
func (h *Handler) MountRoutes(r chi.Router, authn *Authenticator) {
	limiter := httprate.Limit(loginRateLimit, loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "too many login attempts")
		}),
	)
	r.With(limiter).Post("/login", h.handleLogin)
	r.Group(func(gr chi.Router) {
		if authn != nil {
			gr.Use(authn.Handler)
		}
		gr.Use(h.rbac.RequireAny(shared.RoleAdmin))
		gr.Post("/register", h.handleRegister)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", req.Email))
		h.responder.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	h.logger.Info("user registered",
		slog.Int64("user_id", session.User.UserID),
		slog.String("role", session.User.Role),
		slog.Int64("by", shared.ActorID(r.Context())),
	)
	httpx.JSON(w, http.StatusCreated, session)
}
