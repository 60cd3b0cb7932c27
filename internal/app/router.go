package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/receiving/internal/arrivals"
	"github.com/odyssey-erp/receiving/internal/audit"
	"github.com/odyssey-erp/receiving/internal/auth"
	"github.com/odyssey-erp/receiving/internal/masterdata"
	"github.com/odyssey-erp/receiving/internal/observability"
	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/statistics"
	"github.com/odyssey-erp/receiving/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Authenticator     *auth.Authenticator
	AuthHandler       *auth.Handler
	ArrivalsHandler   *arrivals.Handler
	StatisticsHandler *statistics.Handler
	AuditHandler      *audit.Handler
	MasterdataHandler *masterdata.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with receiving defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", func(ar chi.Router) {
				params.AuthHandler.MountRoutes(ar, params.Authenticator)
			})
		}

		api.Group(func(pr chi.Router) {
			if params.Authenticator != nil {
				pr.Use(params.Authenticator.Handler)
			}
			if params.ArrivalsHandler != nil {
				pr.Route("/arrivals", params.ArrivalsHandler.MountRoutes)
			}
			if params.MasterdataHandler != nil {
				params.MasterdataHandler.MountRoutes(pr)
			}
			if params.StatisticsHandler != nil {
				pr.Route("/statistics", params.StatisticsHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				pr.Route("/audit", params.AuditHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				pr.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
