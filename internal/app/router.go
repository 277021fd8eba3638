package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/andino-transportes/andino/internal/auth"
	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/observability"
	"github.com/andino-transportes/andino/internal/shipments"
	"github.com/andino-transportes/andino/internal/tickets"
	"github.com/andino-transportes/andino/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Sessions         *auth.SessionStore
	AuthHandler      *auth.Handler
	TicketsHandler   *tickets.Handler
	ShipmentsHandler *shipments.Handler
	LoyaltyHandler   *loyalty.Handler
	InvoicesHandler  *invoicing.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Sessions))

		r.Route("/tickets", params.TicketsHandler.MountRoutes)
		r.Route("/shipments", params.ShipmentsHandler.MountRoutes)
		r.Route("/loyalty", params.LoyaltyHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
