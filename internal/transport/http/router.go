// Package httptransport wires the HTTP surface: middleware chain, role gates,
// and per-module route registration. Handlers delegate to domain services;
// no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "citation/internal/audit/handler"
	driverhandler "citation/internal/driver/handler"
	paymenthandler "citation/internal/payment/handler"
	"citation/internal/platform/metrics"
	"citation/internal/platform/middleware"
	reconcilehandler "citation/internal/reconcile/handler"
	tickethandler "citation/internal/ticket/handler"
	"citation/internal/transport/http/shared"
	"citation/pkg/domain"
)

// Handlers collects the per-module route registrars.
type Handlers struct {
	Ticket    *tickethandler.Handler
	Driver    *driverhandler.Handler
	Payment   *paymenthandler.Handler
	Reconcile *reconcilehandler.Handler
	Audit     *audithandler.Handler
}

// HealthChecker reports dependency liveness for /healthz.
type HealthChecker func() map[string]bool

// NewRouter assembles the full route tree. Authentication applies to every
// route except health and metrics; role gates wrap each module group.
func NewRouter(
	h Handlers,
	validator middleware.TokenValidator,
	m *metrics.Metrics,
	health HealthChecker,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.LatencyMiddleware(m))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		r.Use(middleware.ContentTypeJSON)

		// Any authenticated actor can read the fee schedule.
		h.Ticket.RegisterCommon(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, domain.RoleOfficer, domain.RoleAdmin))
			h.Ticket.RegisterOfficer(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, domain.RoleDriver, domain.RoleAdmin))
			h.Driver.RegisterSelf(r)
			h.Payment.RegisterDriver(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, domain.RoleAdmin))
			h.Driver.RegisterAdmin(r)
			h.Payment.RegisterAdmin(r)
			h.Audit.Register(r)
			r.Route("/admin", func(r chi.Router) {
				h.Reconcile.Register(r)
			})
		})
	})

	return r
}

func handleHealth(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps := map[string]bool{}
		if health != nil {
			deps = health()
		}
		status := http.StatusOK
		for _, ok := range deps {
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		shared.WriteJSON(w, status, map[string]any{
			"status":       http.StatusText(status),
			"dependencies": deps,
		})
	}
}
