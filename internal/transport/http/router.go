// Package httptransport assembles the HTTP surfaces: the admin override
// panel, the talent-facing listing and payment endpoints, and the
// operational endpoints. Business logic stays in the services; this package
// only wires routers and middleware chains.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobhandler "stagegate/internal/job/handler"
	overridehandler "stagegate/internal/override/handler"
	paymenthandler "stagegate/internal/payment/handler"
	"stagegate/internal/platform/metrics"
	"stagegate/internal/platform/middleware"
	"stagegate/internal/principal/models"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Override  *overridehandler.Handler
	Jobs      *jobhandler.Handler
	Payments  *paymenthandler.Handler
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Health    func() error
}

// NewRouter builds the full route tree. The admin surface requires an ADMIN
// session; the member surface any authenticated session. Operational
// endpoints are unauthenticated.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	admin := chi.NewRouter()
	admin.Use(middleware.Recovery(d.Logger))
	admin.Use(middleware.RequestID)
	admin.Use(middleware.Device)
	admin.Use(middleware.Logger(d.Logger))
	admin.Use(middleware.Timeout(requestTimeout))
	admin.Use(middleware.ContentTypeJSON)
	admin.Use(middleware.Latency(d.Metrics, "admin"))
	admin.Use(middleware.RequireAuth(d.Validator, d.Logger))
	admin.Use(middleware.RequireRole(string(models.RoleAdmin), d.Logger))
	d.Override.Register(admin)
	r.Mount("/admin", admin)

	member := chi.NewRouter()
	member.Use(middleware.Recovery(d.Logger))
	member.Use(middleware.RequestID)
	member.Use(middleware.Device)
	member.Use(middleware.Logger(d.Logger))
	member.Use(middleware.Timeout(requestTimeout))
	member.Use(middleware.ContentTypeJSON)
	member.Use(middleware.Latency(d.Metrics, "member"))
	member.Use(middleware.RequireAuth(d.Validator, d.Logger))
	d.Jobs.Register(member)
	d.Payments.Register(member)
	r.Mount("/", member)

	return r
}

func handleHealth(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unhealthy"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
