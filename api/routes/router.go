package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swiftdrop/settlement-backend/api/controllers"
	"github.com/swiftdrop/settlement-backend/api/middleware"
	"github.com/swiftdrop/settlement-backend/internal/commissions"
	"github.com/swiftdrop/settlement-backend/internal/destinations"
	"github.com/swiftdrop/settlement-backend/internal/limits"
	"github.com/swiftdrop/settlement-backend/internal/orders"
	"github.com/swiftdrop/settlement-backend/internal/payouts"
	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/db"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        redis.Pinger
	Registry     *prometheus.Registry
	Orders       orders.Service
	Commissions  commissions.Service
	Payouts      payouts.Service
	Limits       limits.Service
	Destinations destinations.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/status", controllers.OrderTransition(deps.Orders, logg))
		})

		r.Route("/commissions/{commissionId}", func(r chi.Router) {
			r.Post("/approve", controllers.CommissionApprove(deps.Commissions, logg))
		})

		r.Route("/agents/{payeeId}", func(r chi.Router) {
			r.Get("/commissions", controllers.CommissionList(deps.Commissions, logg))

			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", controllers.WithdrawalCreate(deps.Payouts, logg))
				r.Get("/", controllers.WithdrawalList(deps.Payouts, logg))
				r.Get("/limits", controllers.WithdrawalLimits(deps.Limits, logg))
				r.Get("/{payoutId}", controllers.WithdrawalGet(deps.Payouts, logg))
				r.Delete("/{payoutId}", controllers.WithdrawalCancel(deps.Payouts, logg))
			})

			r.Route("/destinations", func(r chi.Router) {
				r.Get("/", controllers.DestinationList(deps.Destinations, logg))
				r.Get("/eligible", controllers.DestinationEligible(deps.Destinations, logg))
			})
		})
	})

	return r
}
