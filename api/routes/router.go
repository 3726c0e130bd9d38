package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luisarteaga/marketdesk-backend/api/controllers"
	"github.com/luisarteaga/marketdesk-backend/api/middleware"
	"github.com/luisarteaga/marketdesk-backend/internal/duplicates"
	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	"github.com/luisarteaga/marketdesk-backend/internal/pending"
	"github.com/luisarteaga/marketdesk-backend/internal/refunds"
	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
	"github.com/luisarteaga/marketdesk-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Rules      payoutrules.Service
	Pending    pending.Service
	Duplicates duplicates.Service
	Settlement settlement.Service
	Refunds    refunds.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	health controllers.Dependencies,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, health))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(apiPolicy, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/batches", controllers.BatchList(svcs.Settlement, logg))
			r.Get("/batches/{batchID}", controllers.BatchDetail(svcs.Settlement, logg))
			r.Get("/{vendor}/pending", controllers.PendingItems(svcs.Pending, logg))
			r.Get("/{vendor}/deductions", controllers.DeductionList(svcs.Refunds, logg))

			// Money movement is restricted to the finance role.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.AdminRoleFinance), logg))
				r.Post("/batches", controllers.BatchCreate(svcs.Settlement, logg))
				r.Post("/mark-paid", controllers.MarkMonthPaid(svcs.Settlement, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.AdminRoleFinance), logg))
			r.Post("/refunds", controllers.RefundApply(svcs.Refunds, logg))
		})

		r.Get("/orders/{orderID}/duplicates", controllers.DuplicateGroups(svcs.Duplicates, logg))
		r.Post("/line-items/status", controllers.SetLineItemStatus(svcs.Duplicates, logg))

		r.Route("/payout-rules", func(r chi.Router) {
			r.Get("/{vendor}", controllers.RuleList(svcs.Rules, logg))
			r.With(middleware.RequireRole(string(enums.AdminRoleAdmin), logg)).
				Put("/", controllers.RuleUpsert(svcs.Rules, logg))
		})
	})

	return r
}
