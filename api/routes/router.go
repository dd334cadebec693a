package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/decorlyhq/decorly-backend/api/controllers"
	webhookcontrollers "github.com/decorlyhq/decorly-backend/api/controllers/webhooks"
	"github.com/decorlyhq/decorly-backend/api/middleware"
	"github.com/decorlyhq/decorly-backend/pkg/config"
	"github.com/decorlyhq/decorly-backend/pkg/db"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
	"github.com/decorlyhq/decorly-backend/pkg/redis"
	"github.com/decorlyhq/decorly-backend/pkg/square"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Square       *square.Client
	Registry     *prometheus.Registry
	HTTPMetrics  *metrics.HTTPMetrics
	Cart         controllers.CartService
	Checkout     controllers.CheckoutService
	Orders       controllers.OrderService
	Settlement   interface {
		controllers.SettlementReader
		controllers.SettlementApplier
	}
	SquareEvents webhookcontrollers.SquareWebhookService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(deps.SquareEvents, deps.Square, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Post("/lines", controllers.AddCartLine(deps.Cart, logg))
			r.Patch("/lines/{lineId}", controllers.UpdateCartLine(deps.Cart, logg))
			r.Delete("/lines/{lineId}", controllers.RemoveCartLine(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Get("/checkout/{groupId}", controllers.GetCheckoutGroup(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Route("/projects/{projectId}", func(r chi.Router) {
			r.Get("/orders", controllers.ListProjectOrders(deps.Orders, logg))
			r.Get("/payment-status", controllers.GetProjectPaymentStatus(deps.Settlement, logg))
		})

		r.Post("/payments/confirmations", controllers.ConfirmPayment(deps.Settlement, logg))
	})

	return r
}
