package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/furima-app/furima-backend/api/controllers"
	"github.com/furima-app/furima-backend/api/middleware"
	checkoutsvc "github.com/furima-app/furima-backend/internal/checkout"
	"github.com/furima-app/furima-backend/internal/notifications"
	"github.com/furima-app/furima-backend/internal/orders"
	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/internal/users"
	stripewebhook "github.com/furima-app/furima-backend/internal/webhooks/stripe"
	"github.com/furima-app/furima-backend/pkg/config"
	"github.com/furima-app/furima-backend/pkg/db"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/redis"
	"github.com/furima-app/furima-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	checkoutService *checkoutsvc.Service,
	pricingService *pricing.Service,
	ordersService *orders.Service,
	usersService *users.Service,
	notificationsService notifications.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Signature-verified, so outside the bearer-auth group.
	r.Post("/api/v1/payment/webhook", controllers.StripeWebhook(stripeWebhookService, stripeClient, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.Post("/payment/create-intent", controllers.CreateIntent(checkoutService, logg))

		r.Post("/orders", controllers.CreateOrder(ordersService, pricingService, usersService, logg))
		r.Get("/orders", controllers.ListOrders(ordersService, logg))
		r.Get("/orders/{orderId}", controllers.OrderDetail(ordersService, logg))

		r.Get("/notifications", controllers.ListNotifications(notificationsService, logg))
		r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
	})

	return r
}
