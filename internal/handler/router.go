package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	custommiddleware "github.com/mmeshcher/lunchbox/internal/middleware"
	"github.com/mmeshcher/lunchbox/internal/model"
	"github.com/mmeshcher/lunchbox/internal/response"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса lunchbox.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger, h.metrics))

	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Вне gzip: уведомление шлюза получает 200 OK даже с битым телом.
	r.Post("/api/payment/webhook", h.PaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.With(custommiddleware.RequireBearer(h.cronToken, h.logger)).
			Get("/api/cron/daily-menu", h.DailyMenuBroadcast)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/api/menu", h.Menu)

			r.Get("/api/orders", h.ListOrders)
			r.Post("/api/orders", h.CreateOrder)
			r.Get("/api/orders/{id}", h.GetOrder)

			r.Post("/api/payment/init", h.InitPayment)

			r.Post("/api/coupons/buy", h.BuyCoupons)
			r.Get("/api/coupons/balance", h.CouponBalance)
			r.Get("/api/coupons/history", h.CouponHistory)

			r.Post("/api/subscriptions/buy", h.BuySubscription)

			r.Get("/api/users/me", h.Me)
			r.Put("/api/users/me/notifications", h.SetNotifications)

			r.Route("/api/delivery", func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(h.logger, model.RoleDelivery))

				r.Get("/orders", h.DeliveryQueue)
				r.Put("/pickup", h.Pickup)
				r.Put("/complete", h.Complete)
				r.Get("/history", h.DeliveryHistory)
			})

			r.Route("/api/admin", func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(h.logger, model.RoleAdmin))

				r.Get("/orders", h.AdminOrders)
				r.Put("/orders", h.UpdateOrderStatus)
				r.Get("/stats", h.AdminStats)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, h.logger, apperr.New(apperr.KindNotFound, "route not found"))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.ErrorBody{
			Error: response.ErrorPayload{Code: "METHOD_NOT_ALLOWED", Message: http.StatusText(http.StatusMethodNotAllowed)},
		})
	})

	return r
}
