package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/travel-bookings/internal/idempotency"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/robertarktes/travel-bookings/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(rl, logger))
		r.Get("/tickets/{file}", h.DownloadTicket)
		r.Get("/v1/catalog/{type}", h.ListCatalog)
		r.Get("/v1/catalog/{type}/{id}", h.GetCatalogItem)
	})

	r.Group(func(r chi.Router) {
		r.Use(JWTMiddleware(jwtSecret, logger))
		r.Use(RateLimitMiddleware(rl, logger))

		r.With(IdempotencyMiddleware(idemp, logger)).Post("/v1/bookings", h.CreateBooking)
		r.Get("/v1/bookings/mine", h.MyBookings)
		r.With(RequireRole(RoleAdmin)).Get("/v1/bookings/all", h.AllBookings)
		r.Get("/v1/bookings/{id}", h.GetBooking)
		r.Delete("/v1/bookings/{id}", h.CancelBooking)
		r.Post("/v1/bookings/{id}/ticket", h.RegenerateTicket)
		r.With(RequireRole(RoleAdmin)).Delete("/v1/admin/bookings/{id}", h.AdminCancelBooking)

		r.With(RequireRole(RoleAdmin)).Post("/v1/catalog/{type}", h.CreateCatalogItem)
		r.With(RequireRole(RoleAdmin)).Put("/v1/catalog/{type}/{id}", h.UpdateCatalogItem)
		r.With(RequireRole(RoleAdmin)).Delete("/v1/catalog/{type}/{id}", h.DeleteCatalogItem)
	})

	return r
}
