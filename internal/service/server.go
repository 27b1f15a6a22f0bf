package service

import (
	"rewear/internal/app"
	"rewear/internal/pkg/auth"
	"rewear/internal/pkg/logger"
	"rewear/internal/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service encapsulates the HTTP server configuration, including the application's business logic,
// HTTP handlers, the server's run address, and a logger for event and error logging.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewService creates and initializes a new Service instance.
// It sets up the handlers using the provided application, logger and session cookie helper,
// and configures the server's run address.
func NewService(app *app.App, runAddress string, l *logger.Logger, m *metrics.Metrics, cookies *auth.CookieHelper) *Service {
	handlers := newHandlers(app, l, cookies)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l, metrics: m}
}

// NewRouter sets up and returns a new chi.Router instance with the necessary middleware and routes.
// Logging and metrics apply globally; session resolution applies to protected routes and
// the admin namespace additionally requires the admin role.
func (service *Service) NewRouter() chi.Router {
	h := service.handlers

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(service.log.WithLogging(service.metrics))

	router.Get("/health", h.healthHandler)
	if service.metrics != nil {
		router.Handle("/metrics", service.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.registerHandler)
			r.Post("/signup", h.registerHandler)
			r.Post("/login", h.loginHandler)
			r.Post("/logout", h.logoutHandler)
			r.With(service.requireSession).Get("/me", h.meHandler)
			r.With(service.requireSession).Get("/dashboard", h.dashboardHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(service.optionalSession)
			r.Get("/items", h.browseItemsHandler)
			r.Get("/items/{id}", h.getItemHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(service.requireSession)

			r.Post("/items", h.createItemHandler)
			r.Get("/items/mine", h.myItemsHandler)
			r.Post("/items/{id}/redeem", h.redeemItemHandler)

			r.Post("/swaps", h.createSwapHandler)
			r.Get("/swaps", h.mySwapsHandler)
			r.Get("/swaps/{id}", h.getSwapHandler)
			r.Patch("/swaps/{id}", h.updateSwapHandler)

			r.Post("/users/avatar", h.avatarHandler)
			r.Get("/users/me/points", h.pointsHandler)
			r.Get("/dashboard", h.dashboardHandler)

			r.Route("/admin", func(r chi.Router) {
				r.Use(service.requireAdmin)
				r.Get("/listings", h.adminListItemsHandler)
				r.Get("/listings/{id}", h.getItemHandler)
				r.Patch("/listings/{id}", h.moderateItemHandler)
				r.Get("/swaps", h.adminListSwapsHandler)
				r.Get("/swaps/{id}", h.adminGetSwapHandler)
				r.Patch("/swaps/{id}", h.adminUpdateSwapHandler)
			})
		})
	})

	return router
}
