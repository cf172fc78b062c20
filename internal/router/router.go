package router

import (
	"net/http"

	"promo-engine/internal/handler"
	"promo-engine/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(promoHandler *handler.PromoHandler, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware order: Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	// Health check endpoint (no authentication required)
	r.Get("/health", handler.Health)

	r.Route("/api/promo-codes", func(r chi.Router) {
		r.Post("/", promoHandler.Create)
		r.Post("/redeem", promoHandler.Redeem)
		r.Post("/validate", promoHandler.Validate)
		r.Get("/{code}", promoHandler.Get)
	})

	return r
}
