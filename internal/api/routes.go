package api

import (
	"net/http"

	"finsage/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.HTTPTimeout()))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.HandleHealth)

		// Quotes
		r.Get("/snapshot/{symbol}", h.HandleGetSnapshot)
		r.Get("/quote/{symbol}", h.HandleGetQuote)
		r.Get("/quotes", h.HandleGetQuotes)

		// History and fundamentals
		r.Get("/history/{symbol}", h.HandleGetHistory)
		r.Get("/fundamentals/{symbol}", h.HandleGetFundamentals)

		// Local computation
		r.Post("/indicators", h.HandleCalculateIndicators)
		r.Post("/risk-score", h.HandleRiskScore)

		// Cache administration
		r.Route("/cache", func(r chi.Router) {
			r.Post("/clear", h.HandleClearCache)
			r.Get("/stats", h.HandleCacheStats)
		})
	})

	return r
}

// CORSMiddleware returns CORS middleware with the specified allowed origins
func CORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
