package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/appid"
	"github.com/deshgyan/deshgyan/internal/observability"
	"github.com/deshgyan/deshgyan/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints per Workhorse §9
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	if s.api != nil {
		s.registerAppRoutes(s.api)
	}

	// Admin signal endpoint (optional, requires DESHGYAN_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAppRoutes mounts the search surfaces. Routes that start a search
// are throttled per client.
func (s *Server) registerAppRoutes(api *handlers.API) {
	s.router.Group(func(r chi.Router) {
		if s.limiter.Enabled() {
			r.Use(s.limiter.Middleware)
		}
		r.Post("/api/search", api.Search)
		r.Get("/api/search/stream", api.SearchStream)
		r.Get("/article", api.Article)
		r.Get("/ws", api.Session)
	})

	s.router.Get("/", api.Home)

	s.router.Route("/api/history", func(r chi.Router) {
		r.Get("/", api.ListHistory)
		r.Post("/", api.AddHistory)
		r.Delete("/", api.ClearHistory)
		r.Delete("/{query}", api.RemoveHistory)
	})

	s.router.Route("/api/preferences/theme", func(r chi.Router) {
		r.Get("/", api.GetTheme)
		r.Put("/", api.PutTheme)
		r.Post("/toggle", api.ToggleTheme)
	})

	s.router.Get("/api/topics", api.ListTopics)
	s.router.Get("/api/topics/{grid}", api.GetTopicGrid)
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	// Get admin token from environment (identity-aware)
	ctx := context.Background()
	identity, _ := appid.Get(ctx)
	envPrefix := "DESHGYAN_"
	if identity != nil && identity.EnvPrefix != "" {
		envPrefix = identity.EnvPrefix
	}

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	// Create HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
