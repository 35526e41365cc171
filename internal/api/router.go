package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anasakil/chat-app-techniq8/internal/api/middleware"
	"github.com/anasakil/chat-app-techniq8/internal/archive"
	"github.com/anasakil/chat-app-techniq8/internal/directory"
	"github.com/anasakil/chat-app-techniq8/internal/handlers"
	"github.com/anasakil/chat-app-techniq8/internal/presence"
	"github.com/anasakil/chat-app-techniq8/internal/queue"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
)

// NewRouter creates and configures the ops HTTP router. redisClient may be
// nil, which disables rate limiting.
func NewRouter(logger zerolog.Logger, reg *presence.Registry, pending *queue.PendingQueue, tr *tracker.Tracker, dir directory.Directory, arc *archive.Archive, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, logger)
	r.Use(limiter.Middleware)

	// CORS - the ops surface is read-only and dashboard-friendly
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(reg, pending, tr, dir, arc)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Get("/presence", h.Presence)
	r.Get("/presence/{id}", h.UserPresence)
	r.Get("/conversation/{a}/{b}", h.Conversation)

	return r
}
