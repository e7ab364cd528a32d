package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/api/middleware"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/auth"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/handlers"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/ws"
)

// Deps are the wired services the router exposes over HTTP.
type Deps struct {
	Handler *handlers.Handler
	Gateway *ws.Gateway
	Tokens  *auth.JWT
	Limiter *middleware.RateLimiter
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - browser clients connect from the platform frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := deps.Handler
	authmw := middleware.NewAuthMiddleware(deps.Tokens)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/health", h.Health)

	// WebSocket endpoint. Authentication happens in-band over the
	// socket (or via ?token=), not through the bearer middleware.
	if deps.Limiter != nil {
		r.Method(http.MethodGet, "/ws", deps.Limiter.Middleware(http.HandlerFunc(deps.Gateway.Handle)))
	} else {
		r.Get("/ws", deps.Gateway.Handle)
	}

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}

		r.Post("/api/users", h.SyncUser)
		r.Get("/api/users/{id}", h.GetUser)
		r.Get("/api/messages", h.GetMessages)
		r.Get("/api/messages/search", h.SearchMessages)
		r.Get("/api/contacts", h.GetContacts)
		r.Post("/api/threads", h.OpenThread)
		r.Get("/api/stats", h.Stats)
	})

	r.NotFound(NotFound)

	return r
}

// NotFound is the fallback handler for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"not found"}`))
}
