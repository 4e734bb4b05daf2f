package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/internal/database"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/http/handler"
	"github.com/tailaid/tailaid-api/internal/http/middleware"
	"go.uber.org/zap"

	_ "github.com/tailaid/tailaid-api/docs" // Registers swagger docs
)

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	User     *handler.UserHandler
	Auth     *handler.AuthHandler
	Alert    *handler.AlertHandler
	Note     *handler.NoteHandler
	Facility *handler.FacilityHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *database.Connection
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *database.Connection,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}
	r.Use(rt.rateLimiter.LimitByIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, domain.APIError{
			Type:   domain.ErrorTypeNotFound,
			Title:  http.StatusText(http.StatusNotFound),
			Status: http.StatusNotFound,
			Detail: "Route not found",
		})
	})

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	optional := chi.Chain(rt.authMiddleware.OptionalAuthenticate, middleware.TrackUser)
	required := chi.Chain(rt.authMiddleware.Authenticate, middleware.TrackUser)
	facilityOnly := rt.authMiddleware.RequireRole(domain.FacilityRoles()...)

	r.Route("/api/v1", func(r chi.Router) {
		// Users
		r.Post("/users", rt.handlers.User.Signup)
		r.Get("/users", rt.handlers.User.GetByEmail)

		// Auth
		r.With(rt.rateLimiter.LimitLogin).Post("/auth/login", rt.handlers.Auth.Login)
		r.With(required...).Get("/auth/me", rt.handlers.Auth.Me)

		// Alerts
		r.Route("/alerts", func(r chi.Router) {
			r.With(optional...).Get("/", rt.handlers.Alert.List)
			r.With(optional...).Post("/", rt.handlers.Alert.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.With(optional...).Get("/", rt.handlers.Alert.GetByID)
				r.With(optional...).Put("/", rt.handlers.Alert.Update)
				r.With(required...).Delete("/", rt.handlers.Alert.Delete)
				r.With(required...).With(facilityOnly).Post("/accept", rt.handlers.Alert.Accept)
				r.Get("/photo", rt.handlers.Alert.Photo)
			})
		})

		// Notes
		r.Route("/notes", func(r chi.Router) {
			r.Use(optional...)
			r.Get("/", rt.handlers.Note.List)
			r.Post("/", rt.handlers.Note.Create)
		})

		// Facility directory
		r.Get("/facilities", rt.handlers.Facility.List)
	})

	return r
}

// databaseHealth is the readiness probe with connection pool stats
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db.DB)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
			"driver":  rt.db.Driver,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"driver":  rt.db.Driver,
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			"max_idle_closed":      stats.MaxIdleClosed,
			"max_lifetime_closed":  stats.MaxLifetimeClosed,
		},
	})
}

// readiness checks all dependencies. Running on the memory fallback is
// reported but does not fail the probe.
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(rt.db.DB); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{
			"status":   "healthy",
			"driver":   rt.db.Driver,
			"fallback": rt.db.IsMemory(),
		}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
