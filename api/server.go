/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/state, /api/month/*   Viewed month and whole-state reads
  /api/habits/*              Habit management and toggles
  /api/reflections/*         Monthly notes
  /api/analytics/*           Derived views
  /api/export|import|reset   Backup and restore
  /api/coach                 AI coaching
  /api/auth/session          Owner sign in / out
  /metrics                   Prometheus scrape endpoint
  /health                    Liveness

SECURITY NOTE:
  No authentication middleware. The owner id passed to /api/auth/session
  is trusted; authentication happens in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/zenhabit/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        http.Handler // served at /metrics when set
	Logger         *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/status", h.GetStatus)

		// Month navigation
		r.Route("/month", func(r chi.Router) {
			r.Put("/", h.SetMonth)
			r.Post("/next", h.NextMonth)
			r.Post("/prev", h.PrevMonth)
			r.Post("/today", h.Today)
		})

		// Habit routes
		r.Route("/habits", func(r chi.Router) {
			r.Get("/", h.ListHabits)
			r.Post("/", h.CreateHabit)
			r.Put("/{id}", h.UpdateHabit)
			r.Delete("/{id}", h.DeleteHabit)
			r.Post("/{id}/toggle", h.ToggleDay)
			r.Get("/{id}/stats", h.GetHabitStats)
		})

		// Reflection routes
		r.Route("/reflections", func(r chi.Router) {
			r.Get("/{month}", h.GetReflection)
			r.Put("/{month}", h.SetReflection)
		})

		// Analytics routes
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", h.GetSummary)
			r.Get("/leaderboard", h.GetLeaderboard)
			r.Get("/categories", h.GetCategories)
			r.Get("/weekdays", h.GetWeekdays)
			r.Get("/trend", h.GetTrend)
			r.Get("/heatmap", h.GetHeatmap)
		})

		// Backup routes
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
		r.Post("/reset", h.Reset)

		r.Post("/coach", h.GetCoaching)

		// Auth session routes
		r.Route("/auth/session", func(r chi.Router) {
			r.Post("/", h.SignIn)
			r.Delete("/", h.SignOut)
		})
	})

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
