package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spendlog/spendlog/internal/handler"
	"github.com/spendlog/spendlog/internal/middleware"
)

// RouterConfig carries everything the router needs. Handlers are built by
// the caller; middleware configs are applied as given.
type RouterConfig struct {
	Logger *slog.Logger

	Health   *handler.HealthHandler
	Metrics  *handler.MetricsHandler
	Accounts *handler.AccountHandler
	Expenses *handler.ExpenseHandler
	Insights *handler.InsightsHandler
	APIKeys  *handler.APIKeyHandler

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig
	CORS      middleware.CORSConfig
}

// NewRouter assembles the HTTP surface.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := handler.New()
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimiddleware.StripSlashes)

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", cfg.Metrics.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(cfg.RateLimit))
			r.Use(middleware.RequireJSON)
			r.Post("/register", cfg.Accounts.Register)
			r.Post("/token", cfg.Accounts.Token)
			r.Post("/token/refresh", cfg.Accounts.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth))
			r.Use(middleware.RateLimitAPI(cfg.RateLimit))
			r.Use(middleware.RequireJSON)

			r.Route("/expenses", func(r chi.Router) {
				r.With(middleware.RequireRead()).Get("/", cfg.Expenses.List)
				r.With(middleware.RequireWrite()).Post("/", cfg.Expenses.Create)

				r.With(middleware.RequireRead()).Get("/monthly-insights", cfg.Insights.Monthly)
				r.With(middleware.RequireRead()).Get("/category-insights", cfg.Insights.Categories)
				r.With(middleware.RequireRead()).Get("/summary", cfg.Insights.Summary)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidULIDParam("id", "expense not found"))
					r.With(middleware.RequireRead()).Get("/", cfg.Expenses.Get)
					r.With(middleware.RequireWrite()).Put("/", cfg.Expenses.Replace)
					r.With(middleware.RequireWrite()).Patch("/", cfg.Expenses.Patch)
					r.With(middleware.RequireWrite()).Delete("/", cfg.Expenses.Delete)
				})
			})

			r.Route("/api-keys", func(r chi.Router) {
				r.With(middleware.RequireRead()).Get("/", cfg.APIKeys.List)
				r.With(middleware.RequireAdmin()).Post("/", cfg.APIKeys.Create)
				r.With(middleware.RequireAdmin()).Delete("/{key_id}", cfg.APIKeys.Revoke)
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
