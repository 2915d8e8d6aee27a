package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rentquote-backend/api/controllers"
	"github.com/angelmondragon/rentquote-backend/api/middleware"
	"github.com/angelmondragon/rentquote-backend/internal/auth"
	"github.com/angelmondragon/rentquote-backend/internal/clients"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/pkg/auth/session"
	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/rentquote-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Revoke(context.Context, string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies carries everything the router hands to middleware and controllers.
// Nil stores disable rate limiting and idempotency.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	HTTPMetrics *metrics.HTTPMetrics

	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger
	RateLimiter rateLimiter
	Idempotency pkgredis.IdempotencyStore
	Sessions    sessionManager

	Auth      auth.Service
	Register  auth.RegisterService
	Approvals auth.ApprovalService
	Equipment equipment.Service
	Clients   clients.Service
	Quotes    quotes.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.AccessLog(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idempotency := middleware.Idempotency(deps.Idempotency, cfg.Quotes.IdempotencyTTL, logg)
	authenticate := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), deps.RateLimiter, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), deps.RateLimiter, logg), idempotency).
			Post("/register", controllers.AuthRegister(deps.Register, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate, idempotency)

		r.Get("/categories", controllers.ListCategories(deps.Equipment, logg))
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", controllers.ListEquipment(deps.Equipment, logg))
			r.Get("/{equipmentId}", controllers.GetEquipment(deps.Equipment, logg))
			r.Get("/{equipmentId}/price", controllers.PreviewPrice(deps.Equipment, logg))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ListClients(deps.Clients, logg))
			r.Post("/", controllers.CreateClient(deps.Clients, logg))
			r.Get("/{clientId}", controllers.GetClient(deps.Clients, logg))
			r.Put("/{clientId}", controllers.UpdateClient(deps.Clients, logg))
			r.Delete("/{clientId}", controllers.DeleteClient(deps.Clients, logg))
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", controllers.ListQuotes(deps.Quotes, logg))
			r.Post("/", controllers.CreateQuote(deps.Quotes, logg))
			r.Route("/{quoteId}", func(r chi.Router) {
				r.Get("/", controllers.GetQuote(deps.Quotes, logg))
				r.Delete("/", controllers.DeleteQuote(deps.Quotes, logg))
				r.Post("/lines", controllers.AddQuoteLine(deps.Quotes, logg))
				r.Put("/lines", controllers.ReplaceQuoteLines(deps.Quotes, logg))
				r.Patch("/lines/{lineId}", controllers.UpdateQuoteLine(deps.Quotes, logg))
				r.Delete("/lines/{lineId}", controllers.RemoveQuoteLine(deps.Quotes, logg))
				r.Post("/reprice", controllers.RepriceQuote(deps.Quotes, logg))
				r.Post("/status", controllers.TransitionQuote(deps.Quotes, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authenticate, middleware.RequireRole(logg, enums.UserRoleAdmin), idempotency)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(deps.Approvals, logg))
			r.Post("/{userId}/approve", controllers.AdminApproveUser(deps.Approvals, logg))
			r.Post("/{userId}/reject", controllers.AdminRejectUser(deps.Approvals, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CreateCategory(deps.Equipment, logg))
			r.Put("/{categoryId}", controllers.UpdateCategory(deps.Equipment, logg))
			r.Delete("/{categoryId}", controllers.DeleteCategory(deps.Equipment, logg))
		})
		r.Route("/equipment", func(r chi.Router) {
			r.Post("/", controllers.CreateEquipment(deps.Equipment, logg))
			r.Patch("/{equipmentId}", controllers.UpdateEquipment(deps.Equipment, logg))
			r.Delete("/{equipmentId}", controllers.DeleteEquipment(deps.Equipment, logg))
		})
		r.Post("/ratecards", controllers.ApplyRateCard(deps.Equipment, logg))
	})

	return r
}
