package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/handler"
	"github.com/creatorlink/creatorlink/internal/middleware"
)

// Handlers are the route targets mounted by NewRouter.
type Handlers struct {
	Health      *handler.HealthHandler
	Tracking    *handler.TrackingHandler
	Admin       *handler.AdminHandler
	Invitation  *handler.InvitationHandler
	Negotiation *handler.NegotiationHandler
	Analytics   *handler.AnalyticsHandler

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// RouterConfig carries the middleware settings of NewRouter.
type RouterConfig struct {
	Logger             *slog.Logger
	Verifier           *auth.Verifier
	Limiter            middleware.IPLimiter
	RateLimitEnabled   bool
	RateLimitRPS       int
	RateLimitBurst     int
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	IsDevelopment      bool
}

// NewRouter builds the chi router for the API and function endpoints.
func NewRouter(h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	authCfg := middleware.AuthConfig{Logger: cfg.Logger, Verifier: cfg.Verifier}
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.Limiter,
		Enabled: cfg.RateLimitEnabled,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
	}

	r.Route("/functions", func(r chi.Router) {
		r.Use(middleware.CORS(middleware.FunctionCORSConfig()))

		r.Route("/tracking-links", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(authCfg))
			r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/", h.Tracking.Click)
			r.Post("/", h.Tracking.Action)
		})

		r.With(middleware.Auth(authCfg)).Post("/user-management", h.Admin.UserManagement)
	})

	apiCORS := middleware.DefaultCORSConfig()
	apiCORS.AllowedOrigins = cfg.CORSAllowedOrigins

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(apiCORS))
		r.Use(middleware.Auth(authCfg))

		r.Route("/invitations/{id}", func(r chi.Router) {
			r.Post("/accept", h.Invitation.Accept)
			r.Post("/decline", h.Invitation.Decline)
			r.Post("/negotiate", h.Invitation.StartNegotiation)
			r.Get("/negotiations", h.Negotiation.List)
			r.Post("/counter-offers", h.Negotiation.SubmitCounterOffer)
		})
		r.Post("/negotiations/{id}/respond", h.Negotiation.Respond)
		r.Get("/campaigns/{id}/analytics", h.Analytics.GetCampaignAnalytics)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
