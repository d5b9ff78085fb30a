package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/cache"
	"github.com/creatorlink/creatorlink/internal/handler"
)

type denyAll struct{}

func (denyAll) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error) {
	return &cache.RateLimitResult{Allowed: false, RetryAfter: time.Second}, nil
}

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(Handlers{
		Health:      handler.NewHealthHandler(),
		Tracking:    handler.NewTrackingHandler(nil, logger),
		Admin:       handler.NewAdminHandler(nil, logger),
		Invitation:  handler.NewInvitationHandler(nil, logger),
		Negotiation: handler.NewNegotiationHandler(nil, logger),
		Analytics:   handler.NewAnalyticsHandler(nil, logger),
	}, RouterConfig{
		Logger:             logger,
		Verifier:           auth.NewVerifier("router-test-secret"),
		Limiter:            denyAll{},
		RateLimitEnabled:   true,
		RateLimitRPS:       1,
		RateLimitBurst:     1,
		MaxRequestBodySize: 1 << 20,
	})
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantACAO   string
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "tracking preflight", method: http.MethodOptions, path: "/functions/tracking-links", wantStatus: http.StatusNoContent, wantACAO: "*"},
		{name: "user-management preflight", method: http.MethodOptions, path: "/functions/user-management", wantStatus: http.StatusNoContent, wantACAO: "*"},
		{name: "click is rate limited", method: http.MethodGet, path: "/functions/tracking-links?code=Ab3dEf9h", wantStatus: http.StatusTooManyRequests, wantACAO: "*"},
		{name: "user-management needs token", method: http.MethodPost, path: "/functions/user-management", wantStatus: http.StatusUnauthorized, wantACAO: "*"},
		{name: "accept needs token", method: http.MethodPost, path: "/api/v1/invitations/inv-1/accept", wantStatus: http.StatusUnauthorized},
		{name: "analytics needs token", method: http.MethodGet, path: "/api/v1/campaigns/camp-1/analytics", wantStatus: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Origin", "https://app.example")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantACAO)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}
