package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creatorlink/creatorlink/internal/analytics"
	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/model"
)

// AnalyticsService computes campaign analytics for its owner.
type AnalyticsService interface {
	CampaignAnalytics(ctx context.Context, caller *model.Caller, campaignID string) (*analytics.CampaignAnalytics, error)
}

// AnalyticsHandler serves campaign analytics.
type AnalyticsHandler struct {
	svc    AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger,
	}
}

// GetCampaignAnalytics handles GET /api/v1/campaigns/{id}/analytics.
func (h *AnalyticsHandler) GetCampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CampaignAnalytics(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to load campaign analytics")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
