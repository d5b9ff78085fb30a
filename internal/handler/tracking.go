package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/handler/dto"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/tracking"
)

// TrackingService is the tracking workflow used by TrackingHandler.
type TrackingService interface {
	GenerateCreatorLinks(ctx context.Context, campaignID, creatorUserID string) ([]*model.TrackingLink, error)
	AuthorizeGeneration(ctx context.Context, caller *model.Caller, campaignID, creatorUserID string) error
	RecordClick(ctx context.Context, code string, visitor tracking.VisitorInfo) (*model.TrackingLink, error)
	RecordConversion(ctx context.Context, code string, value *float64, metadata map[string]any) (*model.TrackingEvent, error)
}

const noCTALinksMessage = "No CTA links found for this campaign"

// TrackingHandler serves the tracking-links function: click redirects,
// link generation and conversion recording.
type TrackingHandler struct {
	svc    TrackingService
	logger *slog.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(svc TrackingService, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{
		svc:    svc,
		logger: logger,
	}
}

// Click handles GET /functions/tracking-links?code=<code>. The redirect is
// only issued once the click has been stored.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Tracking code is required")
		return
	}

	start := time.Now()
	link, err := h.svc.RecordClick(r.Context(), code, tracking.VisitorInfo{
		IP:        remoteIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		Referrer:  r.Header.Get("Referer"),
	})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, tracking.ErrLinkNotFound) {
			h.logger.Info("tracking_click_not_found",
				"tracking_code", code,
				"duration_ms", float64(duration.Microseconds())/1000,
			)
			writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Tracking link not found")
			return
		}
		h.logger.Error("tracking_click_failed",
			"tracking_code", code,
			"error", err,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record click")
		return
	}

	h.logger.Info("tracking_click_recorded",
		"tracking_code", code,
		"tracking_link_id", link.ID,
		"campaign_id", link.CampaignID,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	w.Header().Set("Cache-Control", "private, max-age=0")
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

// Action handles POST /functions/tracking-links.
func (h *TrackingHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackingFunctionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	switch req.Action {
	case dto.ActionGenerateCreatorLinks:
		h.generateCreatorLinks(w, r, req)
	case dto.ActionRecordConversion:
		h.recordConversion(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "INVALID_ACTION", "Invalid action")
	}
}

func (h *TrackingHandler) generateCreatorLinks(w http.ResponseWriter, r *http.Request, req dto.TrackingFunctionRequest) {
	caller := auth.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		writeServiceError(w, r, h.logger, auth.ErrUnauthenticated, "")
		return
	}
	if req.CampaignID == "" || req.CreatorUserID == "" {
		writeServiceError(w, r, h.logger, tracking.ErrInvalidInput, "")
		return
	}

	if err := h.svc.AuthorizeGeneration(r.Context(), caller, req.CampaignID, req.CreatorUserID); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to generate tracking links")
		return
	}

	links, err := h.svc.GenerateCreatorLinks(r.Context(), req.CampaignID, req.CreatorUserID)
	if err != nil {
		if errors.Is(err, tracking.ErrNoCTALinks) {
			writeJSON(w, http.StatusOK, dto.GenerateLinksResponse{
				Message: noCTALinksMessage,
				Links:   []*model.TrackingLink{},
			})
			return
		}
		writeServiceError(w, r, h.logger, err, "Failed to generate tracking links")
		return
	}

	writeJSON(w, http.StatusOK, dto.GenerateLinksResponse{Success: true, Links: links})
}

func (h *TrackingHandler) recordConversion(w http.ResponseWriter, r *http.Request, req dto.TrackingFunctionRequest) {
	if req.TrackingCode == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Tracking code is required")
		return
	}

	if _, err := h.svc.RecordConversion(r.Context(), req.TrackingCode, req.ConversionValue, req.Metadata); err != nil {
		if errors.Is(err, tracking.ErrLinkNotFound) {
			writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Tracking link not found")
			return
		}
		writeServiceError(w, r, h.logger, err, "Failed to record conversion")
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// remoteIP returns the client address after chi's RealIP has run.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
