package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/handler/dto"
	"github.com/creatorlink/creatorlink/internal/invitation"
	"github.com/creatorlink/creatorlink/internal/model"
)

// InvitationService is the invitation workflow used by InvitationHandler.
type InvitationService interface {
	AcceptInvitation(ctx context.Context, caller *model.Caller, invitationID, campaignID string) (*invitation.AcceptOutcome, error)
	DeclineInvitation(ctx context.Context, caller *model.Caller, invitationID string, redistribute bool) (*invitation.DeclineOutcome, error)
	StartNegotiation(ctx context.Context, caller *model.Caller, invitationID string) (*model.Invitation, error)
}

// InvitationHandler handles a creator's invitation actions.
type InvitationHandler struct {
	svc    InvitationService
	logger *slog.Logger
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(svc InvitationService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		svc:    svc,
		logger: logger,
	}
}

// Accept handles POST /api/v1/invitations/{id}/accept.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req dto.AcceptInvitationRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	outcome, err := h.svc.AcceptInvitation(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"), req.CampaignID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to accept invitation")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*invitation.AcceptOutcome
	}{true, outcome})
}

// Decline handles POST /api/v1/invitations/{id}/decline. The body is optional
// and redistribute defaults to false.
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	var req dto.DeclineInvitationRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	outcome, err := h.svc.DeclineInvitation(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"), req.Redistribute)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to decline invitation")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*invitation.DeclineOutcome
	}{true, outcome})
}

// StartNegotiation handles POST /api/v1/invitations/{id}/negotiate.
func (h *InvitationHandler) StartNegotiation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.StartNegotiation(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to start negotiation")
		return
	}

	writeJSON(w, http.StatusOK, dto.InvitationResponse{Success: true, Invitation: inv})
}

