package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/handler/dto"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/negotiation"
	"github.com/creatorlink/creatorlink/internal/rpc"
)

// NegotiationService is the negotiation workflow used by NegotiationHandler.
type NegotiationService interface {
	SubmitCounterOffer(ctx context.Context, caller *model.Caller, offer negotiation.CounterOffer) (*rpc.CounterOfferResult, error)
	RespondToNegotiation(ctx context.Context, caller *model.Caller, negotiationID, invitationID string, response model.NegotiationResponse, counter *negotiation.Counter) (*rpc.RespondResult, error)
	ListThread(ctx context.Context, caller *model.Caller, invitationID string) ([]*model.Negotiation, error)
}

// NegotiationHandler handles counter offers and responses.
type NegotiationHandler struct {
	svc    NegotiationService
	logger *slog.Logger
}

// NewNegotiationHandler creates a new NegotiationHandler.
func NewNegotiationHandler(svc NegotiationService, logger *slog.Logger) *NegotiationHandler {
	return &NegotiationHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/invitations/{id}/negotiations.
func (h *NegotiationHandler) List(w http.ResponseWriter, r *http.Request) {
	thread, err := h.svc.ListThread(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to load negotiations")
		return
	}

	writeJSON(w, http.StatusOK, dto.NegotiationListResponse{Data: thread})
}

// SubmitCounterOffer handles POST /api/v1/invitations/{id}/counter-offers.
func (h *NegotiationHandler) SubmitCounterOffer(w http.ResponseWriter, r *http.Request) {
	var req dto.CounterOfferRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	start, err := dto.ParseDate("proposedTimelineStart", req.ProposedTimelineStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	end, err := dto.ParseDate("proposedTimelineEnd", req.ProposedTimelineEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.svc.SubmitCounterOffer(r.Context(), auth.CallerFromContext(r.Context()), negotiation.CounterOffer{
		InvitationID:          chi.URLParam(r, "id"),
		ProposedPayout:        req.ProposedPayout,
		Message:               req.Message,
		ProposedDeliverables:  req.ProposedDeliverables,
		ProposedTimelineStart: start,
		ProposedTimelineEnd:   end,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to submit counter offer")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Respond handles POST /api/v1/negotiations/{id}/respond.
func (h *NegotiationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req dto.RespondRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	var counter *negotiation.Counter
	if req.CounterPayout != nil || req.CounterMessage != nil {
		counter = &negotiation.Counter{Payout: req.CounterPayout, Message: req.CounterMessage}
	}

	result, err := h.svc.RespondToNegotiation(r.Context(), auth.CallerFromContext(r.Context()),
		chi.URLParam(r, "id"), req.InvitationID, model.NegotiationResponse(req.Response), counter)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to respond to negotiation")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
