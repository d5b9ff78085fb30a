// Package negotiation submits counter-offers and brand responses through the
// negotiation procedures and reads invitation threads.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/repository"
	"github.com/creatorlink/creatorlink/internal/rpc"
)

// Service errors.
var (
	ErrInvalidInput       = errors.New("invitationId is required")
	ErrNegotiationID      = errors.New("negotiationId is required")
	ErrMessageRequired    = errors.New("message is required")
	ErrInvalidResponse    = errors.New("response must be accepted, rejected or countered")
	ErrRoundLimitReached  = errors.New("negotiation round limit reached")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrNotFound           = errors.New("negotiation not found")
	ErrInvitationMismatch = errors.New("negotiation does not belong to invitationId")
	ErrForbidden          = errors.New("not a participant in this negotiation")
)

// dateLayout is the wire format of proposed timeline dates.
const dateLayout = "2006-01-02"

// Store reads invitations and their negotiation threads.
type Store interface {
	GetInvitation(ctx context.Context, id string) (*model.Invitation, error)
	ListNegotiations(ctx context.Context, invitationID string) ([]*model.Negotiation, error)
	CountNegotiations(ctx context.Context, invitationID string) (int, error)
	GetNegotiationInvitationID(ctx context.Context, negotiationID string) (string, error)
}

// CounterOffer is a creator's proposal. Nil fields are sent as null.
type CounterOffer struct {
	InvitationID          string
	ProposedPayout        *float64
	Message               string
	ProposedDeliverables  []string
	ProposedTimelineStart *time.Time
	ProposedTimelineEnd   *time.Time
}

// Counter carries the optional terms of a countered response.
type Counter struct {
	Payout  *float64
	Message *string
}

// Service talks to the negotiation procedures.
type Service struct {
	rpc       rpc.Caller
	store     Store
	maxRounds int
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewService creates a negotiation service. maxRounds <= 0 means unlimited.
func NewService(caller rpc.Caller, store Store, maxRounds int, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Service{
		rpc:       caller,
		store:     store,
		maxRounds: maxRounds,
		metrics:   recorder,
		logger:    logger.With("component", "negotiation"),
	}
}

// SubmitCounterOffer records a creator proposal via submit_negotiation_counter_offer.
// Fields are forwarded as given; callers send only the terms that changed.
func (s *Service) SubmitCounterOffer(ctx context.Context, caller *model.Caller, offer CounterOffer) (*rpc.CounterOfferResult, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if offer.InvitationID == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(offer.Message) == "" {
		return nil, ErrMessageRequired
	}
	if err := s.checkRounds(ctx, offer.InvitationID); err != nil {
		return nil, err
	}

	args := rpc.Args{
		"_invitation_id":           offer.InvitationID,
		"_proposed_payout":         nil,
		"_message":                 offer.Message,
		"_proposed_deliverables":   nil,
		"_proposed_timeline_start": formatDate(offer.ProposedTimelineStart),
		"_proposed_timeline_end":   formatDate(offer.ProposedTimelineEnd),
	}
	if offer.ProposedPayout != nil {
		args["_proposed_payout"] = *offer.ProposedPayout
	}
	if offer.ProposedDeliverables != nil {
		args["_proposed_deliverables"] = offer.ProposedDeliverables
	}

	result, err := rpc.Invoke[rpc.CounterOfferResult](ctx, s.rpc, caller.UserID, rpc.SubmitCounterOffer, args)
	s.recordProcedure(rpc.SubmitCounterOffer, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("counter_offer_submitted",
		"invitation_id", offer.InvitationID,
		"negotiation_id", result.NegotiationID,
		"creator_user_id", caller.UserID,
	)
	return result, nil
}

// RespondToNegotiation records a brand response via respond_to_negotiation.
// The counter terms are forwarded only for a countered response.
func (s *Service) RespondToNegotiation(ctx context.Context, caller *model.Caller, negotiationID, invitationID string, response model.NegotiationResponse, counter *Counter) (*rpc.RespondResult, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if negotiationID == "" {
		return nil, ErrNegotiationID
	}
	if !response.IsValid() {
		return nil, ErrInvalidResponse
	}

	// The round limit is counted on the negotiation's own thread.
	if response == model.ResponseCountered && s.maxRounds > 0 {
		owner, err := s.store.GetNegotiationInvitationID(ctx, negotiationID)
		if err != nil {
			if errors.Is(err, repository.ErrNegotiationNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get negotiation: %w", err)
		}
		if invitationID != "" && invitationID != owner {
			return nil, ErrInvitationMismatch
		}
		invitationID = owner
		if err := s.checkRounds(ctx, invitationID); err != nil {
			return nil, err
		}
	}

	args := rpc.Args{
		"_negotiation_id":  negotiationID,
		"_response":        string(response),
		"_counter_payout":  nil,
		"_counter_message": nil,
	}
	if response == model.ResponseCountered && counter != nil {
		if counter.Payout != nil {
			args["_counter_payout"] = *counter.Payout
		}
		if counter.Message != nil {
			args["_counter_message"] = *counter.Message
		}
	}

	result, err := rpc.Invoke[rpc.RespondResult](ctx, s.rpc, caller.UserID, rpc.RespondToNegotiation, args)
	s.recordProcedure(rpc.RespondToNegotiation, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("negotiation_responded",
		"negotiation_id", negotiationID,
		"invitation_id", invitationID,
		"response", response,
		"counter_negotiation_id", result.CounterNegotiationID,
	)
	return result, nil
}

// ListThread returns the invitation's proposals oldest first. Only the
// invited creator and the campaign's brand may read it.
func (s *Service) ListThread(ctx context.Context, caller *model.Caller, invitationID string) ([]*model.Negotiation, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}

	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if caller.UserID != inv.CreatorUserID && caller.UserID != inv.BrandUserID {
		return nil, ErrForbidden
	}

	thread, err := s.store.ListNegotiations(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("list negotiations: %w", err)
	}
	if thread == nil {
		thread = []*model.Negotiation{}
	}
	return thread, nil
}

func (s *Service) checkRounds(ctx context.Context, invitationID string) error {
	if s.maxRounds <= 0 {
		return nil
	}
	n, err := s.store.CountNegotiations(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("count negotiations: %w", err)
	}
	if n >= s.maxRounds {
		return ErrRoundLimitReached
	}
	return nil
}

func (s *Service) recordProcedure(procedure string, err error) {
	var procErr *rpc.ProcedureError
	switch {
	case err == nil:
		s.metrics.IncProcedureCall(procedure, metrics.OutcomeSuccess)
	case errors.As(err, &procErr):
		s.metrics.IncProcedureCall(procedure, metrics.OutcomeRejected)
	default:
		s.metrics.IncProcedureCall(procedure, metrics.OutcomeError)
	}
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}
