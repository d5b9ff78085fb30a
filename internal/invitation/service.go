// Package invitation accepts, declines and opens negotiation on campaign
// invitations. Budget changes happen only inside the remote procedures.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/cache"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/repository"
	"github.com/creatorlink/creatorlink/internal/rpc"
)

// Service errors.
var (
	ErrInvalidInput       = errors.New("invitationId and campaignId are required")
	ErrActionInProgress   = errors.New("this invitation is already being processed")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrForbidden          = errors.New("invitation belongs to another creator")
	ErrInvitationClosed   = errors.New("invitation is no longer open")
	ErrCampaignMismatch   = errors.New("campaignId does not match the invitation")
)

// DefaultLockTTL bounds how long an accept holds its action lock.
const DefaultLockTTL = 30 * time.Second

// Store is the direct-update surface used for starting a negotiation.
type Store interface {
	GetInvitation(ctx context.Context, id string) (*model.Invitation, error)
	MarkInvitationNegotiating(ctx context.Context, id, creatorUserID string) (time.Time, error)
}

// Locker de-duplicates concurrent actions on the same invitation.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// LinkGenerator provisions tracking links after an accept.
type LinkGenerator interface {
	GenerateCreatorLinks(ctx context.Context, campaignID, creatorUserID string) ([]*model.TrackingLink, error)
}

// Enqueuer schedules link generation for later.
type Enqueuer interface {
	Enqueue(ctx context.Context, invitationID, campaignID, creatorUserID string) (string, error)
}

// AcceptOutcome is the result of a successful accept.
type AcceptOutcome struct {
	InvitationID      string                `json:"invitation_id"`
	CampaignID        string                `json:"campaign_id"`
	ReservedAmount    *float64              `json:"reserved_amount,omitempty"`
	Links             []*model.TrackingLink `json:"links"`
	LinksPending      bool                  `json:"links_pending"`
	ProvisioningJobID string                `json:"provisioning_job_id,omitempty"`
	Message           string                `json:"message"`
}

// DeclineOutcome is the result of a successful decline.
type DeclineOutcome struct {
	InvitationID string `json:"invitation_id"`
	Redistribute bool   `json:"redistribute"`
	Message      string `json:"message"`
}

// Service orchestrates invitation transitions.
type Service struct {
	rpc       rpc.Caller
	store     Store
	locker    Locker
	generator LinkGenerator
	enqueuer  Enqueuer
	lockTTL   time.Duration
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// Options holds the optional collaborators of Service.
type Options struct {
	Locker   Locker   // nil disables the accept lock
	Enqueuer Enqueuer // nil disables deferred provisioning
	LockTTL  time.Duration
}

// NewService creates an invitation service.
func NewService(caller rpc.Caller, store Store, generator LinkGenerator, opts Options, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Service{
		rpc:       caller,
		store:     store,
		locker:    opts.Locker,
		generator: generator,
		enqueuer:  opts.Enqueuer,
		lockTTL:   ttl,
		metrics:   recorder,
		logger:    logger.With("component", "invitation"),
	}
}

// AcceptInvitation reserves budget through accept_campaign_invitation and
// then provisions tracking links. Link failures never undo the accept.
func (s *Service) AcceptInvitation(ctx context.Context, caller *model.Caller, invitationID, campaignID string) (*AcceptOutcome, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if invitationID == "" || campaignID == "" {
		return nil, ErrInvalidInput
	}

	// Links are provisioned on the invitation's own campaign.
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.CampaignID != campaignID {
		return nil, ErrCampaignMismatch
	}

	if s.locker != nil {
		release, err := s.locker.AcquireLock(ctx, "invitation:"+invitationID+":accept", s.lockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				return nil, ErrActionInProgress
			}
			return nil, fmt.Errorf("acquire accept lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("accept_lock_release_failed", "invitation_id", invitationID, "error", err)
			}
		}()
	}

	result, err := rpc.Invoke[rpc.AcceptResult](ctx, s.rpc, caller.UserID, rpc.AcceptInvitation, rpc.Args{
		"_invitation_id": invitationID,
	})
	if err != nil {
		s.recordProcedure(rpc.AcceptInvitation, err)
		return nil, err
	}
	s.metrics.IncProcedureCall(rpc.AcceptInvitation, metrics.OutcomeSuccess)

	out := &AcceptOutcome{
		InvitationID:   invitationID,
		CampaignID:     campaignID,
		ReservedAmount: result.ReservedAmount,
		Links:          []*model.TrackingLink{},
	}

	links, genErr := s.generator.GenerateCreatorLinks(ctx, campaignID, caller.UserID)
	if genErr != nil {
		s.logger.Warn("post_accept_link_generation_failed",
			"invitation_id", invitationID,
			"campaign_id", campaignID,
			"error", genErr,
		)
		out.LinksPending = true
		if s.enqueuer != nil {
			jobID, err := s.enqueuer.Enqueue(context.WithoutCancel(ctx), invitationID, campaignID, caller.UserID)
			if err != nil {
				s.logger.Error("provisioning_enqueue_failed", "invitation_id", invitationID, "error", err)
			}
			out.ProvisioningJobID = jobID
		}
	} else {
		out.Links = links
	}

	out.Message = acceptMessage(result.ReservedAmount, out.LinksPending)

	s.logger.Info("invitation_accepted",
		"invitation_id", invitationID,
		"campaign_id", campaignID,
		"creator_user_id", caller.UserID,
		"links", len(out.Links),
		"links_pending", out.LinksPending,
	)
	return out, nil
}

// DeclineInvitation calls decline_campaign_invitation, forwarding redistribute
// as given so the procedure knows whether to release the reservation.
func (s *Service) DeclineInvitation(ctx context.Context, caller *model.Caller, invitationID string, redistribute bool) (*DeclineOutcome, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if invitationID == "" {
		return nil, ErrInvalidInput
	}

	_, err := rpc.Invoke[rpc.DeclineResult](ctx, s.rpc, caller.UserID, rpc.DeclineInvitation, rpc.Args{
		"_invitation_id": invitationID,
		"_redistribute":  redistribute,
	})
	s.recordProcedure(rpc.DeclineInvitation, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation_declined",
		"invitation_id", invitationID,
		"creator_user_id", caller.UserID,
		"redistribute", redistribute,
	)

	msg := "Invitation declined."
	if redistribute {
		msg = "Invitation declined. Reserved budget returned to the campaign."
	}
	return &DeclineOutcome{InvitationID: invitationID, Redistribute: redistribute, Message: msg}, nil
}

// StartNegotiation moves an open invitation to negotiating. No money moves,
// so this is a plain conditional update rather than a procedure call.
func (s *Service) StartNegotiation(ctx context.Context, caller *model.Caller, invitationID string) (*model.Invitation, error) {
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
	if inv.CreatorUserID != caller.UserID {
		return nil, ErrForbidden
	}
	if inv.Status.IsTerminal() {
		return nil, ErrInvitationClosed
	}

	updatedAt, err := s.store.MarkInvitationNegotiating(ctx, invitationID, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationConflict) {
			return nil, ErrInvitationClosed
		}
		return nil, fmt.Errorf("mark invitation negotiating: %w", err)
	}

	inv.Status = model.InvitationNegotiating
	inv.UpdatedAt = updatedAt
	s.logger.Info("invitation_negotiation_started", "invitation_id", invitationID, "creator_user_id", caller.UserID)
	return inv, nil
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

func acceptMessage(amount *float64, pending bool) string {
	msg := "Invitation accepted!"
	if amount != nil {
		msg += " $" + strconv.FormatFloat(*amount, 'f', -1, 64) + " reserved from campaign budget."
	}
	if pending {
		msg += " Tracking links will be generated shortly."
	}
	return msg
}
