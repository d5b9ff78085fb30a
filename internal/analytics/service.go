package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/repository"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrForbidden        = errors.New("only the campaign owner can view analytics")
)

// Store reads the collections the aggregator joins.
type Store interface {
	GetCampaignOwner(ctx context.Context, campaignID string) (string, error)
	ListInvitationsByCampaign(ctx context.Context, campaignID string) ([]*model.Invitation, error)
	ListTrackingLinksByCampaign(ctx context.Context, campaignID string) ([]*model.TrackingLink, error)
	ListCTALinks(ctx context.Context, campaignID string) ([]*model.CTALink, error)
}

// Service loads campaign data and aggregates it.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates an analytics service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "analytics"),
	}
}

// CampaignAnalytics returns the aggregated analytics for a campaign owned by caller.
func (s *Service) CampaignAnalytics(ctx context.Context, caller *model.Caller, campaignID string) (*CampaignAnalytics, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}
	owner, err := s.store.GetCampaignOwner(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("lookup campaign owner: %w", err)
	}
	if owner != caller.UserID {
		return nil, ErrForbidden
	}

	invitations, err := s.store.ListInvitationsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	links, err := s.store.ListTrackingLinksByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list tracking links: %w", err)
	}
	ctas, err := s.store.ListCTALinks(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list cta links: %w", err)
	}

	result := Aggregate(invitations, links, ctas)
	s.logger.Debug("campaign_analytics_computed",
		"campaign_id", campaignID,
		"creators", len(result.Leaderboard),
		"total_clicks", result.TotalClicks,
	)
	return result, nil
}
