package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/creatorlink/creatorlink/internal/model"
)

// Common errors for campaign, invitation and negotiation reads.
var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrInvitationConflict  = errors.New("invitation changed concurrently")
	ErrNegotiationNotFound = errors.New("negotiation not found")
)

// GetCampaignOwner returns the brand user that owns a campaign.
func (r *Repository) GetCampaignOwner(ctx context.Context, campaignID string) (string, error) {
	var owner string
	err := r.pool.QueryRow(ctx, `SELECT brand_user_id FROM campaigns WHERE id = $1`, campaignID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrCampaignNotFound
		}
		return "", fmt.Errorf("failed to get campaign owner: %w", err)
	}
	return owner, nil
}

const invitationColumns = `
	i.id, i.campaign_id, c.brand_user_id, i.creator_user_id, i.status,
	i.offered_payout, i.negotiated_payout_delta, i.timeline_start, i.timeline_end,
	COALESCE(i.special_requirements, ''), i.created_at, i.updated_at
`

// GetInvitation retrieves an invitation with its campaign's brand owner.
func (r *Repository) GetInvitation(ctx context.Context, id string) (*model.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM campaign_invitations i
		JOIN campaigns c ON c.id = i.campaign_id
		WHERE i.id = $1
	`

	inv, err := scanInvitation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return inv, nil
}

// HasAcceptedInvitation reports whether the creator holds an accepted
// invitation on the campaign.
func (r *Repository) HasAcceptedInvitation(ctx context.Context, campaignID, creatorUserID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM campaign_invitations
			WHERE campaign_id = $1 AND creator_user_id = $2 AND status = 'accepted'
		)`, campaignID, creatorUserID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check invitation: %w", err)
	}
	return ok, nil
}

// ListInvitationsByCampaign returns every invitation of a campaign.
func (r *Repository) ListInvitationsByCampaign(ctx context.Context, campaignID string) ([]*model.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM campaign_invitations i
		JOIN campaigns c ON c.id = i.campaign_id
		WHERE i.campaign_id = $1
		ORDER BY i.created_at ASC, i.id ASC
	`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invitations, nil
}

// MarkInvitationNegotiating moves a non-terminal invitation owned by
// creatorUserID to negotiating. Returns ErrInvitationConflict when no row
// qualified at update time.
func (r *Repository) MarkInvitationNegotiating(ctx context.Context, id, creatorUserID string) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE campaign_invitations
		SET status = 'negotiating', updated_at = NOW()
		WHERE id = $1 AND creator_user_id = $2 AND status IN ('pending', 'negotiating')
		RETURNING updated_at
	`, id, creatorUserID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrInvitationConflict
		}
		return time.Time{}, fmt.Errorf("failed to mark invitation negotiating: %w", err)
	}
	return updatedAt, nil
}

// ListNegotiations returns an invitation's negotiation thread in chronological order.
func (r *Repository) ListNegotiations(ctx context.Context, invitationID string) ([]*model.Negotiation, error) {
	query := `
		SELECT id, invitation_id, proposer_role, proposed_payout, proposed_deliverables,
		       proposed_timeline_start, proposed_timeline_end, message, response, created_at
		FROM campaign_negotiations
		WHERE invitation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list negotiations: %w", err)
	}
	defer rows.Close()

	var thread []*model.Negotiation
	for rows.Next() {
		var (
			n        model.Negotiation
			role     string
			response *string
		)
		if err := rows.Scan(
			&n.ID,
			&n.InvitationID,
			&role,
			&n.ProposedPayout,
			&n.ProposedDeliverables,
			&n.ProposedTimelineStart,
			&n.ProposedTimelineEnd,
			&n.Message,
			&response,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan negotiation: %w", err)
		}
		n.ProposerRole = model.ProposerRole(role)
		if response != nil {
			r := model.NegotiationResponse(*response)
			n.Response = &r
		}
		thread = append(thread, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating negotiations: %w", err)
	}

	return thread, nil
}

// GetNegotiationInvitationID returns the invitation a negotiation belongs to.
func (r *Repository) GetNegotiationInvitationID(ctx context.Context, negotiationID string) (string, error) {
	var invitationID string
	err := r.pool.QueryRow(ctx,
		`SELECT invitation_id FROM campaign_negotiations WHERE id = $1`, negotiationID,
	).Scan(&invitationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNegotiationNotFound
		}
		return "", fmt.Errorf("failed to get negotiation: %w", err)
	}
	return invitationID, nil
}

// CountNegotiations returns the number of proposals in an invitation's thread.
func (r *Repository) CountNegotiations(ctx context.Context, invitationID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM campaign_negotiations WHERE invitation_id = $1`, invitationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count negotiations: %w", err)
	}
	return n, nil
}

func scanInvitation(row pgx.Row) (*model.Invitation, error) {
	var (
		inv    model.Invitation
		status string
	)
	err := row.Scan(
		&inv.ID,
		&inv.CampaignID,
		&inv.BrandUserID,
		&inv.CreatorUserID,
		&status,
		&inv.OfferedPayout,
		&inv.NegotiatedPayoutDelta,
		&inv.TimelineStart,
		&inv.TimelineEnd,
		&inv.SpecialRequirements,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = model.InvitationStatus(status)
	return &inv, nil
}
