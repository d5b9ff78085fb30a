package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/creatorlink/creatorlink/internal/model"
)

// Common errors for tracking link operations.
var (
	ErrTrackingLinkNotFound = errors.New("tracking link not found")
	ErrTrackingLinkExists   = errors.New("tracking link already exists for creator")
	ErrTrackingCodeTaken    = errors.New("tracking code already taken")
)

const (
	pgUniqueViolation = "23505"

	constraintCTACreator = "creator_tracking_links_cta_creator_key"
	constraintCode       = "creator_tracking_links_code_key"
)

const trackingLinkColumns = `
	t.id, t.cta_link_id, t.campaign_id, t.creator_user_id, t.tracking_code,
	t.short_url, t.original_url, t.qr_code_url, c.is_primary, t.click_count,
	t.last_clicked_at, t.created_at
`

// ListCTALinks returns a campaign's CTA links, oldest first.
func (r *Repository) ListCTALinks(ctx context.Context, campaignID string) ([]*model.CTALink, error) {
	query := `
		SELECT id, campaign_id, url, COALESCE(label, ''), is_primary, created_at
		FROM campaign_cta_links
		WHERE campaign_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cta links: %w", err)
	}
	defer rows.Close()

	var links []*model.CTALink
	for rows.Next() {
		var l model.CTALink
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.URL, &l.Label, &l.IsPrimary, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cta link: %w", err)
		}
		links = append(links, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cta links: %w", err)
	}

	return links, nil
}

// GetTrackingLinkForCreator returns the tracking link for a (CTA link, creator) pair.
func (r *Repository) GetTrackingLinkForCreator(ctx context.Context, ctaLinkID, creatorUserID string) (*model.TrackingLink, error) {
	query := `SELECT ` + trackingLinkColumns + `
		FROM creator_tracking_links t
		JOIN campaign_cta_links c ON c.id = t.cta_link_id
		WHERE t.cta_link_id = $1 AND t.creator_user_id = $2
	`

	link, err := scanTrackingLink(r.pool.QueryRow(ctx, query, ctaLinkID, creatorUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrackingLinkNotFound
		}
		return nil, fmt.Errorf("failed to get tracking link for creator: %w", err)
	}

	return link, nil
}

// GetTrackingLinkByCode retrieves a tracking link by its code.
// This is the hot path for clicks.
func (r *Repository) GetTrackingLinkByCode(ctx context.Context, code string) (*model.TrackingLink, error) {
	query := `SELECT ` + trackingLinkColumns + `
		FROM creator_tracking_links t
		JOIN campaign_cta_links c ON c.id = t.cta_link_id
		WHERE t.tracking_code = $1
	`

	link, err := scanTrackingLink(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrackingLinkNotFound
		}
		return nil, fmt.Errorf("failed to get tracking link by code: %w", err)
	}

	return link, nil
}

// TrackingCodeExists reports whether code is already assigned.
func (r *Repository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM creator_tracking_links WHERE tracking_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tracking code: %w", err)
	}
	return exists, nil
}

// CreateTrackingLink inserts a new tracking link.
// Returns ErrTrackingLinkExists or ErrTrackingCodeTaken on unique violations.
func (r *Repository) CreateTrackingLink(ctx context.Context, link *model.TrackingLink) error {
	query := `
		INSERT INTO creator_tracking_links (
			id, cta_link_id, campaign_id, creator_user_id, tracking_code,
			short_url, original_url, qr_code_url, click_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.CTALinkID,
		link.CampaignID,
		link.CreatorUserID,
		link.TrackingCode,
		link.ShortURL,
		link.OriginalURL,
		link.QRCodeURL,
		link.ClickCount,
		link.CreatedAt,
	)
	if err != nil {
		switch uniqueViolation(err) {
		case constraintCTACreator:
			return ErrTrackingLinkExists
		case constraintCode:
			return ErrTrackingCodeTaken
		}
		return fmt.Errorf("failed to create tracking link: %w", err)
	}

	return nil
}

// ListTrackingLinksByCampaign returns every creator's tracking links for a campaign.
func (r *Repository) ListTrackingLinksByCampaign(ctx context.Context, campaignID string) ([]*model.TrackingLink, error) {
	query := `SELECT ` + trackingLinkColumns + `
		FROM creator_tracking_links t
		JOIN campaign_cta_links c ON c.id = t.cta_link_id
		WHERE t.campaign_id = $1
		ORDER BY t.created_at ASC, t.id ASC
	`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking links: %w", err)
	}
	defer rows.Close()

	var links []*model.TrackingLink
	for rows.Next() {
		link, err := scanTrackingLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracking link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracking links: %w", err)
	}

	return links, nil
}

func scanTrackingLink(row pgx.Row) (*model.TrackingLink, error) {
	var l model.TrackingLink
	err := row.Scan(
		&l.ID,
		&l.CTALinkID,
		&l.CampaignID,
		&l.CreatorUserID,
		&l.TrackingCode,
		&l.ShortURL,
		&l.OriginalURL,
		&l.QRCodeURL,
		&l.IsPrimary,
		&l.ClickCount,
		&l.LastClickedAt,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// uniqueViolation returns the violated constraint name, or "" if err is not a unique violation.
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
