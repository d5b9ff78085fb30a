package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/creatorlink/creatorlink/internal/model"
)

const insertTrackingEventSQL = `
	INSERT INTO tracking_events (
		id, tracking_link_id, campaign_id, creator_user_id, event_type,
		visitor_hash, user_agent, referrer, conversion_value, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// RecordClick appends a click event and bumps the link's counter in one transaction.
func (r *Repository) RecordClick(ctx context.Context, event *model.TrackingEvent) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertTrackingEvent(ctx, tx, event); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `
			UPDATE creator_tracking_links
			SET click_count = click_count + 1, last_clicked_at = $2
			WHERE id = $1
		`, event.TrackingLinkID, event.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to increment click count: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrTrackingLinkNotFound
		}
		return nil
	})
}

// InsertTrackingEvent appends a single event without touching counters.
func (r *Repository) InsertTrackingEvent(ctx context.Context, event *model.TrackingEvent) error {
	return insertTrackingEvent(ctx, r.pool, event)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTrackingEvent(ctx context.Context, db execer, event *model.TrackingEvent) error {
	var metadata any
	if len(event.Metadata) > 0 {
		metadata = event.Metadata
	}

	_, err := db.Exec(ctx, insertTrackingEventSQL,
		event.ID,
		event.TrackingLinkID,
		event.CampaignID,
		event.CreatorUserID,
		string(event.EventType),
		nullableString(event.VisitorHash),
		nullableString(model.TruncateMeta(event.UserAgent)),
		nullableString(model.TruncateMeta(event.Referrer)),
		event.ConversionValue,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.EventType, err)
	}
	return nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
