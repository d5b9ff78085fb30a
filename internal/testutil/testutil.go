// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/creatorlink/creatorlink/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates every table by replaying the init migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for _, name := range []string{"000001_init.down.sql", "000001_init.up.sql"} {
		sql, err := os.ReadFile(filepath.Join(root, "migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// SeedCampaign inserts a user, a brand-owned campaign and the given CTA URLs.
// The first URL is marked primary. Returns the campaign id and CTA links.
func SeedCampaign(ctx context.Context, t testing.TB, pool *pgxpool.Pool, brandID string, urls ...string) (string, []*model.CTALink) {
	t.Helper()

	SeedUser(ctx, t, pool, brandID, brandID+"@brand.example.com", model.RoleBrand)

	campaignID := UniqueID("camp")
	if _, err := pool.Exec(ctx,
		`INSERT INTO campaigns (id, brand_user_id, name, total_budget, remaining_budget) VALUES ($1, $2, $3, 10000, 10000)`,
		campaignID, brandID, "Test campaign",
	); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	links := make([]*model.CTALink, 0, len(urls))
	for i, u := range urls {
		l := &model.CTALink{
			ID:         UniqueID("cta"),
			CampaignID: campaignID,
			URL:        u,
			IsPrimary:  i == 0,
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO campaign_cta_links (id, campaign_id, url, is_primary) VALUES ($1, $2, $3, $4)`,
			l.ID, l.CampaignID, l.URL, l.IsPrimary,
		); err != nil {
			t.Fatalf("seed cta link: %v", err)
		}
		links = append(links, l)
	}

	return campaignID, links
}

// SeedUser inserts a user and its role, ignoring duplicates.
func SeedUser(ctx context.Context, t testing.TB, pool *pgxpool.Pool, id, email, role string) {
	t.Helper()
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (id, email) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, email,
	); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`, id, role,
	); err != nil {
		t.Fatalf("seed user role: %v", err)
	}
}

// SeedInvitation inserts an invitation for creatorID on campaignID.
func SeedInvitation(ctx context.Context, t testing.TB, pool *pgxpool.Pool, campaignID, creatorID string, status model.InvitationStatus, payout float64) string {
	t.Helper()

	SeedUser(ctx, t, pool, creatorID, creatorID+"@creator.example.com", model.RoleCreator)

	id := UniqueID("inv")
	if _, err := pool.Exec(ctx,
		`INSERT INTO campaign_invitations (id, campaign_id, creator_user_id, status, offered_payout) VALUES ($1, $2, $3, $4, $5)`,
		id, campaignID, creatorID, string(status), payout,
	); err != nil {
		t.Fatalf("seed invitation: %v", err)
	}
	return id
}

// NewTestTrackingLink creates an unsaved tracking link with sensible defaults.
func NewTestTrackingLink(t testing.TB, cta *model.CTALink, creatorID, code string) *model.TrackingLink {
	t.Helper()
	return &model.TrackingLink{
		ID:            UniqueID("tl"),
		CTALinkID:     cta.ID,
		CampaignID:    cta.CampaignID,
		CreatorUserID: creatorID,
		TrackingCode:  code,
		ShortURL:      "http://localhost:8080/functions/tracking-links?code=" + code,
		OriginalURL:   cta.URL,
		QRCodeURL:     "https://qr.example.com/?data=" + code,
		IsPrimary:     cta.IsPrimary,
		CreatedAt:     time.Now().UTC(),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
