// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// CTALink is a brand-defined destination for a campaign.
// CTA links are immutable once created.
type CTALink struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	URL        string    `json:"url"`
	Label      string    `json:"label,omitempty"`
	IsPrimary  bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}

// TrackingLink is the per-creator short link for one CTA link.
// There is at most one per (CTALinkID, CreatorUserID).
type TrackingLink struct {
	ID            string     `json:"id"`
	CTALinkID     string     `json:"cta_link_id"`
	CampaignID    string     `json:"campaign_id"`
	CreatorUserID string     `json:"creator_user_id"`
	TrackingCode  string     `json:"tracking_code"`
	ShortURL      string     `json:"short_url"`
	OriginalURL   string     `json:"original_url"`
	QRCodeURL     string     `json:"qr_code_url"`
	IsPrimary     bool       `json:"is_primary"`
	ClickCount    int64      `json:"click_count"`
	LastClickedAt *time.Time `json:"last_clicked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CachedTrackingLink is the subset of a tracking link kept in Redis for click resolution.
// Uses string types for Redis hash compatibility.
type CachedTrackingLink struct {
	ID            string `redis:"id"`
	CampaignID    string `redis:"campaign_id"`
	CreatorUserID string `redis:"creator_user_id"`
	OriginalURL   string `redis:"original_url"`
	CreatedAt     string `redis:"created_at"` // Unix timestamp
}

// ToCached converts a TrackingLink to its cached representation.
func (l *TrackingLink) ToCached() *CachedTrackingLink {
	return &CachedTrackingLink{
		ID:            l.ID,
		CampaignID:    l.CampaignID,
		CreatorUserID: l.CreatorUserID,
		OriginalURL:   l.OriginalURL,
		CreatedAt:     strconv.FormatInt(l.CreatedAt.Unix(), 10),
	}
}

// ToTrackingLink rebuilds a partial TrackingLink from cache.
// Click counters are not cached and stay zero.
func (c *CachedTrackingLink) ToTrackingLink(code string) *TrackingLink {
	link := &TrackingLink{
		ID:            c.ID,
		CampaignID:    c.CampaignID,
		CreatorUserID: c.CreatorUserID,
		TrackingCode:  code,
		OriginalURL:   c.OriginalURL,
	}

	if c.CreatedAt != "" {
		if ts, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
			link.CreatedAt = time.Unix(ts, 0)
		}
	}

	return link
}

// IsComplete reports whether the cached entry carries everything a click needs.
func (c *CachedTrackingLink) IsComplete() bool {
	return c.ID != "" && c.CampaignID != "" && c.CreatorUserID != "" && c.OriginalURL != ""
}
