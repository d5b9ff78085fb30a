// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TrackingEventType distinguishes clicks from conversions.
type TrackingEventType string

const (
	TrackingEventClick      TrackingEventType = "click"
	TrackingEventConversion TrackingEventType = "conversion"
)

// MaxTrackingMetaLength bounds stored user agent and referrer values.
const MaxTrackingMetaLength = 500

// TrackingEvent is an append-only click or conversion record.
type TrackingEvent struct {
	ID             string            `json:"id"` // ULID (time-sortable)
	TrackingLinkID string            `json:"tracking_link_id"`
	CampaignID     string            `json:"campaign_id"`
	CreatorUserID  string            `json:"creator_user_id"`
	EventType      TrackingEventType `json:"event_type"`

	// Keyed hash of the client IP; stable for the same IP.
	VisitorHash string `json:"visitor_hash,omitempty"`

	UserAgent string `json:"user_agent,omitempty"` // truncated to 500 chars
	Referrer  string `json:"referrer,omitempty"`   // truncated to 500 chars

	// Conversion-only fields
	ConversionValue *float64       `json:"conversion_value,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TruncateMeta trims a header value to MaxTrackingMetaLength characters.
// Invalid UTF-8 is replaced so the value always fits a text column.
func TruncateMeta(value string) string {
	value = strings.ToValidUTF8(value, "\uFFFD")
	if utf8.RuneCountInString(value) <= MaxTrackingMetaLength {
		return value
	}
	n := 0
	for i := range value {
		if n == MaxTrackingMetaLength {
			return value[:i]
		}
		n++
	}
	return value
}
