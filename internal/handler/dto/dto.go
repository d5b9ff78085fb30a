// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"fmt"
	"time"

	"github.com/creatorlink/creatorlink/internal/model"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// DateLayout is the wire format of proposed timeline dates.
const DateLayout = "2006-01-02"

// AcceptInvitationRequest is the body of POST /api/v1/invitations/{id}/accept.
type AcceptInvitationRequest struct {
	CampaignID string `json:"campaignId"`
}

// DeclineInvitationRequest is the body of POST /api/v1/invitations/{id}/decline.
type DeclineInvitationRequest struct {
	Redistribute bool `json:"redistribute"`
}

// CounterOfferRequest is the body of POST /api/v1/invitations/{id}/counter-offers.
// Timeline dates use DateLayout.
type CounterOfferRequest struct {
	ProposedPayout        *float64 `json:"proposedPayout"`
	Message               string   `json:"message"`
	ProposedDeliverables  []string `json:"proposedDeliverables"`
	ProposedTimelineStart *string  `json:"proposedTimelineStart"`
	ProposedTimelineEnd   *string  `json:"proposedTimelineEnd"`
}

// RespondRequest is the body of POST /api/v1/negotiations/{id}/respond.
type RespondRequest struct {
	InvitationID   string   `json:"invitationId"`
	Response       string   `json:"response"`
	CounterPayout  *float64 `json:"counterPayout"`
	CounterMessage *string  `json:"counterMessage"`
}

// InvitationResponse wraps an invitation after a state change.
type InvitationResponse struct {
	Success    bool              `json:"success"`
	Invitation *model.Invitation `json:"invitation"`
}

// NegotiationListResponse is the negotiation thread of one invitation.
type NegotiationListResponse struct {
	Data []*model.Negotiation `json:"data"`
}

// Tracking function actions.
const (
	ActionGenerateCreatorLinks = "generate-creator-links"
	ActionRecordConversion     = "record-conversion"
)

// TrackingFunctionRequest is the POST body of the tracking-links function.
// Which fields apply depends on Action.
type TrackingFunctionRequest struct {
	Action          string         `json:"action"`
	CampaignID      string         `json:"campaignId,omitempty"`
	CreatorUserID   string         `json:"creatorUserId,omitempty"`
	TrackingCode    string         `json:"trackingCode,omitempty"`
	ConversionValue *float64       `json:"conversionValue,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// GenerateLinksResponse lists a creator's tracking links. Success is omitted
// when the campaign has no CTA links and Message explains why.
type GenerateLinksResponse struct {
	Success bool                  `json:"success,omitempty"`
	Message string                `json:"message,omitempty"`
	Links   []*model.TrackingLink `json:"links"`
}

// SuccessResponse is returned by actions with no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ParseDate parses an optional DateLayout value. Nil or empty yields nil.
func ParseDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("%s must be a YYYY-MM-DD date", field)
	}
	return &t, nil
}
