package model

import (
	"slices"
	"time"
)

// InvitationStatus is the lifecycle state of a campaign invitation.
type InvitationStatus string

const (
	InvitationPending     InvitationStatus = "pending"
	InvitationNegotiating InvitationStatus = "negotiating"
	InvitationAccepted    InvitationStatus = "accepted"
	InvitationDeclined    InvitationStatus = "declined"
)

// IsTerminal returns true for accepted and declined.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined
}

// Invitation is a brand-to-creator offer tied to one campaign.
type Invitation struct {
	ID                    string           `json:"id"`
	CampaignID            string           `json:"campaign_id"`
	BrandUserID           string           `json:"brand_user_id,omitempty"`
	CreatorUserID         string           `json:"creator_user_id"`
	Status                InvitationStatus `json:"status"`
	OfferedPayout         float64          `json:"offered_payout"`
	NegotiatedPayoutDelta float64          `json:"negotiated_payout_delta"`
	TimelineStart         *time.Time       `json:"timeline_start,omitempty"`
	TimelineEnd           *time.Time       `json:"timeline_end,omitempty"`
	SpecialRequirements   string           `json:"special_requirements,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// AgreedPayout is the offered payout adjusted by any accepted negotiation.
func (i *Invitation) AgreedPayout() float64 {
	return i.OfferedPayout + i.NegotiatedPayoutDelta
}

// ProposerRole identifies who authored a negotiation proposal.
type ProposerRole string

const (
	ProposerCreator ProposerRole = "creator"
	ProposerBrand   ProposerRole = "brand"
)

// NegotiationResponse is the brand's answer to a proposal.
type NegotiationResponse string

const (
	ResponseAccepted  NegotiationResponse = "accepted"
	ResponseRejected  NegotiationResponse = "rejected"
	ResponseCountered NegotiationResponse = "countered"
)

// ValidResponses lists every accepted NegotiationResponse value.
var ValidResponses = []NegotiationResponse{ResponseAccepted, ResponseRejected, ResponseCountered}

// IsValid reports whether r is one of ValidResponses.
func (r NegotiationResponse) IsValid() bool {
	return slices.Contains(ValidResponses, r)
}

// IsTerminal returns true when the response closes the thread.
func (r NegotiationResponse) IsTerminal() bool {
	return r == ResponseAccepted || r == ResponseRejected
}

// Negotiation is one proposal in an invitation's negotiation thread.
type Negotiation struct {
	ID                    string               `json:"id"`
	InvitationID          string               `json:"invitation_id"`
	ProposerRole          ProposerRole         `json:"proposer_role"`
	ProposedPayout        *float64             `json:"proposed_payout,omitempty"`
	ProposedDeliverables  []string             `json:"proposed_deliverables,omitempty"`
	ProposedTimelineStart *time.Time           `json:"proposed_timeline_start,omitempty"`
	ProposedTimelineEnd   *time.Time           `json:"proposed_timeline_end,omitempty"`
	Message               string               `json:"message"`
	Response              *NegotiationResponse `json:"response,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
}

// IsOpen returns true while the proposal awaits a response.
func (n *Negotiation) IsOpen() bool {
	return n.Response == nil
}
