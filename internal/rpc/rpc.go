// Package rpc invokes Postgres functions that own the money-moving
// invitation and negotiation transitions, and decodes their result envelopes.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Procedure names.
const (
	AcceptInvitation     = "accept_campaign_invitation"
	DeclineInvitation    = "decline_campaign_invitation"
	SubmitCounterOffer   = "submit_negotiation_counter_offer"
	RespondToNegotiation = "respond_to_negotiation"
)

// ErrInvalidProcedure is returned for names that are not plain identifiers.
var ErrInvalidProcedure = errors.New("invalid procedure name")

// Args are named procedure arguments. Keys carry the leading underscore
// used by the database functions; nil values are sent as SQL NULL.
type Args map[string]any

// Caller invokes a remote procedure on behalf of userID and returns the raw JSON result.
type Caller interface {
	Call(ctx context.Context, userID, procedure string, args Args) (json.RawMessage, error)
}

// ProcedureError is a business-rule rejection reported by a procedure.
// Message is the procedure's own text and is safe to show to users.
type ProcedureError struct {
	Procedure string
	Message   string
}

func (e *ProcedureError) Error() string {
	return e.Message
}

// Envelope is the common part of every procedure result.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AcceptResult is returned by accept_campaign_invitation.
type AcceptResult struct {
	Envelope
	ReservedAmount *float64 `json:"reserved_amount,omitempty"`
}

// DeclineResult is returned by decline_campaign_invitation.
type DeclineResult struct {
	Envelope
}

// CounterOfferResult is returned by submit_negotiation_counter_offer.
type CounterOfferResult struct {
	Envelope
	NegotiationID string `json:"negotiation_id,omitempty"`
}

// RespondResult is returned by respond_to_negotiation.
type RespondResult struct {
	Envelope
	Response             string `json:"response,omitempty"`
	CounterNegotiationID string `json:"counter_negotiation_id,omitempty"`
}

type enveloper interface {
	envelope() Envelope
}

func (e Envelope) envelope() Envelope { return e }

// Invoke calls procedure through c and decodes the result into T.
// A success:false envelope is returned as *ProcedureError.
func Invoke[T enveloper](ctx context.Context, c Caller, userID, procedure string, args Args) (*T, error) {
	raw, err := c.Call(ctx, userID, procedure, args)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", procedure, err)
	}

	env := out.envelope()
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "The request was rejected"
		}
		return &out, &ProcedureError{Procedure: procedure, Message: msg}
	}

	return &out, nil
}
