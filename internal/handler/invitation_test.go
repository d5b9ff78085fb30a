package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/handler/dto"
	"github.com/creatorlink/creatorlink/internal/invitation"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/rpc"
)

type fakeInvitationService struct {
	acceptErr  error
	declineErr error

	gotInvitationID string
	gotCampaignID   string
	gotRedistribute bool
	gotCaller       *model.Caller
}

func (f *fakeInvitationService) AcceptInvitation(ctx context.Context, caller *model.Caller, invitationID, campaignID string) (*invitation.AcceptOutcome, error) {
	f.gotCaller, f.gotInvitationID, f.gotCampaignID = caller, invitationID, campaignID
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	amount := 500.0
	return &invitation.AcceptOutcome{
		InvitationID:   invitationID,
		CampaignID:     campaignID,
		ReservedAmount: &amount,
		Links:          []*model.TrackingLink{},
		Message:        "Invitation accepted! $500 reserved from campaign budget.",
	}, nil
}

func (f *fakeInvitationService) DeclineInvitation(ctx context.Context, caller *model.Caller, invitationID string, redistribute bool) (*invitation.DeclineOutcome, error) {
	f.gotCaller, f.gotInvitationID, f.gotRedistribute = caller, invitationID, redistribute
	if f.declineErr != nil {
		return nil, f.declineErr
	}
	return &invitation.DeclineOutcome{InvitationID: invitationID, Redistribute: redistribute, Message: "Invitation declined."}, nil
}

func (f *fakeInvitationService) StartNegotiation(ctx context.Context, caller *model.Caller, invitationID string) (*model.Invitation, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}
	return &model.Invitation{ID: invitationID, Status: model.InvitationNegotiating}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func invitationRouter(svc InvitationService) http.Handler {
	h := NewInvitationHandler(svc, discardLogger())
	r := chi.NewRouter()
	r.Post("/api/v1/invitations/{id}/accept", h.Accept)
	r.Post("/api/v1/invitations/{id}/decline", h.Decline)
	r.Post("/api/v1/invitations/{id}/negotiate", h.StartNegotiation)
	return r
}

// serve runs req as userID; an empty userID sends it anonymously.
func serve(router http.Handler, req *http.Request, userID string) *httptest.ResponseRecorder {
	if userID != "" {
		req = req.WithContext(auth.ContextWithCaller(req.Context(), &model.Caller{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestInvitationHandler_Accept(t *testing.T) {
	svc := &fakeInvitationService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invitations/inv-1/accept", strings.NewReader(`{"campaignId":"camp-1"}`))

	rec := serve(invitationRouter(svc), req, "creator-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.gotInvitationID != "inv-1" || svc.gotCampaignID != "camp-1" || svc.gotCaller.UserID != "creator-1" {
		t.Errorf("service got (%q, %q, %q)", svc.gotInvitationID, svc.gotCampaignID, svc.gotCaller.UserID)
	}

	var body struct {
		Success        bool     `json:"success"`
		ReservedAmount *float64 `json:"reserved_amount"`
		Message        string   `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success || body.ReservedAmount == nil || *body.ReservedAmount != 500 {
		t.Errorf("body = %+v", body)
	}
	if !strings.Contains(body.Message, "500") {
		t.Errorf("message %q does not mention the reserved amount", body.Message)
	}
}

func TestInvitationHandler_AcceptErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "procedure rejection keeps its message",
			err:        &rpc.ProcedureError{Procedure: rpc.AcceptInvitation, Message: "Insufficient campaign budget"},
			body:       `{"campaignId":"camp-1"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PROCEDURE_REJECTED",
			wantMsg:    "Insufficient campaign budget",
		},
		{
			name:       "unauthenticated",
			err:        auth.ErrUnauthenticated,
			body:       `{"campaignId":"camp-1"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHENTICATED",
		},
		{
			name:       "missing campaign",
			err:        invitation.ErrInvalidInput,
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "concurrent accept",
			err:        invitation.ErrActionInProgress,
			body:       `{"campaignId":"camp-1"}`,
			wantStatus: http.StatusConflict,
			wantCode:   "ACTION_IN_PROGRESS",
		},
		{
			name:       "transport failure is generic",
			err:        errors.New("dial tcp: connection refused"),
			body:       `{"campaignId":"camp-1"}`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "Failed to accept invitation",
		},
		{
			name:       "malformed body",
			body:       `{"campaignId":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeInvitationService{acceptErr: tt.err}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/invitations/inv-1/accept", strings.NewReader(tt.body))

			rec := serve(invitationRouter(svc), req, "creator-1")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestInvitationHandler_Decline(t *testing.T) {
	tests := []struct {
		name             string
		body             string
		wantRedistribute bool
	}{
		{name: "empty body keeps budget", body: "", wantRedistribute: false},
		{name: "explicit false", body: `{"redistribute":false}`, wantRedistribute: false},
		{name: "redistribute", body: `{"redistribute":true}`, wantRedistribute: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeInvitationService{gotRedistribute: !tt.wantRedistribute}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/invitations/inv-2/decline", strings.NewReader(tt.body))

			rec := serve(invitationRouter(svc), req, "creator-1")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
			}
			if svc.gotRedistribute != tt.wantRedistribute {
				t.Errorf("redistribute = %v, want %v", svc.gotRedistribute, tt.wantRedistribute)
			}
		})
	}
}

func TestInvitationHandler_StartNegotiation(t *testing.T) {
	router := invitationRouter(&fakeInvitationService{})

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/invitations/inv-3/negotiate", nil), "creator-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body dto.InvitationResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Invitation == nil || body.Invitation.Status != model.InvitationNegotiating {
		t.Errorf("invitation = %+v, want negotiating", body.Invitation)
	}

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/invitations/inv-3/negotiate", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
}
