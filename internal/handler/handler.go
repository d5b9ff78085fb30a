// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/creatorlink/creatorlink/internal/admin"
	"github.com/creatorlink/creatorlink/internal/analytics"
	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/handler/dto"
	"github.com/creatorlink/creatorlink/internal/invitation"
	"github.com/creatorlink/creatorlink/internal/negotiation"
	"github.com/creatorlink/creatorlink/internal/rpc"
	"github.com/creatorlink/creatorlink/internal/tracking"
)

// errNoBody is returned by decodeJSON for an empty body when one is required.
var errNoBody = errors.New("request body is required")

// errorMapping ties a service sentinel to its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},

	{invitation.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{negotiation.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{analytics.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{tracking.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{admin.ErrNotAdmin, http.StatusForbidden, "FORBIDDEN"},
	{admin.ErrProtectedAccount, http.StatusForbidden, "FORBIDDEN"},

	{invitation.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
	{invitation.ErrCampaignMismatch, http.StatusBadRequest, "VALIDATION_ERROR"},
	{negotiation.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
	{negotiation.ErrNegotiationID, http.StatusBadRequest, "VALIDATION_ERROR"},
	{negotiation.ErrMessageRequired, http.StatusBadRequest, "VALIDATION_ERROR"},
	{negotiation.ErrInvalidResponse, http.StatusBadRequest, "VALIDATION_ERROR"},
	{negotiation.ErrInvitationMismatch, http.StatusBadRequest, "VALIDATION_ERROR"},
	{tracking.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
	{admin.ErrUnknownAction, http.StatusBadRequest, "UNKNOWN_ACTION"},
	{admin.ErrUserIDRequired, http.StatusBadRequest, "VALIDATION_ERROR"},
	{admin.ErrInvalidRole, http.StatusBadRequest, "VALIDATION_ERROR"},
	{admin.ErrSelfDisable, http.StatusBadRequest, "SELF_DISABLE"},

	{invitation.ErrInvitationNotFound, http.StatusNotFound, "INVITATION_NOT_FOUND"},
	{negotiation.ErrInvitationNotFound, http.StatusNotFound, "INVITATION_NOT_FOUND"},
	{negotiation.ErrNotFound, http.StatusNotFound, "NEGOTIATION_NOT_FOUND"},
	{analytics.ErrCampaignNotFound, http.StatusNotFound, "CAMPAIGN_NOT_FOUND"},
	{tracking.ErrLinkNotFound, http.StatusNotFound, "LINK_NOT_FOUND"},
	{admin.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},

	{invitation.ErrActionInProgress, http.StatusConflict, "ACTION_IN_PROGRESS"},
	{invitation.ErrInvitationClosed, http.StatusConflict, "INVITATION_CLOSED"},
	{negotiation.ErrRoundLimitReached, http.StatusConflict, "ROUND_LIMIT_REACHED"},
}

// writeServiceError maps a service error to a response. Procedure rejections
// keep their own message; unmapped errors are logged and reported as
// fallback without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var procErr *rpc.ProcedureError
	if errors.As(err, &procErr) {
		writeError(w, http.StatusUnprocessableEntity, "PROCEDURE_REJECTED", procErr.Message)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}

	logger.Error("request_failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", auth.UserIDFromContext(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when
// optional is true and leaves dst untouched.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return errNoBody
		}
		return err
	}
	return nil
}

// NotFound handles unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles unsupported methods on known routes.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
