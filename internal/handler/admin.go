package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/creatorlink/creatorlink/internal/admin"
	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/model"
)

// UserManager performs administrative user actions.
type UserManager interface {
	Handle(ctx context.Context, caller *model.Caller, req admin.Request) (*admin.Result, error)
}

// AdminHandler serves the user-management function.
type AdminHandler struct {
	svc    UserManager
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc UserManager, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:    svc,
		logger: logger,
	}
}

// UserManagement handles POST /functions/user-management.
func (h *AdminHandler) UserManagement(w http.ResponseWriter, r *http.Request) {
	var req admin.Request
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	result, err := h.svc.Handle(r.Context(), auth.CallerFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to process user management request")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
