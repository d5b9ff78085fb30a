// Package admin implements the user-management function: account
// enable/disable and role assignment, gated by a server-side admin check.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/model"
)

// Service errors.
var (
	ErrNotAdmin         = errors.New("admin role required")
	ErrUnknownAction    = errors.New("unknown action")
	ErrUserIDRequired   = errors.New("userId is required")
	ErrInvalidRole      = errors.New("role must be admin, brand or creator")
	ErrSelfDisable      = errors.New("cannot disable your own account")
	ErrProtectedAccount = errors.New("accounts in the protected domain can only be disabled by members of that domain")
)

// Actions accepted by Handle.
const (
	ActionList      = "list"
	ActionGetStatus = "get-status"
	ActionDisable   = "disable"
	ActionEnable    = "enable"
	ActionSetRole   = "set-role"
)

const (
	defaultListLimit = 100
	historyLimit     = 50
)

// Store is the persistence the admin service needs.
type Store interface {
	GetUser(ctx context.Context, userID string) (*model.UserAccount, error)
	ListUsers(ctx context.Context, roles []string, limit int) ([]*model.UserAccount, error)
	ListStatusLog(ctx context.Context, userID string, limit int) ([]*model.StatusLogEntry, error)
	SetStatus(ctx context.Context, change StatusChange) error
	SetRole(ctx context.Context, change RoleChange) error
}

// Request is the user-management function body.
type Request struct {
	Action string   `json:"action"`
	UserID string   `json:"userId,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Role   string   `json:"role,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// Result is returned for every successful action. Unused fields are omitted.
type Result struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Users   []*model.UserAccount    `json:"users,omitempty"`
	User    *model.UserAccount      `json:"user,omitempty"`
	History []*model.StatusLogEntry `json:"history,omitempty"`
}

// Service performs administrative actions.
type Service struct {
	store           Store
	protectedDomain string
	metrics         metrics.Recorder
	logger          *slog.Logger
}

// NewService creates an admin service. An empty protectedDomain disables
// the protected-domain rule.
func NewService(store Store, protectedDomain string, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Service{
		store:           store,
		protectedDomain: strings.ToLower(strings.TrimSpace(protectedDomain)),
		metrics:         recorder,
		logger:          logger.With("component", "admin"),
	}
}

// Handle authorizes caller and runs req.Action.
func (s *Service) Handle(ctx context.Context, caller *model.Caller, req Request) (*Result, error) {
	if !caller.IsAuthenticated() {
		return nil, auth.ErrUnauthenticated
	}

	actor, err := s.requireAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case ActionList:
		return s.list(ctx, req)
	case ActionGetStatus:
		return s.getStatus(ctx, req)
	case ActionDisable:
		return s.disable(ctx, actor, req)
	case ActionEnable:
		return s.enable(ctx, actor, req)
	case ActionSetRole:
		return s.setRole(ctx, actor, req)
	default:
		return nil, ErrUnknownAction
	}
}

// requireAdmin reads the caller's role from the database. Token claims are
// never consulted for the role.
func (s *Service) requireAdmin(ctx context.Context, caller *model.Caller) (*model.UserAccount, error) {
	actor, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotAdmin
		}
		return nil, fmt.Errorf("lookup caller: %w", err)
	}
	if actor.Role != model.RoleAdmin || actor.Status == model.AccountDisabled {
		s.logger.Warn("admin_access_denied", "user_id", caller.UserID, "role", actor.Role)
		return nil, ErrNotAdmin
	}
	return actor, nil
}

func (s *Service) list(ctx context.Context, req Request) (*Result, error) {
	users, err := s.store.ListUsers(ctx, req.Roles, defaultListLimit)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Users: users}, nil
}

func (s *Service) getStatus(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, ErrUserIDRequired
	}
	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListStatusLog(ctx, req.UserID, historyLimit)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, User: user, History: history}, nil
}

func (s *Service) disable(ctx context.Context, actor *model.UserAccount, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, ErrUserIDRequired
	}
	if req.UserID == actor.ID {
		return nil, ErrSelfDisable
	}

	target, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.protectedDomain != "" && target.EmailDomain() == s.protectedDomain && actor.EmailDomain() != s.protectedDomain {
		s.logger.Warn("protected_account_disable_denied", "actor_id", actor.ID, "target_id", target.ID)
		return nil, ErrProtectedAccount
	}

	if err := s.store.SetStatus(ctx, StatusChange{
		UserID:      target.ID,
		PerformedBy: actor.ID,
		Status:      model.AccountDisabled,
		Reason:      req.Reason,
	}); err != nil {
		return nil, err
	}

	s.record(ActionDisable, actor.ID, target.ID)
	return &Result{Success: true, Message: "User disabled"}, nil
}

func (s *Service) enable(ctx context.Context, actor *model.UserAccount, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, ErrUserIDRequired
	}
	target, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetStatus(ctx, StatusChange{
		UserID:      target.ID,
		PerformedBy: actor.ID,
		Status:      model.AccountActive,
		Reason:      req.Reason,
	}); err != nil {
		return nil, err
	}

	s.record(ActionEnable, actor.ID, target.ID)
	return &Result{Success: true, Message: "User enabled"}, nil
}

func (s *Service) setRole(ctx context.Context, actor *model.UserAccount, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, ErrUserIDRequired
	}
	if !model.IsValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	target, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRole(ctx, RoleChange{
		UserID:       target.ID,
		PerformedBy:  actor.ID,
		PreviousRole: target.Role,
		NewRole:      req.Role,
		Reason:       req.Reason,
	}); err != nil {
		return nil, err
	}

	s.record(ActionSetRole, actor.ID, target.ID)
	return &Result{Success: true, Message: "Role updated to " + req.Role}, nil
}

func (s *Service) record(action, actorID, targetID string) {
	s.metrics.IncAdminAction(action)
	s.logger.Info("admin_action", "action", action, "actor_id", actorID, "target_id", targetID)
}
