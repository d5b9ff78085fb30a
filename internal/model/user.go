// Package model defines domain entities for the application.
package model

import (
	"slices"
	"strings"
	"time"
)

// Role values stored in user_roles.
const (
	RoleAdmin   = "admin"
	RoleBrand   = "brand"
	RoleCreator = "creator"
)

// ValidRoles contains all assignable roles.
var ValidRoles = []string{RoleAdmin, RoleBrand, RoleCreator}

// IsValidRole reports whether role is assignable.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles, role)
}

// AccountStatus is the enable/disable state of an account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
)

// UserAccount is a marketplace account as seen by administrators.
type UserAccount struct {
	ID             string        `json:"id"`
	Email          string        `json:"email"`
	DisplayName    string        `json:"display_name,omitempty"`
	Role           string        `json:"role"`
	Status         AccountStatus `json:"status"`
	DisabledAt     *time.Time    `json:"disabled_at,omitempty"`
	DisabledReason string        `json:"disabled_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// EmailDomain returns the lower-cased domain part of the account email.
func (u *UserAccount) EmailDomain() string {
	return EmailDomain(u.Email)
}

// EmailDomain returns the lower-cased part after the last "@", or "".
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// StatusAction names a mutation recorded in the status log.
type StatusAction string

const (
	StatusActionDisable    StatusAction = "disable"
	StatusActionEnable     StatusAction = "enable"
	StatusActionRoleChange StatusAction = "role_change"
)

// StatusLogEntry is a row in user_status_log: per-user status history.
type StatusLogEntry struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Action       StatusAction `json:"action"`
	PerformedBy  string       `json:"performed_by"`
	Reason       string       `json:"reason,omitempty"`
	PreviousRole string       `json:"previous_role,omitempty"`
	NewRole      string       `json:"new_role,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AuditLogEntry is a row in audit_logs: the chronological action feed.
type AuditLogEntry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Caller is the authenticated principal behind a request.
// Only the subject and email are taken from the token; roles are always looked up.
type Caller struct {
	UserID string
	Email  string
	Token  string
}

// IsAuthenticated reports whether the caller carries a subject.
func (c *Caller) IsAuthenticated() bool {
	return c != nil && c.UserID != ""
}
