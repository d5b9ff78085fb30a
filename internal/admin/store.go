package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/creatorlink/creatorlink/internal/model"
)

// ErrUserNotFound is returned when no users row matches.
var ErrUserNotFound = errors.New("user not found")

// Open connects to Postgres through lib/pq.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// StatusChange enables or disables an account.
type StatusChange struct {
	UserID      string
	PerformedBy string
	Status      model.AccountStatus
	Reason      string
}

// RoleChange replaces an account's role.
type RoleChange struct {
	UserID       string
	PerformedBy  string
	PreviousRole string
	NewRole      string
	Reason       string
}

// PostgresStore is the admin store on database/sql.
type PostgresStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:    db,
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

const userColumns = `u.id, u.email, COALESCE(u.display_name, ''), COALESCE(r.role, ''), u.status,
		       u.disabled_at, COALESCE(u.disabled_reason, ''), u.created_at`

// GetUser returns an account with its role from user_roles.
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*model.UserAccount, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE u.id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns accounts newest first, optionally filtered by role.
func (s *PostgresStore) ListUsers(ctx context.Context, roles []string, limit int) ([]*model.UserAccount, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE ($1::text[] IS NULL OR r.role = ANY($1))
		ORDER BY u.created_at DESC, u.id
		LIMIT $2`

	var roleFilter any
	if len(roles) > 0 {
		roleFilter = pq.Array(roles)
	}

	rows, err := s.db.QueryContext(ctx, query, roleFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*model.UserAccount{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ListStatusLog returns a user's status history, newest first.
func (s *PostgresStore) ListStatusLog(ctx context.Context, userID string, limit int) ([]*model.StatusLogEntry, error) {
	query := `
		SELECT id, user_id, action, performed_by, COALESCE(reason, ''),
		       COALESCE(previous_role, ''), COALESCE(new_role, ''), created_at
		FROM user_status_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list status log: %w", err)
	}
	defer rows.Close()

	entries := []*model.StatusLogEntry{}
	for rows.Next() {
		var (
			e      model.StatusLogEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.PerformedBy, &e.Reason, &e.PreviousRole, &e.NewRole, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		e.Action = model.StatusAction(action)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status log: %w", err)
	}
	return entries, nil
}

// SetStatus updates the account and writes both log rows in one transaction.
func (s *PostgresStore) SetStatus(ctx context.Context, change StatusChange) error {
	action := model.StatusActionEnable
	var (
		disabledAt any
		reason     any
	)
	if change.Status == model.AccountDisabled {
		action = model.StatusActionDisable
		disabledAt = s.now().UTC()
		reason = nullString(change.Reason)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET status = $2, disabled_at = $3, disabled_reason = $4 WHERE id = $1`,
			change.UserID, string(change.Status), disabledAt, reason,
		)
		if err != nil {
			return fmt.Errorf("update user status: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrUserNotFound
		}

		if err := s.insertStatusLog(ctx, tx, change.UserID, action, change.PerformedBy, change.Reason, "", ""); err != nil {
			return err
		}
		return s.insertAudit(ctx, tx, change.PerformedBy, "user."+string(action), change.UserID, map[string]any{
			"status": change.Status,
			"reason": change.Reason,
		})
	})
}

// SetRole upserts the user_roles row and writes both log rows in one transaction.
func (s *PostgresStore) SetRole(ctx context.Context, change RoleChange) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertRole(ctx, tx, change.UserID, change.NewRole); err != nil {
			return err
		}
		if err := s.insertStatusLog(ctx, tx, change.UserID, model.StatusActionRoleChange, change.PerformedBy, change.Reason, change.PreviousRole, change.NewRole); err != nil {
			return err
		}
		return s.insertAudit(ctx, tx, change.PerformedBy, "user.role_change", change.UserID, map[string]any{
			"previous_role": change.PreviousRole,
			"new_role":      change.NewRole,
			"reason":        change.Reason,
		})
	})
}

// GrantRole creates the account if needed and assigns role. Used to
// bootstrap the first administrator outside the HTTP surface.
func (s *PostgresStore) GrantRole(ctx context.Context, userID, email, role string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			userID, email,
		)
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if err := upsertRole(ctx, tx, userID, role); err != nil {
			return err
		}
		if err := s.insertStatusLog(ctx, tx, userID, model.StatusActionRoleChange, "system", "bootstrap", "", role); err != nil {
			return err
		}
		return s.insertAudit(ctx, tx, "system", "user.role_change", userID, map[string]any{
			"new_role": role,
			"reason":   "bootstrap",
		})
	})
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertRole(ctx context.Context, tx *sql.Tx, userID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

func (s *PostgresStore) insertStatusLog(ctx context.Context, tx *sql.Tx, userID string, action model.StatusAction, performedBy, reason, previousRole, newRole string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_status_log (id, user_id, action, performed_by, reason, previous_role, new_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.newID(), userID, string(action), performedBy,
		nullString(reason), nullString(previousRole), nullString(newRole),
	)
	if err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}
	return nil
}

func (s *PostgresStore) insertAudit(ctx context.Context, tx *sql.Tx, actorID, action, targetID string, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, 'user', $4, $5)`,
		s.newID(), actorID, action, targetID, payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.UserAccount, error) {
	var (
		u          model.UserAccount
		status     string
		disabledAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &status, &disabledAt, &u.DisabledReason, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Status = model.AccountStatus(status)
	if disabledAt.Valid {
		t := disabledAt.Time
		u.DisabledAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
