package admin

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorlink/creatorlink/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresStore(db)
	store.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	ids := 0
	store.newID = func() string {
		ids++
		return []string{"log-1", "audit-1", "log-2", "audit-2"}[ids-1]
	}
	return store, mock
}

var userCols = []string{"id", "email", "display_name", "role", "status", "disabled_at", "disabled_reason", "created_at"}

func TestPostgresStore_GetUser(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN user_roles r ON r.user_id = u.id")).
		WithArgs("creator-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("creator-1", "maya@example.com", "Maya", "creator", "active", nil, "", created))

	u, err := store.GetUser(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", u.Email)
	assert.Equal(t, model.RoleCreator, u.Role)
	assert.Equal(t, model.AccountActive, u.Status)
	assert.Nil(t, u.DisabledAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err = store.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListUsers(t *testing.T) {
	store, mock := newMockStore(t)
	disabledAt := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("r.role = ANY($1)")).
		WithArgs(sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-2", "b@example.com", "", "brand", "disabled", disabledAt, "chargeback", disabledAt).
			AddRow("u-1", "a@example.com", "", "", "active", nil, "", disabledAt))

	users, err := store.ListUsers(context.Background(), []string{"brand"}, 100)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NotNil(t, users[0].DisabledAt)
	assert.Equal(t, "chargeback", users[0].DisabledReason)
	assert.Equal(t, "", users[1].Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetStatus_WritesBothTrails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status = $2")).
		WithArgs("creator-1", "disabled", time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), "spam").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_status_log")).
		WithArgs("log-1", "creator-1", "disable", "admin-1", "spam", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("audit-1", "admin-1", "user.disable", "creator-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SetStatus(context.Background(), StatusChange{
		UserID:      "creator-1",
		PerformedBy: "admin-1",
		Status:      model.AccountDisabled,
		Reason:      "spam",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetStatus_RollsBackOnAuditFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_status_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.SetStatus(context.Background(), StatusChange{UserID: "creator-1", PerformedBy: "admin-1", Status: model.AccountActive})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit log")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetStatus_UnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("ghost", "active", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetStatus(context.Background(), StatusChange{UserID: "ghost", PerformedBy: "admin-1", Status: model.AccountActive})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WithArgs("creator-1", "brand").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_status_log")).
		WithArgs("log-1", "creator-1", "role_change", "admin-1", nil, "creator", "brand").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("audit-1", "admin-1", "user.role_change", "creator-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SetRole(context.Background(), RoleChange{
		UserID:       "creator-1",
		PerformedBy:  "admin-1",
		PreviousRole: "creator",
		NewRole:      "brand",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GrantRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, email)")).
		WithArgs("admin-1", "ops@creatorlink.io").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WithArgs("admin-1", "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_status_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.GrantRole(context.Background(), "admin-1", "ops@creatorlink.io", "admin"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
