package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/sessions"
)

const (
	testSessionID = "2f1b7c0e-4d7e-4c9a-9f59-0a4f3e7b1c11"
	testUserID    = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestCreate(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	session := &sessions.Session{
		ID:           testSessionID,
		UserID:       testUserID,
		RefreshToken: "r1",
		CreatedAt:    now,
		RefreshedAt:  now,
		ExpiresAt:    now.Add(time.Hour),
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(testSessionID, testUserID, "r1", now, now, now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByRefreshToken(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE refresh_token = \\$1").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(sessionColumns).
			AddRow(testSessionID, testUserID, "r1", now, now, now.Add(time.Hour)))

	session, err := store.GetByRefreshToken(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, testSessionID, session.ID)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)
	_, err = store.GetByRefreshToken(context.Background(), "gone")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestGet_MalformedID(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestRotate(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE sessions SET refresh_token = \\$1, refreshed_at = \\$2, expires_at = \\$3 WHERE").
		WithArgs("r2", now, now.Add(time.Hour), testSessionID, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Rotate(context.Background(), testSessionID, "r1", "r2", now, now.Add(time.Hour)))

	mock.ExpectExec("UPDATE sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := store.Rotate(context.Background(), testSessionID, "r1", "r3", now, now.Add(time.Hour))
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
}

func TestDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM sessions WHERE id = \\$1").
		WithArgs(testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Delete(context.Background(), testSessionID))

	// Malformed ids never reach the database
	require.NoError(t, store.Delete(context.Background(), "nope"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpired(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at <= \\$1").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
