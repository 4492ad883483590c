package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-blog-server/internal/utils"
	"github.com/jrsteele09/go-blog-server/posts"
)

const testUserID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

var testCreated = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestSelect_ByOwner(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, title, content, user_id, created_at FROM posts WHERE user_id = \\$1 ORDER BY id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(int64(1), "T", "C", testUserID, testCreated).
			AddRow(int64(2), "T2", "C2", testUserID, testCreated))

	rows, err := store.Select(context.Background(), posts.Filter{UserID: utils.Ptr(testUserID)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM posts").
		WillReturnRows(sqlmock.NewRows(postColumns))

	rows, err := store.Select(context.Background(), posts.Filter{UserID: utils.Ptr(testUserID)})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestInsert_ReturnsAssignedIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO posts \\(title,content,user_id\\) VALUES \\(\\$1,\\$2,\\$3\\) RETURNING id, title, content, user_id, created_at").
		WithArgs("T", "C", testUserID).
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow(int64(42), "T", "C", testUserID, testCreated))

	rows, err := store.Insert(context.Background(), []posts.Post{{Title: "T", Content: "C", UserID: testUserID}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].ID)
	assert.Equal(t, testCreated, rows[0].CreatedAt)
}

func TestUpdate_DualFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE posts SET title = \\$1, content = \\$2 WHERE id = \\$3 AND user_id = \\$4 RETURNING").
		WithArgs("T2", "C2", int64(7), testUserID).
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow(int64(7), "T2", "C2", testUserID, testCreated))

	rows, err := store.Update(context.Background(),
		posts.Filter{ID: utils.Ptr(int64(7)), UserID: utils.Ptr(testUserID)},
		posts.Changes{Title: "T2", Content: "C2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T2", rows[0].Title)
}

func TestDelete_NoMatch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("DELETE FROM posts WHERE id = \\$1 AND user_id = \\$2 RETURNING").
		WithArgs(int64(9), testUserID).
		WillReturnRows(sqlmock.NewRows(postColumns))

	rows, err := store.Delete(context.Background(), posts.Filter{ID: utils.Ptr(int64(9)), UserID: utils.Ptr(testUserID)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDelete_QueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("DELETE FROM posts").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Delete(context.Background(), posts.Filter{ID: utils.Ptr(int64(9)), UserID: utils.Ptr(testUserID)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleting posts")
}
