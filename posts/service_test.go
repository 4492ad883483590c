package posts_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/internal/utils"
	"github.com/jrsteele09/go-blog-server/posts"
	fakepostrepo "github.com/jrsteele09/go-blog-server/posts/repofake"
	"github.com/stretchr/testify/require"
)

const (
	user1 = "u1"
	user2 = "u2"
)

type testFixture struct {
	ctx     context.Context
	service *posts.Service
}

func setupTestFixture() *testFixture {
	return &testFixture{
		ctx:     context.Background(),
		service: posts.NewService(fakepostrepo.NewFakePostRepo()),
	}
}

func (f *testFixture) insert(t *testing.T, caller, title string) posts.Post {
	t.Helper()
	rows, err := f.service.Insert(f.ctx, caller, []posts.Input{{Title: title, Content: "C"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestInsert_OwnedByCaller(t *testing.T) {
	f := setupTestFixture()

	p := f.insert(t, user1, "T")
	require.Equal(t, user1, p.UserID)
	require.NotZero(t, p.ID)
	require.False(t, p.CreatedAt.IsZero())
}

func TestInsert_ForeignOwnerForbidden(t *testing.T) {
	f := setupTestFixture()

	_, err := f.service.Insert(f.ctx, user1, []posts.Input{{Title: "T", Content: "C", UserID: user2}})
	require.ErrorIs(t, err, errors.ErrForbidden)

	rows, err := f.service.Select(f.ctx, user2, posts.Filter{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestInsert_Validation(t *testing.T) {
	f := setupTestFixture()

	_, err := f.service.Insert(f.ctx, user1, []posts.Input{{Title: " ", Content: "C"}})
	require.ErrorIs(t, err, errors.ErrInvalidPost)
	_, err = f.service.Insert(f.ctx, user1, []posts.Input{{Title: "T"}})
	require.ErrorIs(t, err, errors.ErrInvalidPost)
	_, err = f.service.Insert(f.ctx, "", []posts.Input{{Title: "T", Content: "C"}})
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestSelect_OtherUsersPostsInvisible(t *testing.T) {
	f := setupTestFixture()
	f.insert(t, user1, "mine")

	rows, err := f.service.Select(f.ctx, user2, posts.Filter{})
	require.NoError(t, err)
	require.Empty(t, rows)

	// Naming the other user explicitly still matches nothing
	rows, err = f.service.Select(f.ctx, user2, posts.Filter{UserID: utils.Ptr(user1)})
	require.NoError(t, err)
	require.Empty(t, rows)

	rows, err = f.service.Select(f.ctx, user1, posts.Filter{UserID: utils.Ptr(user1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUpdate_OnlyMatchingOwnedPost(t *testing.T) {
	f := setupTestFixture()
	mine := f.insert(t, user1, "mine")
	other := f.insert(t, user1, "other")
	theirs := f.insert(t, user2, "theirs")

	updated, err := f.service.Update(f.ctx, user1,
		posts.Filter{ID: utils.Ptr(mine.ID), UserID: utils.Ptr(user1)},
		posts.Changes{Title: "new", Content: "body"})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.Equal(t, "new", updated[0].Title)
	require.Equal(t, mine.CreatedAt, updated[0].CreatedAt)

	// Forged id of another user's post
	updated, err = f.service.Update(f.ctx, user1,
		posts.Filter{ID: utils.Ptr(theirs.ID), UserID: utils.Ptr(user1)},
		posts.Changes{Title: "hijack", Content: "x"})
	require.NoError(t, err)
	require.Empty(t, updated)

	rows, err := f.service.Select(f.ctx, user2, posts.Filter{})
	require.NoError(t, err)
	require.Equal(t, "theirs", rows[0].Title)

	rows, err = f.service.Select(f.ctx, user1, posts.Filter{ID: utils.Ptr(other.ID)})
	require.NoError(t, err)
	require.Equal(t, "other", rows[0].Title)
}

func TestUpdate_RequiresIDFilter(t *testing.T) {
	f := setupTestFixture()
	_, err := f.service.Update(f.ctx, user1, posts.Filter{UserID: utils.Ptr(user1)}, posts.Changes{Title: "T", Content: "C"})
	require.ErrorIs(t, err, errors.ErrMissingFilter)
}

func TestDelete_ForgedIDLeavesPostsIntact(t *testing.T) {
	f := setupTestFixture()
	theirs := f.insert(t, user2, "theirs")

	deleted, err := f.service.Delete(f.ctx, user1, posts.Filter{ID: utils.Ptr(theirs.ID), UserID: utils.Ptr(user1)})
	require.NoError(t, err)
	require.Empty(t, deleted)

	rows, err := f.service.Select(f.ctx, user2, posts.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDelete_OwnPost(t *testing.T) {
	f := setupTestFixture()
	mine := f.insert(t, user1, "mine")

	deleted, err := f.service.Delete(f.ctx, user1, posts.Filter{ID: utils.Ptr(mine.ID), UserID: utils.Ptr(user1)})
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	rows, err := f.service.Select(f.ctx, user1, posts.Filter{})
	require.NoError(t, err)
	require.Empty(t, rows)

	_, err = f.service.Delete(f.ctx, user1, posts.Filter{})
	require.ErrorIs(t, err, errors.ErrMissingFilter)
}
