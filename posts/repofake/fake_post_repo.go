package fakepostrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-blog-server/posts"
)

var _ posts.Repo = (*FakePostRepo)(nil)

// FakePostRepo keeps posts in memory with a monotonically increasing id sequence.
type FakePostRepo struct {
	posts  map[int64]*posts.Post
	nextID int64
	lock   sync.RWMutex
}

func NewFakePostRepo() *FakePostRepo {
	return &FakePostRepo{
		posts:  make(map[int64]*posts.Post),
		nextID: 1,
	}
}

func (pr *FakePostRepo) Select(_ context.Context, filter posts.Filter) ([]posts.Post, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()
	return pr.matching(filter), nil
}

func (pr *FakePostRepo) Insert(_ context.Context, rows []posts.Post) ([]posts.Post, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	now := time.Now().UTC()
	created := make([]posts.Post, 0, len(rows))
	for _, row := range rows {
		row.ID = pr.nextID
		pr.nextID++
		row.CreatedAt = now
		stored := row
		pr.posts[row.ID] = &stored
		created = append(created, row)
	}
	return created, nil
}

func (pr *FakePostRepo) Update(_ context.Context, filter posts.Filter, changes posts.Changes) ([]posts.Post, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	updated := pr.matching(filter)
	for i := range updated {
		stored := pr.posts[updated[i].ID]
		stored.Title = changes.Title
		stored.Content = changes.Content
		updated[i] = *stored
	}
	return updated, nil
}

func (pr *FakePostRepo) Delete(_ context.Context, filter posts.Filter) ([]posts.Post, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	deleted := pr.matching(filter)
	for _, p := range deleted {
		delete(pr.posts, p.ID)
	}
	return deleted, nil
}

// matching returns copies of the rows matching filter ordered by id. Callers hold the lock.
func (pr *FakePostRepo) matching(filter posts.Filter) []posts.Post {
	rows := []posts.Post{}
	for _, p := range pr.posts {
		if filter.Matches(p) {
			rows = append(rows, *p)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}
