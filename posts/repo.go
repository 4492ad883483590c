package posts

import "context"

// Repo stores posts without any notion of the caller. Ownership is enforced
// by Service, which scopes every filter before it reaches the Repo.
// Mutations return the affected rows.
type Repo interface {
	Select(ctx context.Context, filter Filter) ([]Post, error)
	Insert(ctx context.Context, posts []Post) ([]Post, error)
	Update(ctx context.Context, filter Filter, changes Changes) ([]Post, error)
	Delete(ctx context.Context, filter Filter) ([]Post, error)
}
