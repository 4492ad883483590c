package users

import (
	"context"
	"time"
)

// Repo stores accounts. Implementations return errors.ErrUserExists when Create
// meets a duplicate email and errors.ErrUserNotFound from the getters.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	SetLastSignIn(ctx context.Context, id string, at time.Time) error
}
