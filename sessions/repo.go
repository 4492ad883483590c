package sessions

import (
	"context"
	"time"
)

// Repo stores backend sessions. Getters return errors.ErrSessionNotFound for
// unknown ids or tokens.
type Repo interface {
	// Create stores a new session, assigning an ID when empty.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*Session, error)

	// GetByRefreshToken retrieves the session currently holding the refresh token.
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)

	// Rotate replaces the refresh token of a session only while it still holds
	// oldToken. A concurrent rotation makes the loser fail with errors.ErrInvalidRefreshToken.
	Rotate(ctx context.Context, id, oldToken, newToken string, refreshedAt, expiresAt time.Time) error

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions that expired before now and reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
