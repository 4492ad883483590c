package sessions

import "time"

// Session is the backend record of a signed-in client. A session lives from
// sign-in until sign-out or ExpiresAt, and its refresh token rotates on each refresh.
type Session struct {
	ID           string    // Unique session identifier (UUID), carried in the access token's "sid" claim
	UserID       string    // Owner of the session
	RefreshToken string    // Current refresh token; the previous value stops working on rotation
	CreatedAt    time.Time // When the user signed in
	RefreshedAt  time.Time // Last rotation, CreatedAt until the first refresh
	ExpiresAt    time.Time // After this the session can no longer be refreshed and is reaped
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
