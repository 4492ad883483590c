package api

import "time"

// Session is the client visible result of a successful sign-in or refresh.
// Returned from the /auth/v1/token endpoint for both grant types.
type Session struct {
	// AccessToken is the RS256 JWT used to access the data API.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: Short-lived (ACCESS_TOKEN_EXPIRY, 1 hour by default)
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in"`

	// ExpiresAt is the access token expiry as unix seconds.
	// Note: This mirrors the JWT's "exp" claim so clients need not parse the token
	ExpiresAt int64 `json:"expires_at"`

	// RefreshToken is an opaque token used to obtain a new session.
	// Usage: Send to /auth/v1/token with grant_type=refresh_token
	// Security: Rotates on each use, the previous value stops working
	RefreshToken string `json:"refresh_token"`

	// User is the account the session belongs to.
	User User `json:"user"`
}

// Expiry returns ExpiresAt as a time.
func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// Expired reports whether the access token is expired at now, allowing margin for clock skew and latency.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(s.Expiry())
}

// UserID returns the owning user id or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// User is the public view of an account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}
