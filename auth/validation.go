package auth

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/users"
)

const minRefreshTokenLength = 10

// Validator holds the input rules applied before any repository is touched.
type Validator struct {
	minPasswordLength int
}

// NewValidator creates a new Validator instance
func NewValidator(minPasswordLength int) *Validator {
	return &Validator{minPasswordLength: minPasswordLength}
}

// ValidateSignUp normalises email and checks both credentials, returning the normalised email.
func (v *Validator) ValidateSignUp(email, password string) (string, error) {
	email = users.NormaliseEmail(email)
	if err := users.ValidateEmail(email); err != nil {
		return "", err
	}
	if err := users.ValidatePasswordStrength(password, v.minPasswordLength); err != nil {
		return "", err
	}
	return email, nil
}

// ValidateSignIn only checks presence. Anything more would leak which accounts exist.
func (v *Validator) ValidateSignIn(email, password string) (string, error) {
	email = users.NormaliseEmail(email)
	if email == "" || password == "" {
		return "", errors.ErrInvalidCredentials
	}
	return email, nil
}

// ValidateRefreshToken checks refresh token presence and format
func (v *Validator) ValidateRefreshToken(refreshToken string) error {
	if len(strings.TrimSpace(refreshToken)) < minRefreshTokenLength {
		return fmt.Errorf("invalid refresh_token format: %w", errors.ErrInvalidRefreshToken)
	}
	return nil
}

// ValidateAccessToken validates access token format and presence
func (v *Validator) ValidateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("access token is required: %w", errors.ErrNotAuthenticated)
	}

	// Basic format check - should be a JWT (3 parts separated by dots)
	if len(strings.Split(token, ".")) != 3 {
		return fmt.Errorf("invalid token format, must be a valid JWT: %w", errors.ErrInvalidToken)
	}
	return nil
}
