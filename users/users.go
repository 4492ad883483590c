package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string     `json:"id,omitempty"`              // Unique identifier for the user (UUID)
	Email        string     `json:"email,omitempty"`           // Normalised email address, unique
	PasswordHash string     `json:"-"`                         // Hashed version of the user's password - never serialize
	CreatedAt    time.Time  `json:"created_at,omitempty"`      // Date and time when the user registered
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"` // Last successful password sign-in
}

// ToAPI returns the public view of the user.
func (u *User) ToAPI() api.User {
	return api.User{
		ID:           u.ID,
		Email:        u.Email,
		CreatedAt:    u.CreatedAt,
		LastSignInAt: u.LastSignInAt,
	}
}

// NormaliseEmail lower-cases and trims an address so lookups are case-insensitive.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address parses as a bare RFC 5322 address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.ErrInvalidEmail
	}
	return nil
}

// ValidatePasswordStrength checks the password meets the minimum length.
func ValidatePasswordStrength(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long: %w", minLength, errors.ErrWeakPassword)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
