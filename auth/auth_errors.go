package auth

import (
	"strings"
	"unicode"

	"github.com/jrsteele09/go-blog-server/internal/errors"
)

// GenericMessage is shown for errors users cannot act on.
const GenericMessage = "Something went wrong, please try again"

// userMessages are the texts shown to end users for errors they can act on.
var userMessages = []struct {
	err     error
	message string
}{
	{errors.ErrInvalidCredentials, "Invalid login credentials"},
	{errors.ErrUserExists, "User already registered"},
	{errors.ErrInvalidEmail, "Unable to validate email address: invalid format"},
	{errors.ErrSessionExpired, "Session expired, please sign in again"},
	{errors.ErrInvalidRefreshToken, "Invalid refresh token"},
	{errors.ErrNotAuthenticated, "Not signed in"},
	{errors.ErrInvalidPost, "Title and content are required"},
}

// Message returns a human readable description of err suitable for display.
// Unexpected errors collapse to a generic message so internals never leak.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, um := range userMessages {
		if errors.Is(err, um.err) {
			return um.message
		}
	}
	if errors.Is(err, errors.ErrWeakPassword) {
		// "password must be at least N characters long: password is too short"
		return capitalise(strings.SplitN(err.Error(), ":", 2)[0])
	}
	return GenericMessage
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
