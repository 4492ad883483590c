package posts

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-blog-server/internal/errors"
)

// Post is a blog entry owned by a single user.
type Post struct {
	ID        int64     `json:"id"`         // Backend assigned identifier
	Title     string    `json:"title"`      // Required, non-blank
	Content   string    `json:"content"`    // Required, non-blank
	UserID    string    `json:"user_id"`    // Owning user, always the user whose session created it
	CreatedAt time.Time `json:"created_at"` // Set by the store on insert
}

// Input is a post to insert. An empty UserID is filled with the caller's id.
type Input struct {
	Title   string
	Content string
	UserID  string
}

// Changes are the mutable fields of a post.
type Changes struct {
	Title   string
	Content string
}

// Filter is a conjunction of equality predicates. Nil fields do not constrain.
type Filter struct {
	ID     *int64
	UserID *string
}

// Matches reports whether p satisfies every set predicate.
func (f Filter) Matches(p *Post) bool {
	if f.ID != nil && *f.ID != p.ID {
		return false
	}
	if f.UserID != nil && *f.UserID != p.UserID {
		return false
	}
	return true
}

func validate(title, content string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return errors.ErrInvalidPost
	}
	return nil
}
