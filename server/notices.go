package server

import (
	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
)

// Redirects carry notice and error keys, never text, so a crafted link can
// only show messages the server itself would show.
const (
	noticePostAdded      = "post_added"
	noticePostUpdated    = "post_updated"
	noticePostDeleted    = "post_deleted"
	noticeAccountCreated = "account_created"

	pageErrorFailed = "failed"
)

var notices = map[string]string{
	noticePostAdded:      posts.ToastAdded,
	noticePostUpdated:    posts.ToastUpdated,
	noticePostDeleted:    posts.ToastDeleted,
	noticeAccountCreated: "Account created, please sign in",
}

var pageErrors = []struct {
	key string
	err error
}{
	{"invalid_post", errors.ErrInvalidPost},
	{"forbidden", errors.ErrForbidden},
	{"not_found", errors.ErrNotFound},
	{"session_expired", errors.ErrSessionExpired},
}

// noticeText returns the message for key, or "" for an unknown key.
func noticeText(key string) string {
	return notices[key]
}

// pageErrorKey returns the key redirects use to report err.
func pageErrorKey(err error) string {
	for _, pe := range pageErrors {
		if errors.Is(err, pe.err) {
			return pe.key
		}
	}
	return pageErrorFailed
}

// pageErrorText returns the inline error for key, or "" for an unknown key.
func pageErrorText(key string) string {
	if key == pageErrorFailed {
		return auth.GenericMessage
	}
	for _, pe := range pageErrors {
		if pe.key == key {
			return auth.Message(pe.err)
		}
	}
	return ""
}
