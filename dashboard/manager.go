// Package dashboard manages the signed-in user's posts on the client side. It
// loads them whenever the session changes and keeps a local list in step with
// successful create, update and delete calls.
package dashboard

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/client"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
	"github.com/jrsteele09/go-blog-server/provider"
	"github.com/rs/zerolog/log"
)

const (
	PathHome  = "/"
	PathLogin = "/pages/login"

	ToastPostAdded   = posts.ToastAdded
	ToastPostUpdated = posts.ToastUpdated
	ToastPostDeleted = posts.ToastDeleted
)

// State of the post list.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unauthenticated"
	}
}

// Modal is the create/edit form. EditingID is zero when creating.
type Modal struct {
	Open      bool
	EditingID int64
	Title     string
	Content   string
}

// Sessions is the part of provider.Provider the manager needs.
type Sessions interface {
	Session() *api.Session
	Subscribe(fn func(*api.Session)) (unsubscribe func())
	SignOut(ctx context.Context)
}

var _ Sessions = (*provider.Provider)(nil)

// PostStore is the part of client.PostsClient the manager needs.
type PostStore interface {
	Select(ctx context.Context, filter posts.Filter) ([]posts.Post, error)
	Insert(ctx context.Context, rows ...api.NewPost) ([]posts.Post, error)
	Update(ctx context.Context, filter posts.Filter, changes api.PostChanges) ([]posts.Post, error)
	Delete(ctx context.Context, filter posts.Filter) ([]posts.Post, error)
}

var _ PostStore = (*client.PostsClient)(nil)

// Notifier shows success messages to the user.
type Notifier interface {
	Success(message string)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(path string)
}

// Manager is the post list of the signed-in user.
type Manager struct {
	sessions  Sessions
	store     PostStore
	notifier  Notifier
	navigator Navigator

	lock        sync.Mutex
	ctx         context.Context
	state       State
	userID      string
	posts       []posts.Post
	modal       Modal
	generation  uint64 // Bumped on every session change; stale fetches compare against it
	unsubscribe func()
}

func New(sessions Sessions, store PostStore, notifier Notifier, navigator Navigator) *Manager {
	return &Manager{
		sessions:  sessions,
		store:     store,
		notifier:  notifier,
		navigator: navigator,
		ctx:       context.Background(),
		posts:     []posts.Post{},
	}
}

// Start follows session changes and loads the posts of the current session.
// ctx bounds the fetches triggered by later session changes.
func (m *Manager) Start(ctx context.Context) error {
	m.lock.Lock()
	m.ctx = ctx
	m.unsubscribe = m.sessions.Subscribe(func(session *api.Session) {
		_ = m.sessionChanged(session)
	})
	m.lock.Unlock()

	return m.sessionChanged(m.sessions.Session())
}

// Close stops following session changes.
func (m *Manager) Close() {
	m.lock.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.lock.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// sessionChanged replaces the list with the posts of session's user. Exactly one
// fetch runs per call and its result is dropped if another change happened meanwhile.
func (m *Manager) sessionChanged(session *api.Session) error {
	m.lock.Lock()
	m.generation++
	generation := m.generation
	ctx := m.ctx

	if session == nil {
		m.state = StateUnauthenticated
		m.userID = ""
		m.posts = []posts.Post{}
		m.modal = Modal{}
		m.lock.Unlock()
		m.navigator.Navigate(PathLogin)
		return nil
	}

	userID := session.User.ID
	m.state = StateLoading
	m.userID = userID
	m.lock.Unlock()

	rows, err := m.store.Select(ctx, posts.Filter{UserID: &userID})

	m.lock.Lock()
	defer m.lock.Unlock()
	if generation != m.generation {
		log.Debug().Uint64("generation", generation).Msg("Discarding posts of a superseded session")
		return nil
	}
	m.state = StateLoaded
	if err != nil {
		log.Err(err).Str("user_id", userID).Msg("Failed to load posts")
		m.posts = []posts.Post{}
		return err
	}
	m.posts = rows
	return nil
}

// State returns the current list state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Posts returns a copy of the local list.
func (m *Manager) Posts() []posts.Post {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]posts.Post{}, m.posts...)
}

// Modal returns the create/edit form state.
func (m *Manager) Modal() Modal {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.modal
}

// OpenCreate opens an empty create form.
func (m *Manager) OpenCreate() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.modal = Modal{Open: true}
}

// OpenEdit opens the edit form for a post in the local list.
func (m *Manager) OpenEdit(id int64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, p := range m.posts {
		if p.ID == id {
			m.modal = Modal{Open: true, EditingID: p.ID, Title: p.Title, Content: p.Content}
			return nil
		}
	}
	return errors.ErrNotFound
}

// CloseModal discards the form.
func (m *Manager) CloseModal() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.modal = Modal{}
}

// Submit saves the open form as a new post or as an edit of EditingID.
func (m *Manager) Submit(ctx context.Context, title, content string) error {
	modal := m.Modal()
	if !modal.Open {
		return errors.ErrUnsupported
	}
	if modal.EditingID != 0 {
		return m.Update(ctx, modal.EditingID, title, content)
	}
	_, err := m.Create(ctx, title, content)
	return err
}

// Create inserts a post for the session's user and appends the stored row.
func (m *Manager) Create(ctx context.Context, title, content string) (*posts.Post, error) {
	session, err := m.requireSession()
	if err != nil {
		return nil, err
	}
	if err := validate(title, content); err != nil {
		return nil, err
	}

	rows, err := m.store.Insert(ctx, api.NewPost{Title: title, Content: content, UserID: session.User.ID})
	if err != nil {
		log.Err(err).Str("user_id", session.User.ID).Msg("Failed to create post")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "[Manager.Create] no row returned")
	}

	m.lock.Lock()
	if m.userID == session.User.ID {
		m.posts = append(m.posts, rows...)
	}
	m.modal = Modal{}
	m.lock.Unlock()

	m.notifier.Success(ToastPostAdded)
	created := rows[0]
	return &created, nil
}

// Update changes title and content of the post with id owned by the session's
// user. An id that matches nothing changes nothing and is not an error.
func (m *Manager) Update(ctx context.Context, id int64, title, content string) error {
	session, err := m.requireSession()
	if err != nil {
		return err
	}
	if err := validate(title, content); err != nil {
		return err
	}

	userID := session.User.ID
	rows, err := m.store.Update(ctx, posts.Filter{ID: &id, UserID: &userID}, api.PostChanges{Title: title, Content: content})
	if err != nil {
		log.Err(err).Int64("post_id", id).Str("user_id", userID).Msg("Failed to update post")
		return err
	}

	m.lock.Lock()
	for _, row := range rows {
		for i := range m.posts {
			if m.posts[i].ID == row.ID {
				m.posts[i].Title = row.Title
				m.posts[i].Content = row.Content
			}
		}
	}
	m.modal = Modal{}
	m.lock.Unlock()

	if len(rows) > 0 {
		m.notifier.Success(ToastPostUpdated)
	}
	return nil
}

// Delete removes the post with id owned by the session's user. An id that
// matches nothing leaves the list unchanged and is not an error.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	session, err := m.requireSession()
	if err != nil {
		return err
	}

	userID := session.User.ID
	rows, err := m.store.Delete(ctx, posts.Filter{ID: &id, UserID: &userID})
	if err != nil {
		log.Err(err).Int64("post_id", id).Str("user_id", userID).Msg("Failed to delete post")
		return err
	}

	deleted := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		deleted[row.ID] = struct{}{}
	}

	m.lock.Lock()
	kept := m.posts[:0]
	for _, p := range m.posts {
		if _, ok := deleted[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	m.posts = kept
	m.lock.Unlock()

	if len(rows) > 0 {
		m.notifier.Success(ToastPostDeleted)
	}
	return nil
}

// SignOut ends the session and returns to the landing page.
func (m *Manager) SignOut(ctx context.Context) {
	m.sessions.SignOut(ctx)
	m.navigator.Navigate(PathHome)
}

func (m *Manager) requireSession() (*api.Session, error) {
	session := m.sessions.Session()
	if session == nil {
		return nil, errors.ErrNotAuthenticated
	}
	return session, nil
}

func validate(title, content string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return errors.ErrInvalidPost
	}
	return nil
}
