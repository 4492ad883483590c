package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	tokens   map[string]string // Map refresh tokens to sessionIDs
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
		tokens:   make(map[string]string),
	}
}

func (sr *FakeSessionRepo) Create(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	stored := *session
	sr.sessions[session.ID] = &stored
	sr.tokens[session.RefreshToken] = session.ID
	return nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, id string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	stored, ok := sr.sessions[id]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	session := *stored
	return &session, nil
}

func (sr *FakeSessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	sr.lock.RLock()
	id, ok := sr.tokens[refreshToken]
	sr.lock.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return sr.Get(ctx, id)
}

func (sr *FakeSessionRepo) Rotate(_ context.Context, id, oldToken, newToken string, refreshedAt, expiresAt time.Time) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[id]
	if !ok || session.RefreshToken != oldToken {
		return errors.ErrInvalidRefreshToken
	}
	delete(sr.tokens, oldToken)
	session.RefreshToken = newToken
	session.RefreshedAt = refreshedAt
	session.ExpiresAt = expiresAt
	sr.tokens[newToken] = id
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, id string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if session, ok := sr.sessions[id]; ok {
		delete(sr.tokens, session.RefreshToken)
		delete(sr.sessions, id)
	}
	return nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var removed int64
	for id, session := range sr.sessions {
		if session.Expired(now) {
			delete(sr.tokens, session.RefreshToken)
			delete(sr.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions.
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
