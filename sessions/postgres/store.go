// Package postgres provides PostgreSQL storage for backend sessions.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-blog-server/internal/database"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/sessions"
)

// sessionColumns lists columns returned by session SELECT queries in scan order.
var sessionColumns = []string{"id", "user_id", "refresh_token", "created_at", "refreshed_at", "expires_at"}

var _ sessions.Repo = (*Store)(nil)

// Store implements sessions.Repo using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a session store over an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, session *sessions.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	query, args, err := database.Psq.Insert("sessions").
		Columns(sessionColumns...).
		Values(session.ID, session.UserID, session.RefreshToken, session.CreatedAt, session.RefreshedAt, session.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*sessions.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrSessionNotFound
	}
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *Store) GetByRefreshToken(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	return s.getOne(ctx, sq.Eq{"refresh_token": refreshToken})
}

func (s *Store) Rotate(ctx context.Context, id, oldToken, newToken string, refreshedAt, expiresAt time.Time) error {
	query, args, err := database.Psq.Update("sessions").
		Set("refresh_token", newToken).
		Set("refreshed_at", refreshedAt).
		Set("expires_at", expiresAt).
		Where(sq.Eq{"id": id, "refresh_token": oldToken}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session rotate: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("rotating refresh token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return errors.ErrInvalidRefreshToken
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	query, args, err := database.Psq.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := database.Psq.Delete("sessions").Where(sq.LtOrEq{"expires_at": now}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building expired session delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) getOne(ctx context.Context, where sq.Eq) (*sessions.Session, error) {
	query, args, err := database.Psq.Select(sessionColumns...).From("sessions").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	var session sessions.Session
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshToken,
		&session.CreatedAt,
		&session.RefreshedAt,
		&session.ExpiresAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}
