// Package postgres provides PostgreSQL storage for user accounts.
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
	"github.com/jrsteele09/go-blog-server/users"
)

// userColumns lists columns returned by user SELECT queries in scan order.
var userColumns = []string{"id", "email", "password_hash", "created_at", "last_sign_in_at"}

var _ users.Repo = (*Store)(nil)

// Store implements users.Repo using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a user store over an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query, args, err := database.Psq.Insert("users").
		Columns("id", "email", "password_hash", "created_at").
		Values(user.ID, user.Email, user.PasswordHash, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building user insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return errors.ErrUserExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.getOne(ctx, "email", email)
}

func (s *Store) GetByID(ctx context.Context, id string) (*users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrUserNotFound
	}
	return s.getOne(ctx, "id", id)
}

func (s *Store) SetLastSignIn(ctx context.Context, id string, at time.Time) error {
	query, args, err := database.Psq.Update("users").
		Set("last_sign_in_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building user update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating last sign in: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (s *Store) getOne(ctx context.Context, column, value string) (*users.User, error) {
	query, args, err := database.Psq.Select(userColumns...).
		From("users").
		Where(sq.Eq{column: value}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	var (
		user         users.User
		lastSignInAt sql.NullTime
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&lastSignInAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	if lastSignInAt.Valid {
		t := lastSignInAt.Time
		user.LastSignInAt = &t
	}
	return &user, nil
}
