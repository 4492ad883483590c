// Package postgres provides PostgreSQL storage for blog posts.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/go-blog-server/internal/database"
	"github.com/jrsteele09/go-blog-server/posts"
)

// postColumns lists columns returned by post queries in scan order.
var postColumns = []string{"id", "title", "content", "user_id", "created_at"}

var returning = "RETURNING " + strings.Join(postColumns, ", ")

var _ posts.Repo = (*Store)(nil)

// Store implements posts.Repo using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a post store over an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// applyPostFilter adds the equality predicates of filter to a builder's WHERE clause.
func applyPostFilter(filter posts.Filter) sq.Eq {
	where := sq.Eq{}
	if filter.ID != nil {
		where["id"] = *filter.ID
	}
	if filter.UserID != nil {
		where["user_id"] = *filter.UserID
	}
	return where
}

func (s *Store) Select(ctx context.Context, filter posts.Filter) ([]posts.Post, error) {
	query, args, err := database.Psq.Select(postColumns...).
		From("posts").
		Where(applyPostFilter(filter)).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building post query: %w", err)
	}
	return s.queryPosts(ctx, "selecting posts", query, args)
}

func (s *Store) Insert(ctx context.Context, rows []posts.Post) ([]posts.Post, error) {
	qb := database.Psq.Insert("posts").Columns("title", "content", "user_id")
	for _, row := range rows {
		qb = qb.Values(row.Title, row.Content, row.UserID)
	}
	query, args, err := qb.Suffix(returning).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building post insert: %w", err)
	}
	return s.queryPosts(ctx, "inserting posts", query, args)
}

func (s *Store) Update(ctx context.Context, filter posts.Filter, changes posts.Changes) ([]posts.Post, error) {
	query, args, err := database.Psq.Update("posts").
		Set("title", changes.Title).
		Set("content", changes.Content).
		Where(applyPostFilter(filter)).
		Suffix(returning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building post update: %w", err)
	}
	return s.queryPosts(ctx, "updating posts", query, args)
}

func (s *Store) Delete(ctx context.Context, filter posts.Filter) ([]posts.Post, error) {
	query, args, err := database.Psq.Delete("posts").
		Where(applyPostFilter(filter)).
		Suffix(returning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building post delete: %w", err)
	}
	return s.queryPosts(ctx, "deleting posts", query, args)
}

func (s *Store) queryPosts(ctx context.Context, action, query string, args []any) ([]posts.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	defer func() { _ = rows.Close() }()

	result := []posts.Post{}
	for rows.Next() {
		var p posts.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.UserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}
	return result, nil
}
