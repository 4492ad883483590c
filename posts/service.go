package posts

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-blog-server/internal/errors"
)

// Service applies row-level ownership to a Repo. Every statement runs on behalf
// of a caller and only ever sees or touches the caller's rows: a filter naming
// another user matches nothing, and inserting a row for another user is forbidden.
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// scope restricts filter to callerID. ok is false when the filter can only
// match rows of another user.
func scope(callerID string, filter Filter) (scoped Filter, ok bool, err error) {
	if callerID == "" {
		return Filter{}, false, errors.ErrNotAuthenticated
	}
	if filter.UserID != nil && *filter.UserID != callerID {
		return Filter{}, false, nil
	}
	filter.UserID = &callerID
	return filter, true, nil
}

func (s *Service) Select(ctx context.Context, callerID string, filter Filter) ([]Post, error) {
	scoped, ok, err := scope(callerID, filter)
	if err != nil || !ok {
		return []Post{}, err
	}
	rows, err := s.repo.Select(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("[PostService.Select] %w", err)
	}
	return rows, nil
}

func (s *Service) Insert(ctx context.Context, callerID string, inputs []Input) ([]Post, error) {
	if callerID == "" {
		return nil, errors.ErrNotAuthenticated
	}
	if len(inputs) == 0 {
		return nil, errors.ErrInvalidPost
	}

	rows := make([]Post, 0, len(inputs))
	for _, in := range inputs {
		if err := validate(in.Title, in.Content); err != nil {
			return nil, err
		}
		if in.UserID != "" && in.UserID != callerID {
			return nil, errors.ErrForbidden
		}
		rows = append(rows, Post{Title: in.Title, Content: in.Content, UserID: callerID})
	}

	created, err := s.repo.Insert(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("[PostService.Insert] %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, callerID string, filter Filter, changes Changes) ([]Post, error) {
	if filter.ID == nil {
		return nil, errors.ErrMissingFilter
	}
	if err := validate(changes.Title, changes.Content); err != nil {
		return nil, err
	}
	scoped, ok, err := scope(callerID, filter)
	if err != nil || !ok {
		return []Post{}, err
	}
	updated, err := s.repo.Update(ctx, scoped, changes)
	if err != nil {
		return nil, fmt.Errorf("[PostService.Update] %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, callerID string, filter Filter) ([]Post, error) {
	if filter.ID == nil {
		return nil, errors.ErrMissingFilter
	}
	scoped, ok, err := scope(callerID, filter)
	if err != nil || !ok {
		return []Post{}, err
	}
	deleted, err := s.repo.Delete(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("[PostService.Delete] %w", err)
	}
	return deleted, nil
}
