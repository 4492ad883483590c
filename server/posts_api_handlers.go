package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/posts"
)

// SelectPosts returns the caller's posts matching the query predicates (GET /rest/v1/posts?id=eq.1)
func (s *Server) SelectPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := posts.ParseFilter(r.URL.Query())
		if err != nil {
			writeAPIError(w, err)
			return
		}

		rows, err := s.posts.Select(r.Context(), callerID(r), filter)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// InsertPosts creates one post (JSON object) or many (JSON array) and returns the stored rows
func (s *Server) InsertPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		newPosts, err := decodeNewPosts(w, r)
		if err != nil {
			writeJSONError(w, errorCodeInvalidRequest, "Request body must be a post object or an array of posts", http.StatusBadRequest)
			return
		}

		inputs := make([]posts.Input, 0, len(newPosts))
		for _, p := range newPosts {
			inputs = append(inputs, posts.Input{Title: p.Title, Content: p.Content, UserID: p.UserID})
		}

		rows, err := s.posts.Insert(r.Context(), callerID(r), inputs)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rows)
	}
}

// UpdatePosts changes title and content of the caller's post selected by id (PATCH /rest/v1/posts?id=eq.1)
func (s *Server) UpdatePosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := posts.ParseFilter(r.URL.Query())
		if err != nil {
			writeAPIError(w, err)
			return
		}

		var changes api.PostChanges
		if err := decodeJSON(w, r, &changes); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, "Request body must be JSON with title and content", http.StatusBadRequest)
			return
		}

		rows, err := s.posts.Update(r.Context(), callerID(r), filter, posts.Changes{Title: changes.Title, Content: changes.Content})
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// DeletePosts removes the caller's post selected by id (DELETE /rest/v1/posts?id=eq.1)
func (s *Server) DeletePosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := posts.ParseFilter(r.URL.Query())
		if err != nil {
			writeAPIError(w, err)
			return
		}

		rows, err := s.posts.Delete(r.Context(), callerID(r), filter)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// decodeNewPosts accepts either a single JSON object or an array of them
func decodeNewPosts(w http.ResponseWriter, r *http.Request) ([]api.NewPost, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)

	if len(body) > 0 && body[0] == '[' {
		var many []api.NewPost
		if err := json.Unmarshal(body, &many); err != nil {
			return nil, err
		}
		return many, nil
	}

	var one api.NewPost
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []api.NewPost{one}, nil
}
