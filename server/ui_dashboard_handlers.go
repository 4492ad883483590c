package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/posts"
	"github.com/rs/zerolog/log"
)

// PostModal is the create/edit form state. EditingID is zero when creating.
type PostModal struct {
	Open      bool
	EditingID int64
	Title     string
	Content   string
}

// DashboardPageData is the template model of the dashboard
type DashboardPageData struct {
	AppName string
	Email   string
	Posts   []posts.Post
	Modal   PostModal
	Toast   string
	Error   string
}

// DashboardHandler lists the signed-in user's posts (GET /pages/dashboard).
// ?new=1 opens the create form and ?edit=<id> opens the edit form for one of the listed posts.
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("dashboard.html")
	if err != nil {
		panic("Failed to parse dashboard template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		query := r.URL.Query()

		data := DashboardPageData{
			AppName: s.config.GetAppName(),
			Email:   identity.Email,
			Toast:   noticeText(query.Get("toast")),
			Error:   pageErrorText(query.Get("error")),
		}

		rows, err := s.posts.Select(r.Context(), identity.UserID, posts.Filter{UserID: &identity.UserID})
		if err != nil {
			log.Err(err).Str("user_id", identity.UserID).Msg("Failed to load posts")
			data.Error = auth.Message(err)
			s.render(w, tmpl, http.StatusInternalServerError, data)
			return
		}
		data.Posts = rows

		if query.Get("new") != "" {
			data.Modal = PostModal{Open: true}
		}
		if editID, err := strconv.ParseInt(query.Get("edit"), 10, 64); err == nil {
			for _, p := range rows {
				if p.ID == editID {
					data.Modal = PostModal{Open: true, EditingID: p.ID, Title: p.Title, Content: p.Content}
					break
				}
			}
		}

		s.render(w, tmpl, http.StatusOK, data)
	}
}

// DashboardCreatePostHandler creates a post owned by the signed-in user (POST /pages/dashboard/posts)
func (s *Server) DashboardCreatePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		caller := callerID(r)
		input := posts.Input{Title: r.FormValue("title"), Content: r.FormValue("content"), UserID: caller}
		if _, err := s.posts.Insert(r.Context(), caller, []posts.Input{input}); err != nil {
			log.Err(err).Str("user_id", caller).Msg("Failed to create post")
			redirectWithError(w, r, RouteDashboard, err)
			return
		}
		redirectWithToast(w, r, RouteDashboard, noticePostAdded)
	}
}

// DashboardUpdatePostHandler edits title and content of a post (POST /pages/dashboard/posts/{id}).
// An id that is not one of the user's posts changes nothing and shows no toast.
func (s *Server) DashboardUpdatePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid post id", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		caller := callerID(r)
		filter := posts.Filter{ID: &id, UserID: &caller}
		changes := posts.Changes{Title: r.FormValue("title"), Content: r.FormValue("content")}

		updated, err := s.posts.Update(r.Context(), caller, filter, changes)
		if err != nil {
			log.Err(err).Int64("post_id", id).Str("user_id", caller).Msg("Failed to update post")
			redirectWithError(w, r, RouteDashboard, err)
			return
		}
		if len(updated) == 0 {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		redirectWithToast(w, r, RouteDashboard, noticePostUpdated)
	}
}

// DashboardDeletePostHandler deletes a post (POST /pages/dashboard/posts/{id}/delete).
// An id that is not one of the user's posts deletes nothing and shows no toast.
func (s *Server) DashboardDeletePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid post id", http.StatusBadRequest)
			return
		}

		caller := callerID(r)
		deleted, err := s.posts.Delete(r.Context(), caller, posts.Filter{ID: &id, UserID: &caller})
		if err != nil {
			log.Err(err).Int64("post_id", id).Str("user_id", caller).Msg("Failed to delete post")
			redirectWithError(w, r, RouteDashboard, err)
			return
		}
		if len(deleted) == 0 {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		redirectWithToast(w, r, RouteDashboard, noticePostDeleted)
	}
}
