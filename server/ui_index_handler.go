package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

// PageData is the template model shared by the public pages
type PageData struct {
	AppName string
	Error   string // Single inline error
	Message string // Informational notice, e.g. after sign up
	Email   string // Preserve email on error
}

// IndexHandler renders the landing page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusOK, PageData{AppName: s.config.GetAppName()})
	}
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, statusCode int, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(statusCode)
	if err := tmpl.ExecuteTemplate(w, layoutTemplate, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}
