package server

import (
	"embed"
	"html/template"
)

//go:embed templates/*
var templateFiles embed.FS

var templateFS = mustSub(templateFiles, "templates")

const layoutTemplate = "layout.html"

// ParseTemplate parses a page from the embedded filesystem together with the shared layout.
// Pages define a "content" block; execute the result with ExecuteTemplate(w, layoutTemplate, data).
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(layoutTemplate).ParseFS(templateFS, layoutTemplate, name)
}
