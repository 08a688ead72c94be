// Package web holds the embedded HTML templates.
package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every page template with the shared layout.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatTime": formatTime,
	}).ParseFS(templateFS, "templates/*.html")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
