package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"
)

const contentTypeHTML = "text/html; charset=utf-8"

// Page templates
const (
	pageLogin     = "login.html"
	pageDashboard = "dashboard.html"
	pageLoading   = "loading.html"
	pageError     = "error.html"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(TemplateFilesFS(), "layout.html", name)
}

// pages holds the parsed console pages
type pages struct {
	templates map[string]*template.Template
}

func parsePages() (*pages, error) {
	p := &pages{templates: map[string]*template.Template{}}
	for _, name := range []string{pageLogin, pageDashboard, pageLoading, pageError} {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, err
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// render executes the page into a buffer first so a template failure still
// produces a clean 500
func (p *pages) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		zerolog.Ctx(r.Context()).Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
