package api

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hollis/easel/internal/library"
	"github.com/hollis/easel/internal/models"
	"github.com/hollis/easel/internal/web"
)

// Pages renders the server-side HTML views from the embedded templates.
type Pages struct {
	lib  *library.Library
	tmpl *template.Template
}

// NewPages parses the embedded HTML templates.
func NewPages(lib *library.Library) (*Pages, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("api: parse templates: %w", err)
	}
	return &Pages{lib: lib, tmpl: tmpl}, nil
}

type indexView struct {
	Templates []models.Template
}

type editorView struct {
	TemplateID string
	ImageURL   string
	Width      int
	Height     int
}

// Index handles GET / and lists the surfaced templates.
func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	templates, err := p.lib.Templates()
	if err != nil {
		slog.Error("index page failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	p.render(w, "index.html", indexView{Templates: templates})
}

// Editor handles GET /editor/{templateID}. A template whose header cannot be
// read (or that is missing entirely) still renders, with the editor-view
// default dimensions substituted.
func (p *Pages) Editor(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	if !library.ValidID(templateID) {
		http.NotFound(w, r)
		return
	}

	width, height := library.DefaultEditorWidth, library.DefaultEditorHeight
	if probedW, probedH, err := p.lib.Dimensions(templateID); err == nil {
		width, height = probedW, probedH
	} else {
		slog.Warn("editor: unreadable template dimensions, using defaults",
			slog.String("template", templateID),
			slog.String("error", err.Error()))
	}

	p.render(w, "editor.html", editorView{
		TemplateID: templateID,
		ImageURL:   "/templates_images/" + templateID,
		Width:      width,
		Height:     height,
	})
}

func (p *Pages) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template render failed", slog.String("template", name), slog.String("error", err.Error()))
	}
}
