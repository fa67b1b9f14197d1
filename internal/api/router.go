package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hollis/easel/internal/web"
)

// Deps bundles what the router mounts.
type Deps struct {
	Pages   *Pages
	Handler *Handler

	AuthEnabled bool
	Token       string

	// SSE, if non-nil, is mounted at GET /api/events inside the auth group.
	SSE http.Handler

	// Directories exposed as read-only static mounts.
	TemplateDir string
	PreviewsDir string
	ExportsDir  string
}

// NewRouter creates a chi router with all routes mounted.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	// HTML pages.
	r.Get("/", d.Pages.Index)
	r.Get("/editor/{templateID}", d.Pages.Editor)

	// JSON API. Reads are open; mutating routes sit behind the (optional)
	// bearer-token middleware. The editor posts to the bare paths; the /api
	// aliases exist for programmatic clients.
	r.Get("/design/{designID}", d.Handler.GetDesign)
	r.Get("/api/design/{designID}", d.Handler.GetDesign)
	r.Get("/api/designs", d.Handler.ListDesigns)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.AuthEnabled, d.Token))
		r.Post("/save", d.Handler.SaveDesign)
		r.Post("/api/save", d.Handler.SaveDesign)
		r.Post("/export", d.Handler.ExportImage)
		r.Post("/api/export", d.Handler.ExportImage)
		if d.SSE != nil {
			r.Get("/api/events", d.SSE.ServeHTTP)
		}
	})

	// Static asset mounts: template images, previews, and exports from disk,
	// plus the embedded editor assets.
	r.Handle("/templates_images/*", http.StripPrefix("/templates_images/", http.FileServer(http.Dir(d.TemplateDir))))
	r.Handle("/previews/*", http.StripPrefix("/previews/", http.FileServer(http.Dir(d.PreviewsDir))))
	r.Handle("/exports/*", http.StripPrefix("/exports/", http.FileServer(http.Dir(d.ExportsDir))))
	r.Handle("/static/*", http.FileServer(http.FS(web.Static)))

	return r
}
