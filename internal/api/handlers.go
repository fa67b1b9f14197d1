package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hollis/easel/internal/apperr"
	"github.com/hollis/easel/internal/designstore"
	"github.com/hollis/easel/internal/models"
	"github.com/hollis/easel/internal/sse"
)

const (
	maxSaveBytes   = 10 << 20 // 10 MB design document
	maxExportBytes = 50 << 20 // 50 MB base64 payload
)

// Publisher pushes events to connected SSE clients.
type Publisher interface {
	Publish(event sse.Event)
}

// Handler holds the JSON API route handlers.
type Handler struct {
	svc    *designstore.Service
	events Publisher
}

// NewHandler creates a new Handler. events may be nil when no SSE broker is
// running.
func NewHandler(svc *designstore.Service, events Publisher) *Handler {
	return &Handler{svc: svc, events: events}
}

// SaveDesign handles POST /save.
// Body: {design_id?, template_id, design_json} → {status, design_id}.
func (h *Handler) SaveDesign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBytes)

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.TemplateID == "" || len(req.DesignJSON) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("template_id and design_json are required"))
		return
	}

	doc, err := h.svc.Save(r.Context(), req.DesignID, req.TemplateID, req.DesignJSON)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidPayload) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("save design failed", slog.String("design_id", req.DesignID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.events != nil {
		h.events.Publish(sse.Event{Type: "design.saved", Data: map[string]string{
			"design_id":   doc.DesignID,
			"template_id": doc.TemplateID,
		}})
	}
	writeJSON(w, http.StatusOK, SaveResponse{Status: "ok", DesignID: doc.DesignID})
}

// GetDesign handles GET /design/{designID} and returns the stored document.
func (h *Handler) GetDesign(w http.ResponseWriter, r *http.Request) {
	designID := chi.URLParam(r, "designID")
	if designID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("design id is required"))
		return
	}
	doc, err := h.svc.Get(r.Context(), designID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("design not found"))
		} else {
			slog.Error("get design failed", slog.String("design_id", designID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ExportImage handles POST /export.
// Form fields: image_b64 (required, data-URI or raw base64), filename
// (optional) → {status, file}.
func (h *Handler) ExportImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExportBytes)

	imageB64 := r.FormValue("image_b64")
	if imageB64 == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("image_b64 is required"))
		return
	}
	filename := r.FormValue("filename")

	file, err := h.svc.Export(r.Context(), imageB64, filename)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidPayload) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.events != nil {
		h.events.Publish(sse.Event{Type: "design.exported", Data: map[string]string{"file": file}})
	}
	writeJSON(w, http.StatusOK, ExportResponse{Status: "ok", File: file})
}

// ListDesigns handles GET /api/designs.
func (h *Handler) ListDesigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	templateID := q.Get("template")

	designs, total, err := h.svc.List(r.Context(), limit, offset, templateID)
	if err != nil {
		slog.Error("list designs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if designs == nil {
		designs = []models.DesignMeta{}
	}
	writeJSON(w, http.StatusOK, DesignListResponse{Designs: designs, Total: total})
}
