package api

import (
	"encoding/json"

	"github.com/hollis/easel/internal/models"
)

// SaveRequest is the request body for persisting a design.
type SaveRequest struct {
	DesignID   string          `json:"design_id,omitempty"`
	TemplateID string          `json:"template_id"`
	DesignJSON json.RawMessage `json:"design_json"`
}

// SaveResponse acknowledges a persisted design with the identifier used.
type SaveResponse struct {
	Status   string `json:"status"`
	DesignID string `json:"design_id"`
}

// ExportResponse acknowledges a written export artifact.
type ExportResponse struct {
	Status string `json:"status"`
	File   string `json:"file"`
}

// DesignListResponse wraps paginated design listings.
type DesignListResponse struct {
	Designs []models.DesignMeta `json:"designs"`
	Total   int                 `json:"total"`
}
