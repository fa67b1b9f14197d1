// Package models defines the domain types for Easel.
package models

import (
	"encoding/json"
	"time"
)

// Template is a source image usable as a design background. Its identity is
// the filename inside the template-image directory.
type Template struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PreviewURL string `json:"preview_url"`
	ImageURL   string `json:"image_url"`
}

// Design is the persisted document for a user-created layout. The Design
// field is kept opaque: the editor owns its schema.
type Design struct {
	DesignID   string          `json:"design_id"`
	TemplateID string          `json:"template_id"`
	Design     json.RawMessage `json:"design"`
}

// DesignMeta is a lightweight representation returned by list operations.
type DesignMeta struct {
	DesignID   string    `json:"design_id"`
	TemplateID string    `json:"template_id"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`
}
