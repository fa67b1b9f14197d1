// Package designstore persists design documents and exported artifacts.
//
// Designs are filename-addressed: one pretty-printed JSON file per design in
// the designs directory. Exports are raw bytes decoded from a client-supplied
// base64 payload, written to the exports directory. Last write wins on a
// re-saved design ID; atomic writes in the storage layer guarantee readers
// never see a torn file.
package designstore

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/hollis/easel/internal/apperr"
	"github.com/hollis/easel/internal/checksum"
	"github.com/hollis/easel/internal/index"
	"github.com/hollis/easel/internal/models"
	"github.com/hollis/easel/internal/storage"
)

var (
	// safeIDRe accepts the IDs we generate plus reasonable caller-chosen
	// ones; anything with separators or traversal never reaches the disk.
	safeIDRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

	safeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// Service coordinates the designs directory, the exports directory, and the
// metadata index.
type Service struct {
	designs storage.Provider
	exports storage.Provider
	db      index.DesignIndex
}

// NewService creates a new design store service.
func NewService(designs, exports storage.Provider, db index.DesignIndex) *Service {
	return &Service{designs: designs, exports: exports, db: db}
}

// Save persists a design document, generating an ID when none is supplied,
// and returns the stored document. Saving an existing ID overwrites it.
func (s *Service) Save(_ context.Context, designID, templateID string, design json.RawMessage) (*models.Design, error) {
	if designID == "" {
		designID = NewDesignID()
	} else if !safeIDRe.MatchString(designID) {
		return nil, fmt.Errorf("design id %q: %w", designID, apperr.ErrInvalidPayload)
	}

	doc := &models.Design{
		DesignID:   designID,
		TemplateID: templateID,
		Design:     design,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("designstore: marshal %s: %w", designID, err)
	}

	if err := s.designs.Write(designID+".json", data); err != nil {
		return nil, err
	}
	if err := s.db.UpsertDesign(index.DesignRow{
		ID:         designID,
		TemplateID: templateID,
		Checksum:   checksum.Sum(data),
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get reads and parses a stored design document by ID.
func (s *Service) Get(_ context.Context, designID string) (*models.Design, error) {
	if !safeIDRe.MatchString(designID) {
		return nil, apperr.ErrNotFound
	}
	data, err := s.designs.Read(designID + ".json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	var doc models.Design
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("designstore: parse %s: %w", designID, err)
	}
	return &doc, nil
}

// List returns paginated design metadata from the index, newest first.
func (s *Service) List(_ context.Context, limit, offset int, templateID string) ([]models.DesignMeta, int, error) {
	rows, total, err := s.db.ListDesigns(limit, offset, templateID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.DesignMeta, len(rows))
	for i, r := range rows {
		out[i] = models.DesignMeta{
			DesignID:   r.ID,
			TemplateID: r.TemplateID,
			Checksum:   r.Checksum,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return out, total, nil
}

// Export decodes a base64 image payload (optionally a data: URI) and writes
// the raw bytes to the exports directory, returning the filename used. The
// bytes are written verbatim; no image validation is performed.
func (s *Service) Export(_ context.Context, imageB64, filename string) (string, error) {
	data, err := decodeBase64Payload(imageB64)
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = "export_" + randomHex(8) + ".png"
	} else {
		filename = sanitizeFilename(filename)
	}

	if err := s.exports.Write(filename, data); err != nil {
		return "", err
	}
	return filename, nil
}

// decodeBase64Payload strips an optional data-URI prefix up to the first
// comma and decodes the remainder as base64 (standard, then unpadded).
func decodeBase64Payload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty image payload: %w", apperr.ErrInvalidPayload)
	}
	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, fmt.Errorf("data URI missing comma separator: %w", apperr.ErrInvalidPayload)
		}
		encoded = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("undecodable base64: %w", apperr.ErrInvalidPayload)
		}
	}
	return data, nil
}

// sanitizeFilename strips path separators and unsafe characters from a
// caller-chosen export filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || strings.Trim(name, "._") == "" {
		name = "export_" + randomHex(8) + ".png"
	}
	return name
}

// NewDesignID returns a fresh design identifier: "design_" plus twelve hex
// characters, effectively collision-free for practical use.
func NewDesignID() string {
	return "design_" + randomHex(12)
}

func randomHex(n int) string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:n]
}
