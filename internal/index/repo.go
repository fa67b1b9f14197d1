package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hollis/easel/internal/apperr"
)

// DesignRow represents a row in the designs table.
type DesignRow struct {
	ID         string
	TemplateID string
	Checksum   string
	UpdatedAt  time.Time
}

// UpsertDesign inserts or replaces a design's metadata.
func (db *DB) UpsertDesign(row DesignRow) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO designs (id, template_id, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template_id = excluded.template_id,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`, row.ID, row.TemplateID, row.Checksum, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert design: %w", err)
	}
	return nil
}

// DeleteDesign removes a design's metadata.
func (db *DB) DeleteDesign(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM designs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete design: %w", err)
	}
	return nil
}

// GetDesign returns a single design's metadata.
func (db *DB) GetDesign(id string) (*DesignRow, error) {
	var row DesignRow
	err := db.conn.QueryRow(`
		SELECT id, template_id, checksum, updated_at FROM designs WHERE id = ?
	`, id).Scan(&row.ID, &row.TemplateID, &row.Checksum, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get design: %w", err)
	}
	return &row, nil
}

// ListDesigns returns paginated design metadata, newest first, optionally
// filtered by template. limit <= 0 means no limit.
func (db *DB) ListDesigns(limit, offset int, templateID string) ([]DesignRow, int, error) {
	where := ""
	args := []any{}
	if templateID != "" {
		where = " WHERE template_id = ?"
		args = append(args, templateID)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM designs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count designs: %w", err)
	}

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	args = append(args, limit, offset)
	rows, err := db.conn.Query(`
		SELECT id, template_id, checksum, updated_at FROM designs
	`+where+` ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list designs: %w", err)
	}
	defer rows.Close()

	var out []DesignRow
	for rows.Next() {
		var r DesignRow
		if err := rows.Scan(&r.ID, &r.TemplateID, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns every indexed design ID mapped to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM designs`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
