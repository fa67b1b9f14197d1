package index

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/hollis/easel/internal/storage"
)

// Sync walks the designs directory and brings the index up to date:
//   - new/changed design files are decoded and upserted
//   - designs removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List(".json")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		id := strings.TrimSuffix(f.Name, ".json")
		disk[id] = struct{}{}

		if checksums[id] == f.Checksum {
			continue
		}

		data, err := store.Read(f.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("design", id), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, id, f.Checksum, data); err != nil {
			logger.Warn("sync: index failed", slog.String("design", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("design", id))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteDesign(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("design", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("design", id))
			}
		}
	}

	return nil
}

// indexFile decodes just enough of a design document to upsert its metadata.
func indexFile(db *DB, id, checksum string, data []byte) error {
	var doc struct {
		TemplateID string `json:"template_id"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return db.UpsertDesign(DesignRow{
		ID:         id,
		TemplateID: doc.TemplateID,
		Checksum:   checksum,
	})
}
