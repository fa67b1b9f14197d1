package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven preview change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, template string)

// PreviewWriter regenerates or removes the preview for a single template.
type PreviewWriter interface {
	Generate(srcPath string) error
	Remove(templateFilename string) error
}

// Watch starts an fsnotify watcher on the template directory and keeps
// previews in step with it until ctx is cancelled: new or rewritten template
// images get their preview regenerated, removed images get their preview
// deleted. It calls cb (if non-nil) after each successful change.
//
// The template directory is flat; subdirectories are not watched.
func Watch(ctx context.Context, lib *Library, gen PreviewWriter, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(lib.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", lib.Root()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			filename := filepath.Base(ev.Name)
			if !isTemplateImage(filename) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if genErr := gen.Generate(ev.Name); genErr != nil {
					logger.Warn("watcher: preview failed",
						slog.String("template", filename),
						slog.String("error", genErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: preview written", slog.String("template", filename), slog.String("op", kind))
				if cb != nil {
					cb(kind, filename)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the OLD path only; a rename
				// within the directory arrives as a separate Create.
				if rmErr := gen.Remove(filename); rmErr != nil {
					logger.Warn("watcher: preview remove failed",
						slog.String("template", filename),
						slog.String("error", rmErr.Error()))
					continue
				}
				logger.Debug("watcher: preview removed", slog.String("template", filename))
				if cb != nil {
					cb("deleted", filename)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isTemplateImage(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
