// Package library enumerates the template images that designs are built on.
//
// The set of templates is exactly "files present in the template directory",
// capped at a configured maximum. There is no persistent identity beyond the
// filesystem: a template's ID is its filename.
package library

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	// Registered decoders for the supported template formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/hollis/easel/internal/apperr"
	"github.com/hollis/easel/internal/models"
)

// Fallback dimensions used when an image header cannot be read.
const (
	DefaultListWidth  = 880
	DefaultListHeight = 1020

	DefaultEditorWidth  = 1080
	DefaultEditorHeight = 1350
)

// globPatterns define the enumeration order: jpg, then jpeg, then png.
var globPatterns = []string{"*.jpg", "*.jpeg", "*.png"}

// Library scans a directory of template images.
type Library struct {
	root   string
	max    int
	logger *slog.Logger
}

// New creates a Library rooted at dir, surfacing at most max templates.
// The directory must already exist.
func New(dir string, max int, logger *slog.Logger) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("library: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("library: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library: root is not a directory: %s", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{root: abs, max: max, logger: logger}, nil
}

// Root returns the absolute template-image directory.
func (l *Library) Root() string {
	return l.root
}

// Scan returns the absolute paths of up to max template images, in glob
// enumeration order.
func (l *Library) Scan() ([]string, error) {
	var paths []string
	for _, pattern := range globPatterns {
		matches, err := filepath.Glob(filepath.Join(l.root, pattern))
		if err != nil {
			return nil, fmt.Errorf("library: glob %s: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) > l.max {
		paths = paths[:l.max]
	}
	return paths, nil
}

// Templates returns the surfaced template set with header-probed dimensions.
// Templates whose headers cannot be read fall back to the list-view defaults.
func (l *Library) Templates() ([]models.Template, error) {
	paths, err := l.Scan()
	if err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(paths))
	for _, p := range paths {
		filename := filepath.Base(p)
		w, h, err := probeDimensions(p)
		if err != nil {
			l.logger.Warn("library: unreadable image header, using defaults",
				slog.String("template", filename),
				slog.String("error", err.Error()))
			w, h = DefaultListWidth, DefaultListHeight
		}
		out = append(out, models.Template{
			ID:         filename,
			Name:       DisplayName(filename),
			Width:      w,
			Height:     h,
			PreviewURL: "/previews/" + PreviewName(filename),
			ImageURL:   "/templates_images/" + filename,
		})
	}
	return out, nil
}

// Dimensions probes the header of a single template by ID. Unknown IDs
// return apperr.ErrNotFound; unreadable headers propagate the decode error
// so callers can substitute their own defaults.
func (l *Library) Dimensions(templateID string) (int, int, error) {
	if !ValidID(templateID) {
		return 0, 0, fmt.Errorf("library: %q: %w", templateID, apperr.ErrNotFound)
	}
	p := filepath.Join(l.root, templateID)
	if _, err := os.Stat(p); err != nil {
		return 0, 0, fmt.Errorf("library: %q: %w", templateID, apperr.ErrNotFound)
	}
	return probeDimensions(p)
}

// ValidID reports whether a template ID is a plain filename with no path
// separators or traversal components.
func ValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return id == filepath.Base(filepath.Clean(id)) && !strings.ContainsAny(id, `/\`)
}

// Stem returns the filename without its extension.
func Stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// PreviewName derives the deterministic preview filename for a template.
func PreviewName(filename string) string {
	return "preview_" + Stem(filename) + ".jpg"
}

// DisplayName turns a template filename into a human-readable name:
// underscores become spaces and each word is capitalised.
func DisplayName(filename string) string {
	words := strings.Fields(strings.ReplaceAll(Stem(filename), "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// probeDimensions reads only the image header, never the full bitmap.
func probeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("library: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("library: decode header %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}
