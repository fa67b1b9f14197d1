// Package preview generates downscaled JPEG thumbnails of template images.
package preview

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/hollis/easel/internal/library"
)

// Generator writes width-constrained JPEG previews of template images into
// the previews directory. Preview filenames derive deterministically from the
// source filename, so regeneration always overwrites in place.
type Generator struct {
	lib     *library.Library
	outDir  string
	width   int
	quality int
	logger  *slog.Logger
}

// NewGenerator creates a Generator writing previews of the given width and
// JPEG quality into outDir. The directory must already exist.
func NewGenerator(lib *library.Library, outDir string, width, quality int, logger *slog.Logger) (*Generator, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("preview: resolve out dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("preview: stat out dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("preview: out dir is not a directory: %s", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{lib: lib, outDir: abs, width: width, quality: quality, logger: logger}, nil
}

// GenerateAll regenerates previews for every surfaced template, overwriting
// prior previews. A failure on one image is logged and skipped; the remaining
// images are still processed. Returns how many previews were written.
func (g *Generator) GenerateAll() (int, error) {
	paths, err := g.lib.Scan()
	if err != nil {
		return 0, err
	}
	written := 0
	for _, p := range paths {
		if err := g.Generate(p); err != nil {
			g.logger.Warn("preview: generation failed, skipping",
				slog.String("image", filepath.Base(p)),
				slog.String("error", err.Error()))
			continue
		}
		written++
	}
	g.logger.Info("preview: generation complete",
		slog.Int("templates", len(paths)),
		slog.Int("previews", written))
	return written, nil
}

// Generate writes the preview for a single template image. The result is
// exactly g.width pixels wide with height rounded to preserve the source
// aspect ratio, resampled with a Lanczos filter.
func (g *Generator) Generate(srcPath string) error {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("preview: open %s: %w", filepath.Base(srcPath), err)
	}

	// Height 0 keeps the aspect ratio: round(H * width / W).
	resized := imaging.Resize(img, g.width, 0, imaging.Lanczos)

	dst := filepath.Join(g.outDir, library.PreviewName(filepath.Base(srcPath)))
	if err := imaging.Save(resized, dst, imaging.JPEGQuality(g.quality)); err != nil {
		return fmt.Errorf("preview: save %s: %w", filepath.Base(dst), err)
	}
	return nil
}

// Remove deletes the preview for a template that no longer exists. A missing
// preview is not an error.
func (g *Generator) Remove(templateFilename string) error {
	dst := filepath.Join(g.outDir, library.PreviewName(templateFilename))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("preview: remove %s: %w", filepath.Base(dst), err)
	}
	return nil
}
