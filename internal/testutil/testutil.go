// Package testutil provides shared test helpers for setting up directories,
// synthetic images, and databases.
package testutil

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollis/easel/internal/index"
	"github.com/hollis/easel/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "easel-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary directory with a storage.Provider rooted in it.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// SilentLogger returns a logger that discards everything.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WritePNG writes a solid-color PNG of the given dimensions.
func WritePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	writeImage(t, path, width, height, func(f *os.File, img image.Image) error {
		return png.Encode(f, img)
	})
}

// WriteJPEG writes a solid-color JPEG of the given dimensions.
func WriteJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	writeImage(t, path, width, height, func(f *os.File, img image.Image) error {
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	})
}

func writeImage(t *testing.T, path string, width, height int, encode func(*os.File, image.Image) error) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 0x88, G: 0x55, B: 0x22, A: 0xff})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := encode(f, img); err != nil {
		t.Fatal(err)
	}
}
