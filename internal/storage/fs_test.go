package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte(`{"design_id":"d1"}`)
	if err := s.Write("d1.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("d1.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteOverwritesInPlace(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("d.json", []byte("first"))
	if err := s.Write("d.json", []byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("d.json")
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del.json", []byte("bye"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListFiltersBySuffix(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a.json", []byte("a"))
	_ = s.Write("b.json", []byte("b"))
	_ = s.Write("export_1.png", []byte("not json"))

	items, err := s.List(".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Name)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// The rename is atomic on POSIX: a concurrent reader sees either the old
	// or the new content, and no temp files survive.
	s := tempStore(t)
	original := []byte("original content")
	_ = s.Write("atomic.json", original)

	updated := []byte("updated content")
	if err := s.Write("atomic.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".easel-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/easel-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "easel-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
