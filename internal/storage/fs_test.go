package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("[\n    {}\n]\n")
	if err := s.Write("books.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("books.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("backup/2026/books.json", []byte("[]")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("backup/2026/books.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("nope.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestDeleteAndExists(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.json", []byte("[]"))
	ok, err := s.Exists("del.json")
	if err != nil || !ok {
		t.Fatalf("Exists before delete = %v, %v", ok, err)
	}
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = s.Exists("del.json")
	if err != nil || ok {
		t.Errorf("Exists after delete = %v, %v", ok, err)
	}
}

func TestExistsRejectsDirectory(t *testing.T) {
	s := tempRoot(t)
	if err := os.Mkdir(filepath.Join(s.Root(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Exists("sub"); err == nil {
		t.Error("expected error for directory")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
		"",
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

func TestOverwriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("books.json", []byte("original"))
	if err := s.Write("books.json", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("books.json")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover files: %v", names)
	}
}

func TestNewFSCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "shelf")
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestNewFSFileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	first := NewLock(path)
	if err := first.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	second := NewLock(path)
	ok, err := second.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if ok {
		t.Fatal("second lock acquired while first held")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if err := second.Acquire(ctx); err == nil {
		t.Error("Acquire should fail once context expires")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = second.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("TryAcquire after release = %v, %v", ok, err)
	}
	_ = second.Release()
}

func TestReleaseUnheldIsNoop(t *testing.T) {
	l := NewLock(filepath.Join(t.TempDir(), "books.json"))
	if err := l.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if filepath.Base(l.Path()) != "books.json.lock" {
		t.Errorf("Path = %s", l.Path())
	}
}
