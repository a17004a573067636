package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testApp writes a config that keeps the library and activity log in dir.
func testApp(t *testing.T, dir string) string {
	t.Helper()
	cfg := filepath.Join(dir, "config.yaml")
	body := "library:\n  path: " + filepath.Join(dir, "library.json") +
		"\nsqlite:\n  path: " + filepath.Join(dir, "shelf.db") + "\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func runApp(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"shelf", "--config", cfg, "--no-color"}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := runApp(t, cfg, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestSearchLimitAndHistoryTotals(t *testing.T) {
	cfg := testApp(t, t.TempDir())
	mustRun(t, cfg, "add", "001", "Dune", "Frank Herbert")
	mustRun(t, cfg, "add", "002", "Children of Dune", "Frank Herbert")

	out := mustRun(t, cfg, "search", "--mode", "substring", "--limit", "1", "dune")
	if !strings.Contains(out, "001") || strings.Contains(out, "Children") {
		t.Errorf("limited search output:\n%s", out)
	}
	if _, err := runApp(t, cfg, "search", "--limit", "many", "dune"); err == nil {
		t.Error("non-numeric limit accepted")
	}

	out = mustRun(t, cfg, "history", "--limit", "1")
	if strings.Count(out, "\n") != 2 {
		t.Errorf("want one entry and a totals line:\n%s", out)
	}
	if !strings.Contains(out, "totals: add 2, save 2, search 1") {
		t.Errorf("history totals missing:\n%s", out)
	}
}

func TestStatsListsIndexKeys(t *testing.T) {
	cfg := testApp(t, t.TempDir())
	mustRun(t, cfg, "add", "001", "Dune", "Frank Herbert")
	mustRun(t, cfg, "add", "003", "Emma", "Jane Austen")

	out := mustRun(t, cfg, "stats")
	if strings.Contains(out, "Jane Austen") {
		t.Errorf("plain stats listed authors:\n%s", out)
	}
	out = mustRun(t, cfg, "stats", "--titles", "--authors")
	for _, want := range []string{"  Dune\n  Emma\n", "  Frank Herbert\n  Jane Austen\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output lacks %q:\n%s", want, out)
		}
	}
}
