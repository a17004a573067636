package activity

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "activity.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM activity`).Scan(&count); err != nil {
		t.Fatalf("activity table missing: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d", count)
	}
}

func TestLogAndRecent(t *testing.T) {
	db := testDB(t)
	before := time.Now().Add(-time.Minute)

	_ = db.Log(OpAdd, "001", "Dune")
	_ = db.Log(OpSearch, "", "dune")
	_ = db.Log(OpRemove, "001", "Dune")

	got, err := db.Recent(10, "")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Op != OpRemove || got[2].Op != OpAdd {
		t.Errorf("order = %s..%s, want newest first", got[0].Op, got[2].Op)
	}
	if got[1].ISBN != "" || got[1].Detail != "dune" {
		t.Errorf("search entry = %+v", got[1])
	}
	if got[0].At.Before(before) {
		t.Errorf("timestamp %v too old", got[0].At)
	}
}

func TestRecentFilterAndLimit(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		_ = db.Log(OpSearch, "", "q")
	}
	_ = db.Log(OpAdd, "001", "")

	got, _ := db.Recent(2, OpSearch)
	if len(got) != 2 {
		t.Errorf("limit: len = %d", len(got))
	}
	got, _ = db.Recent(0, OpAdd)
	if len(got) != 1 || got[0].ISBN != "001" {
		t.Errorf("filter: %+v", got)
	}
}

func TestCounts(t *testing.T) {
	db := testDB(t)
	_ = db.Log(OpAdd, "1", "")
	_ = db.Log(OpAdd, "2", "")
	_ = db.Log(OpEdit, "2", "")

	got, err := db.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if got[OpAdd] != 2 || got[OpEdit] != 1 || got[OpRemove] != 0 {
		t.Errorf("counts = %v", got)
	}
}

func TestDiscard(t *testing.T) {
	var r Recorder = Discard{}
	if err := r.Log(OpAdd, "1", ""); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Recent(5, "")
	if got == nil || len(got) != 0 {
		t.Errorf("Recent = %#v", got)
	}
}
