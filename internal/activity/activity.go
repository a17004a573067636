package activity

import (
	"fmt"
	"time"
)

// Operation names recorded in the log.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpEdit   = "edit"
	OpSearch = "search"
	OpSave   = "save"
	OpReload = "reload"
	OpImport = "import"
)

// Entry is one logged operation.
type Entry struct {
	ID     int64     `json:"id"`
	Op     string    `json:"op"`
	ISBN   string    `json:"isbn,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Recorder is what the service layer needs from the log. Consumers depend
// on this so tests can run without SQLite.
type Recorder interface {
	Log(op, isbn, detail string) error
	Recent(limit int, op string) ([]Entry, error)
	Counts() (map[string]int, error)
	Close() error
}

var _ Recorder = (*DB)(nil)

// Log appends an entry stamped with the current UTC time.
func (db *DB) Log(op, isbn, detail string) error {
	_, err := db.conn.Exec(
		`INSERT INTO activity (op, isbn, detail, at) VALUES (?, ?, ?, ?)`,
		op, isbn, detail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("activity: log %s: %w", op, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-empty op filters
// by operation. limit <= 0 means 50.
func (db *DB) Recent(limit int, op string) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, op, isbn, detail, at FROM activity`
	args := []any{}
	if op != "" {
		query += ` WHERE op = ?`
		args = append(args, op)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: recent: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Op, &e.ISBN, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("activity: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of entries per operation.
func (db *DB) Counts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT op, count(*) FROM activity GROUP BY op`)
	if err != nil {
		return nil, fmt.Errorf("activity: counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var op string
		var n int
		if err := rows.Scan(&op, &n); err != nil {
			return nil, fmt.Errorf("activity: scan: %w", err)
		}
		out[op] = n
	}
	return out, rows.Err()
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) Log(string, string, string) error { return nil }

func (Discard) Recent(int, string) ([]Entry, error) { return []Entry{}, nil }

func (Discard) Counts() (map[string]int, error) { return map[string]int{}, nil }

func (Discard) Close() error { return nil }
