package result

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id           TEXT PRIMARY KEY,
	run_dir      TEXT NOT NULL,
	engine       TEXT NOT NULL,
	scheme       TEXT NOT NULL,
	mode         TEXT NOT NULL,
	performed    INTEGER NOT NULL,
	headline     TEXT,
	value        REAL,
	meta_json    TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS evaluations_scheme ON evaluations (scheme, created_at);
`

// Index is the cross-run evaluation history kept in SQLite.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the history database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error {
	return x.db.Close()
}

// Record stores meta as part of runDir.
func (x *Index) Record(runDir string, meta *EvaluationMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	var headline sql.NullString
	var value sql.NullFloat64
	if name, v, ok := meta.Headline(); ok {
		headline = sql.NullString{String: name, Valid: true}
		value = sql.NullFloat64{Float64: v, Valid: true}
	}
	created := meta.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = x.db.Exec(
		`INSERT OR REPLACE INTO evaluations
		 (id, run_dir, engine, scheme, mode, performed, headline, value, meta_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, runDir, meta.Engine, meta.Scheme, meta.Mode, meta.Performed,
		headline, value, string(raw), created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation %s: %w", meta.ID, err)
	}
	return nil
}

// HistoryEntry is one recorded evaluation of a scheme.
type HistoryEntry struct {
	RunDir string
	Meta   *EvaluationMeta
}

// History returns the most recent evaluations of scheme, newest first.
// limit <= 0 returns all of them.
func (x *Index) History(scheme string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := x.db.Query(
		`SELECT run_dir, meta_json FROM evaluations
		 WHERE scheme = ? ORDER BY created_at DESC LIMIT ?`,
		scheme, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var runDir, raw string
		if err := rows.Scan(&runDir, &raw); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		var meta EvaluationMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, fmt.Errorf("parse history meta: %w", err)
		}
		out = append(out, HistoryEntry{RunDir: runDir, Meta: &meta})
	}
	return out, rows.Err()
}
