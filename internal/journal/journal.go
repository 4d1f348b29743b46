// Package journal keeps a SQLite log of saves: which file was patched into
// which sibling, the content digests on both sides and the edits applied.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/xxh3"

	"github.com/DeusData/designer-mcp/internal/mutation"
)

// Journal wraps a SQLite connection holding the save log.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// Save is one recorded save.
type Save struct {
	ID           int64               `json:"id"`
	Session      string              `json:"session"`
	SourcePath   string              `json:"sourcePath"`
	SiblingPath  string              `json:"siblingPath"`
	SourceDigest string              `json:"sourceDigest"`
	OutputDigest string              `json:"outputDigest"`
	Edits        []mutation.Mutation `json:"edits"`
	SavedAt      string              `json:"savedAt"`
}

// Digest returns the hex xxh3 digest used to fingerprint file contents.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// OpenPath opens or creates the journal database at path.
func OpenPath(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{db: db, dbPath: path}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	slog.Debug("journal.open", "path", path)
	return j, nil
}

// OpenMemory opens an in-memory journal (for testing).
func OpenMemory() (*Journal, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open memory journal: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	j := &Journal{db: db, dbPath: ":memory:"}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.dbPath }

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		source_path TEXT NOT NULL,
		sibling_path TEXT NOT NULL,
		source_digest TEXT NOT NULL,
		output_digest TEXT NOT NULL,
		edits INTEGER NOT NULL DEFAULT 0,
		saved_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_source ON saves(source_path);

	CREATE TABLE IF NOT EXISTS save_edits (
		save_id INTEGER NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		widget TEXT NOT NULL,
		kind TEXT NOT NULL,
		old_value TEXT NOT NULL DEFAULT '',
		new_value TEXT NOT NULL DEFAULT '',
		line INTEGER NOT NULL,
		col INTEGER NOT NULL,
		PRIMARY KEY (save_id, seq)
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores s and its edits in one transaction and returns the new id.
func (j *Journal) Record(s *Save) (int64, error) {
	if s.SavedAt == "" {
		s.SavedAt = Now()
	}
	tx, err := j.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO saves (session, source_path, sibling_path, source_digest, output_digest, edits, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Session, s.SourcePath, s.SiblingPath, s.SourceDigest, s.OutputDigest, len(s.Edits), s.SavedAt)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert save: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("save id: %w", err)
	}
	for i, e := range s.Edits {
		_, err := tx.Exec(`INSERT INTO save_edits (save_id, seq, widget, kind, old_value, new_value, line, col)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, e.Widget, string(e.Kind), e.Old, e.New, e.Location.Line, e.Location.Column)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert edit: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.ID = id
	slog.Info("journal.record", "id", id, "source", s.SourcePath, "edits", len(s.Edits))
	return id, nil
}

// List returns the most recent saves, newest first. limit <= 0 means all.
func (j *Journal) List(limit int) ([]*Save, error) {
	q := `SELECT id, session, source_path, sibling_path, source_digest, output_digest, saved_at
		FROM saves ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return j.query(q, args...)
}

// ForSource returns every save of the given source file, oldest first.
func (j *Journal) ForSource(path string) ([]*Save, error) {
	return j.query(`SELECT id, session, source_path, sibling_path, source_digest, output_digest, saved_at
		FROM saves WHERE source_path = ? ORDER BY id`, path)
}

func (j *Journal) query(q string, args ...any) ([]*Save, error) {
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	var saves []*Save
	for rows.Next() {
		s := &Save{}
		if err := rows.Scan(&s.ID, &s.Session, &s.SourcePath, &s.SiblingPath, &s.SourceDigest, &s.OutputDigest, &s.SavedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan save: %w", err)
		}
		saves = append(saves, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	rows.Close()

	for _, s := range saves {
		if s.Edits, err = j.edits(s); err != nil {
			return nil, err
		}
	}
	return saves, nil
}

func (j *Journal) edits(s *Save) ([]mutation.Mutation, error) {
	rows, err := j.db.Query(`SELECT widget, kind, old_value, new_value, line, col
		FROM save_edits WHERE save_id = ? ORDER BY seq`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()
	out := []mutation.Mutation{}
	for rows.Next() {
		var m mutation.Mutation
		var kind string
		m.Location.File = s.SourcePath
		if err := rows.Scan(&m.Widget, &kind, &m.Old, &m.New, &m.Location.Line, &m.Location.Column); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		m.Kind = mutation.Kind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Now returns the current time in ISO 8601 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
