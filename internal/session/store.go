// Package session provides durable, content-addressed storage for compile
// sessions, so a prior compile's artifacts can be replayed by hash (the
// `squint replay` subcommand) without re-running the pipeline. It follows the
// teacher's SQLite store conventions: WAL mode, a single writer connection,
// an embedded schema, and idempotent inserts.
package session

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store persists compile sessions in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path, applying pragmas and the
// schema. Safe to call repeatedly against the same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	// SQLite allows only one writer; keep the pool to a single connection so
	// concurrent compiles never trip SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("open session store: apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Session is one recorded compile: its inputs and its emitted artifacts.
type Session struct {
	Hash           string
	RunID          string
	Source         string
	StrictOverlays bool
	ControlText    string
	LogJSON        string
	SimJSON        string // empty when --simulate was not requested
	CreatedSeq     int64
}

// Save inserts a session record, keyed by content hash. Re-saving the same
// hash (e.g. re-running an identical compile) is a no-op — this is the
// content-addressed analogue of the teacher's ON CONFLICT DO NOTHING writes.
// If sess.RunID is empty, Save assigns a fresh UUIDv7 correlation id.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.RunID == "" {
		sess.RunID = newRunID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compile_sessions
		(hash, run_id, source, strict_overlays, control_text, log_json, sim_json, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		sess.Hash, sess.RunID, sess.Source, sess.StrictOverlays,
		sess.ControlText, sess.LogJSON, sess.SimJSON, sess.CreatedSeq,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.Hash, err)
	}
	return nil
}

// Get looks up a session by its content hash. Returns sql.ErrNoRows (wrapped)
// if no session with that hash was ever saved.
func (s *Store) Get(ctx context.Context, hash string) (*Session, error) {
	var sess Session
	var simJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, run_id, source, strict_overlays, control_text, log_json, sim_json, created_seq
		FROM compile_sessions WHERE hash = ?
	`, hash).Scan(
		&sess.Hash, &sess.RunID, &sess.Source, &sess.StrictOverlays,
		&sess.ControlText, &sess.LogJSON, &simJSON, &sess.CreatedSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", hash, err)
	}
	sess.SimJSON = simJSON.String
	return &sess, nil
}

// List returns every stored session ordered by insertion sequence.
func (s *Store) List(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, run_id, source, strict_overlays, control_text, log_json, sim_json, created_seq
		FROM compile_sessions ORDER BY created_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var simJSON sql.NullString
		if err := rows.Scan(&sess.Hash, &sess.RunID, &sess.Source, &sess.StrictOverlays,
			&sess.ControlText, &sess.LogJSON, &simJSON, &sess.CreatedSeq); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sess.SimJSON = simJSON.String
		out = append(out, sess)
	}
	return out, rows.Err()
}
