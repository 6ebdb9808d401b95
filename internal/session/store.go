// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists batch screening sessions in SQLite so that a
// run survives process restarts and its results can be revisited later.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/chemscreen/pkg/types"
)

const dbFile = "sessions.db"

// ErrNotFound reports that no session with the requested ID exists.
var ErrNotFound = errors.New("session not found")

// Store manages the sessions SQLite database. All methods are safe for
// concurrent use; SQLite serializes writers internally.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// NewStore opens or creates the session database at dir/sessions.db and
// creates the schema if it does not exist.
func NewStore(cfg types.SessionConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			chemicals TEXT NOT NULL,
			parameters TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			chemical_key TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (session_id, chemical_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Create inserts a new session record. The session's results map is
// expected to be empty at creation time.
func (s *Store) Create(ctx context.Context, sess *types.BatchSession) error {
	chemicals, err := json.Marshal(sess.Chemicals)
	if err != nil {
		return fmt.Errorf("encoding chemicals: %w", err)
	}
	params, err := json.Marshal(sess.Parameters)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, chemicals, parameters, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Status), string(chemicals), string(params),
		encodeTime(sess.CreatedAt), encodeTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", sess.ID, err)
	}
	return nil
}

// UpdateStatus records a status transition and bumps the updated_at
// timestamp.
func (s *Store) UpdateStatus(ctx context.Context, id string, status types.SessionStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), encodeTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("updating session %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResult upserts one chemical's scored result under the session.
// The orchestrator calls this as each work unit completes so partial
// progress is durable.
func (s *Store) SaveResult(ctx context.Context, sessionID string, result types.ScoredResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (session_id, chemical_key, payload) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, chemical_key) DO UPDATE SET payload=excluded.payload`,
		sessionID, result.Chemical.Key(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("upserting result for %s: %w", result.Chemical.Key(), err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		encodeTime(time.Now().UTC()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("touching session %s: %w", sessionID, err)
	}

	return tx.Commit()
}

// Get loads a session with all of its results. Result rows that fail to
// decode are skipped so one corrupt row cannot hide the rest of the
// session.
func (s *Store) Get(ctx context.Context, id string) (*types.BatchSession, error) {
	var (
		status               string
		chemicals, params    string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status, chemicals, parameters, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&status, &chemicals, &params, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	sess := &types.BatchSession{
		ID:      id,
		Status:  types.SessionStatus(status),
		Results: make(map[string]types.ScoredResult),
	}
	if err := json.Unmarshal([]byte(chemicals), &sess.Chemicals); err != nil {
		s.log.Warn("corrupt chemicals column, treating session as missing",
			zap.String("session", id), zap.Error(err))
		return nil, ErrNotFound
	}
	if err := json.Unmarshal([]byte(params), &sess.Parameters); err != nil {
		s.log.Warn("corrupt parameters column, treating session as missing",
			zap.String("session", id), zap.Error(err))
		return nil, ErrNotFound
	}
	sess.CreatedAt = decodeTime(createdAt)
	sess.UpdatedAt = decodeTime(updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT chemical_key, payload FROM results WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading results for session %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		var result types.ScoredResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			s.log.Warn("skipping corrupt result row",
				zap.String("session", id), zap.String("chemical", key), zap.Error(err))
			continue
		}
		sess.Results[key] = result
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results for session %s: %w", id, err)
	}

	return sess, nil
}

// Summary describes a stored session without its result payloads.
type Summary struct {
	ID            string              `json:"id"`
	Status        types.SessionStatus `json:"status"`
	ChemicalCount int                 `json:"chemical_count"`
	ResultCount   int                 `json:"result_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// List returns summaries of all stored sessions, most recently updated
// first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.status, s.chemicals, s.created_at, s.updated_at,
		        (SELECT count(*) FROM results r WHERE r.session_id = s.id)
		 FROM sessions s
		 ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum                  Summary
			status               string
			chemicals            string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&sum.ID, &status, &chemicals, &createdAt, &updatedAt, &sum.ResultCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.Status = types.SessionStatus(status)
		sum.CreatedAt = decodeTime(createdAt)
		sum.UpdatedAt = decodeTime(updatedAt)

		var chems []types.Chemical
		if err := json.Unmarshal([]byte(chemicals), &chems); err == nil {
			sum.ChemicalCount = len(chems)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a session and its results.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete of session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes sessions whose last update is more than the
// given number of days in the past. It returns how many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", days)
	}
	cutoff := encodeTime(time.Now().UTC().AddDate(0, 0, -days))

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions older than %d days: %w", days, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted sessions: %w", err)
	}
	return int(n), nil
}

// Timestamps are stored as RFC 3339 strings in UTC so lexical ordering
// matches chronological ordering.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
