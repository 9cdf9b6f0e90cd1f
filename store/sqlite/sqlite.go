// Package sqlite implements core.Store on a SQLite database, giving a
// single-node deployment durable threads and message history with no
// external service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/convoral/convoral/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id       TEXT PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}',
	created  TEXT NOT NULL,
	updated  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id        TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	role      TEXT NOT NULL,
	parts     TEXT NOT NULL,
	created   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread_id, created);
`

// Store is a core.Store backed by a SQLite database file (or ":memory:").
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if necessary) a SQLite store at the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &core.StorageError{Op: "open", Err: err}
	}
	// modernc.org/sqlite serializes at the driver level; a single connection
	// avoids SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, &core.StorageError{Op: "pragma", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &core.StorageError{Op: "migrate", Err: err}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// GetThread implements core.Store.
func (s *Store) GetThread(ctx context.Context, id string) (*core.Thread, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, metadata, created, updated FROM threads WHERE id = ?", id)
	return scanThread(row)
}

// SaveThread implements core.Store. Upserts by id, preserving Created for
// existing rows and refreshing Updated.
func (s *Store) SaveThread(ctx context.Context, t *core.Thread) (*core.Thread, error) {
	meta, err := json.Marshal(metadataOrEmpty(t.Metadata))
	if err != nil {
		return nil, &core.StorageError{Op: "save thread", Err: err}
	}
	now := time.Now().UTC()
	created := t.Created
	if created.IsZero() {
		created = now
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, metadata, created, updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata, updated = excluded.updated`,
		t.ID, string(meta), formatTime(created), formatTime(now))
	if err != nil {
		return nil, &core.StorageError{Op: "save thread", Err: err}
	}
	return s.GetThread(ctx, t.ID)
}

// GetMessages implements core.Store. Ascending creation order; limit <= 0
// returns the full history.
func (s *Store) GetMessages(ctx context.Context, threadID string, limit int) ([]core.Message, error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	query := "SELECT id, thread_id, role, parts, created FROM messages WHERE thread_id = ? ORDER BY created ASC, rowid ASC"
	args := []any{threadID}
	if limit > 0 {
		// Last N in ascending order: take the newest N descending, then flip.
		query = `SELECT id, thread_id, role, parts, created FROM (
			SELECT id, thread_id, role, parts, created, rowid AS rid FROM messages
			WHERE thread_id = ? ORDER BY created DESC, rowid DESC LIMIT ?
		) ORDER BY created ASC, rid ASC`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &core.StorageError{Op: "get messages", Err: err}
	}
	defer rows.Close()

	var msgs []core.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "get messages", Err: err}
	}
	return msgs, nil
}

// SaveMessage implements core.Store. Append-only; the parent thread's
// Updated timestamp is refreshed in the same transaction.
func (s *Store) SaveMessage(ctx context.Context, m *core.Message) (*core.Message, error) {
	stored := m.Clone()
	if stored.ID == "" {
		stored.ID = core.NewID()
	}
	if stored.Created.IsZero() {
		stored.Created = time.Now().UTC()
	}
	parts, err := core.MarshalParts(stored.Parts)
	if err != nil {
		return nil, &core.StorageError{Op: "save message", Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &core.StorageError{Op: "save message", Err: err}
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM threads WHERE id = ?", stored.ThreadID).Scan(&exists); err != nil {
		return nil, &core.StorageError{Op: "save message", Err: err}
	}
	if exists == 0 {
		return nil, core.ErrThreadNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (id, thread_id, role, parts, created) VALUES (?, ?, ?, ?, ?)",
		stored.ID, stored.ThreadID, string(stored.Role), string(parts), formatTime(stored.Created)); err != nil {
		return nil, &core.StorageError{Op: "save message", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE threads SET updated = ? WHERE id = ?",
		formatTime(time.Now().UTC()), stored.ThreadID); err != nil {
		return nil, &core.StorageError{Op: "save message", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &core.StorageError{Op: "save message", Err: err}
	}
	return stored, nil
}

// DeleteThread implements core.Store. Messages cascade via the foreign key.
func (s *Store) DeleteThread(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", id)
	if err != nil {
		return false, &core.StorageError{Op: "delete thread", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &core.StorageError{Op: "delete thread", Err: err}
	}
	return n > 0, nil
}

// HealthCheck implements core.Store.
func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*core.Thread, error) {
	var t core.Thread
	var meta, created, updated string
	if err := row.Scan(&t.ID, &meta, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrThreadNotFound
		}
		return nil, &core.StorageError{Op: "get thread", Err: err}
	}
	if err := json.Unmarshal([]byte(meta), &t.Metadata); err != nil {
		return nil, &core.StorageError{Op: "get thread", Err: err}
	}
	if len(t.Metadata) == 0 {
		t.Metadata = nil
	}
	var err error
	if t.Created, err = parseTime(created); err != nil {
		return nil, &core.StorageError{Op: "get thread", Err: err}
	}
	if t.Updated, err = parseTime(updated); err != nil {
		return nil, &core.StorageError{Op: "get thread", Err: err}
	}
	return &t, nil
}

func scanMessage(row rowScanner) (*core.Message, error) {
	var m core.Message
	var role, parts, created string
	if err := row.Scan(&m.ID, &m.ThreadID, &role, &parts, &created); err != nil {
		return nil, &core.StorageError{Op: "get messages", Err: err}
	}
	m.Role = core.Role(role)
	var err error
	if m.Parts, err = core.UnmarshalParts([]byte(parts)); err != nil {
		return nil, &core.StorageError{Op: "get messages", Err: err}
	}
	if m.Created, err = parseTime(created); err != nil {
		return nil, &core.StorageError{Op: "get messages", Err: err}
	}
	return &m, nil
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
