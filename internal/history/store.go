// Package history keeps an sqlite audit log of finished translation
// requests. Only metadata is stored, never message text.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/polyglot-bot/polyglot/internal/dispatch"
)

// Record is one stored request.
type Record struct {
	RequestID    string
	Time         time.Time
	Duration     time.Duration
	GuildID      string
	ChannelID    string
	AuthorID     string
	Language     string
	State        string
	Delivery     string
	ThreadID     string
	Outcome      string
	Chunks       int
	SourceLength int
	Detail       string
}

// Store persists request records in SQLite.
type Store struct {
	db *sql.DB
}

var _ dispatch.Observer = (*Store)(nil)

// OpenStore opens or creates a SQLite store at the given path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; concurrent handlers queue on the pool
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Observe records a finished request.
func (s *Store) Observe(ctx context.Context, ev dispatch.Event) error {
	return s.Insert(ctx, FromEvent(ev))
}

// FromEvent converts a dispatch event into a record.
func FromEvent(ev dispatch.Event) Record {
	return Record{
		RequestID:    ev.RequestID,
		Time:         ev.Time,
		Duration:     ev.Duration,
		GuildID:      ev.GuildID,
		ChannelID:    ev.ChannelID,
		AuthorID:     ev.AuthorID,
		Language:     ev.Language,
		State:        ev.State.String(),
		Delivery:     ev.Delivery.String(),
		ThreadID:     ev.ThreadID,
		Outcome:      ev.Outcome,
		Chunks:       ev.Chunks,
		SourceLength: ev.SourceLength,
		Detail:       ev.Detail,
	}
}

// Insert stores one record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	if rec.RequestID == "" {
		return fmt.Errorf("request id is required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO requests(
	request_id, created_at, duration_ms, guild_id, channel_id, author_id,
	language, state, delivery, thread_id, outcome, chunks, source_length, detail
) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RequestID, rec.Time.UTC().UnixMilli(), rec.Duration.Milliseconds(),
		rec.GuildID, rec.ChannelID, rec.AuthorID,
		rec.Language, rec.State, rec.Delivery, rec.ThreadID, rec.Outcome,
		rec.Chunks, rec.SourceLength, rec.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
	request_id, created_at, duration_ms, guild_id, channel_id, author_id,
	language, state, delivery, thread_id, outcome, chunks, source_length, detail
FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var createdMS, durationMS int64
		if err := rows.Scan(&rec.RequestID, &createdMS, &durationMS,
			&rec.GuildID, &rec.ChannelID, &rec.AuthorID,
			&rec.Language, &rec.State, &rec.Delivery, &rec.ThreadID, &rec.Outcome,
			&rec.Chunks, &rec.SourceLength, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		rec.Time = time.UnixMilli(createdMS).UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// OutcomeCounts returns how many requests ended in each state.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is nil")
	}
	rows, err := s.db.QueryContext(ctx, "SELECT state, COUNT(*) FROM requests GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[state] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return counts, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	guild_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	language TEXT NOT NULL,
	state TEXT NOT NULL,
	delivery TEXT NOT NULL,
	thread_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	chunks INTEGER NOT NULL,
	source_length INTEGER NOT NULL,
	detail TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
