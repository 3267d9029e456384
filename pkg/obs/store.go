// Package obs persists observability records: flat routing events, quality
// scores, and the append-only handoff audit trail. Writers open a fresh
// connection per write and close it immediately so concurrently running
// sub-tasks never contend on a held handle. Every write failure is logged
// and swallowed; nothing here may block or fail the hot path.
package obs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store writes to the observability SQLite database.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store writing to the given database file. The schema
// is created on first write.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// open returns a connection with WAL and a 5s busy timeout applied, the
// settings every writer in the system uses.
func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		trace_id TEXT,
		metadata TEXT
	);
	CREATE TABLE IF NOT EXISTS scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trace_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		comment TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS handoffs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_brain TEXT NOT NULL,
		to_domain TEXT NOT NULL,
		to_provider TEXT NOT NULL,
		to_model TEXT NOT NULL,
		context TEXT,
		priority TEXT NOT NULL DEFAULT 'normal',
		status TEXT NOT NULL,
		result TEXT,
		completed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_trace ON events(trace_id);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	CREATE INDEX IF NOT EXISTS idx_handoffs_domain ON handoffs(to_domain);
	`)
	return err
}

// Event is a flat observability record.
type Event struct {
	Category string
	Action   string
	TraceID  string
	Metadata map[string]any
}

// Emit writes one event. Failures are logged and discarded.
func (s *Store) Emit(ev Event) {
	db, err := s.open()
	if err != nil {
		s.logger.Debug("event not persisted", zap.String("action", ev.Action), zap.Error(err))
		return
	}
	defer db.Close()

	metadata, err := json.Marshal(ev.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}
	_, err = db.Exec(
		`INSERT INTO events (timestamp, category, action, trace_id, metadata) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), ev.Category, ev.Action, ev.TraceID, string(metadata),
	)
	if err != nil {
		s.logger.Debug("event not persisted", zap.String("action", ev.Action), zap.Error(err))
	}
}

// Score records a 1-5 quality score for a trace.
func (s *Store) Score(traceID string, score int, comment string) {
	db, err := s.open()
	if err != nil {
		s.logger.Debug("score not persisted", zap.String("trace_id", traceID), zap.Error(err))
		return
	}
	defer db.Close()

	_, err = db.Exec(
		`INSERT INTO scores (trace_id, score, comment) VALUES (?, ?, ?)`,
		traceID, score, comment,
	)
	if err != nil {
		s.logger.Debug("score not persisted", zap.String("trace_id", traceID), zap.Error(err))
	}
}

// RecentEvents returns the newest events for a category, for the CLI.
func (s *Store) RecentEvents(category string, limit int) ([]Event, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT category, action, trace_id, metadata FROM events
		 WHERE category = ? ORDER BY id DESC LIMIT ?`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var traceID sql.NullString
		var metadata sql.NullString
		if err := rows.Scan(&ev.Category, &ev.Action, &traceID, &metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.TraceID = traceID.String
		if metadata.Valid {
			_ = json.Unmarshal([]byte(metadata.String), &ev.Metadata)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
