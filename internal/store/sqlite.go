// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Ledger persistence with automatic schema creation and retention pruning

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ledger_events (
			event_id        TEXT PRIMARY KEY,
			user_key        TEXT NOT NULL,
			conversation_id TEXT,
			direction       TEXT NOT NULL,
			type            TEXT NOT NULL,
			outcome         TEXT NOT NULL,
			message_id      TEXT,
			text            TEXT,
			error           TEXT,
			timestamp       TEXT NOT NULL,

			CHECK (direction IN ('inbound', 'outbound'))
		);

		CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_events(user_key, timestamp);
		CREATE INDEX IF NOT EXISTS idx_ledger_timestamp ON ledger_events(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveEvent persists a ledger event. A missing ID or timestamp is filled in.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event *LedgerEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	query := `
		INSERT INTO ledger_events (
			event_id, user_key, conversation_id, direction, type, outcome,
			message_id, text, error, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.UserKey,
		event.ConversationID,
		string(event.Direction),
		event.Type,
		string(event.Outcome),
		event.MessageID,
		event.Text,
		event.Error,
		event.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("saved ledger event",
		"event_id", event.ID,
		"user", event.UserKey,
		"type", event.Type,
		"outcome", event.Outcome,
	)
	return nil
}

// GetEvent retrieves a single event by ID
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*LedgerEvent, error) {
	query := `
		SELECT event_id, user_key, conversation_id, direction, type, outcome,
		       message_id, text, error, timestamp
		FROM ledger_events
		WHERE event_id = ?
	`

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return event, nil
}

// ListEventsByUser retrieves a user's events, oldest first.
func (s *SQLiteStore) ListEventsByUser(ctx context.Context, userKey string, limit int) ([]*LedgerEvent, error) {
	query := `
		SELECT event_id, user_key, conversation_id, direction, type, outcome,
		       message_id, text, error, timestamp
		FROM ledger_events
		WHERE user_key = ?
		ORDER BY timestamp ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userKey, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*LedgerEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return events, nil
}

// PruneEvents deletes events older than before and returns how many went.
func (s *SQLiteStore) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ledger_events WHERE timestamp < ?`,
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned events: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned ledger events", "count", n, "before", before)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*LedgerEvent, error) {
	event := &LedgerEvent{}
	var direction, outcome, timestampStr string

	if err := row.Scan(
		&event.ID,
		&event.UserKey,
		&event.ConversationID,
		&direction,
		&event.Type,
		&outcome,
		&event.MessageID,
		&event.Text,
		&event.Error,
		&timestampStr,
	); err != nil {
		return nil, err
	}

	event.Direction = Direction(direction)
	event.Outcome = Outcome(outcome)
	ts, err := time.Parse(timeLayout, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	event.Timestamp = ts
	return event, nil
}
