package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sarmentow/codepencil/internal/config"
	"github.com/sarmentow/codepencil/internal/storage"
)

// Action names what was done to a project.
type Action string

const (
	ActionSave    Action = "save"
	ActionLoad    Action = "load"
	ActionConvert Action = "convert"
	ActionExport  Action = "export"
)

// Event is one recorded project action.
type Event struct {
	ID        int64
	Action    Action
	Backend   string
	Target    string
	Cells     int
	Status    string
	Message   string
	CreatedAt time.Time
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the history database under the configured data dir and
// applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts ev and returns it with ID and CreatedAt assigned.
func (s *Store) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.Action == "" {
		return Event{}, errors.New("event action is required")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO project_events (action, backend, target, cells, status, message, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Action),
		ev.Backend,
		ev.Target,
		ev.Cells,
		ev.Status,
		nullableString(ev.Message),
		ev.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Event{}, fmt.Errorf("last insert id: %w", err)
	}
	ev.ID = id
	return ev, nil
}

// RecordResult records a storage outcome.
func (s *Store) RecordResult(ctx context.Context, action Action, backend storage.Backend, res storage.Result, cells int) (Event, error) {
	return s.Record(ctx, Event{
		Action:  action,
		Backend: backend.String(),
		Target:  res.Target,
		Cells:   cells,
		Status:  res.Status(),
		Message: res.Message(),
	})
}

// Recent returns up to limit events, newest first. A non-empty target
// restricts the listing to that project.
func (s *Store) Recent(ctx context.Context, limit int, target string) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, action, backend, target, cells, status, message, created_at FROM project_events`
	args := []any{}
	if target != "" {
		query += ` WHERE target = ?`
		args = append(args, target)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev      Event
			action  string
			message sql.NullString
			created string
		)
		if err := rows.Scan(&ev.ID, &action, &ev.Backend, &ev.Target, &ev.Cells, &ev.Status, &message, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Action = Action(action)
		ev.Message = message.String
		if ts, err := time.Parse(timeLayout, created); err == nil {
			ev.CreatedAt = ts
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM project_events WHERE created_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
