package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists the download journal in SQLite. The journal is write-mostly:
// nothing in the download path reads it back.
type Store struct {
	db   *sql.DB
	path string
}

// Entry records the outcome of one download run.
type Entry struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"run_id"`
	Identifier       string    `json:"identifier"`
	Title            string    `json:"title,omitempty"`
	Format           string    `json:"format"`
	RequestedQuality string    `json:"requested_quality,omitempty"`
	Quality          string    `json:"quality,omitempty"`
	Policy           string    `json:"policy,omitempty"`
	Path             string    `json:"path,omitempty"`
	Success          bool      `json:"success"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	ErrorMessage     string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultListLimit        = 20
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is empty")
	}
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
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record appends an entry and returns its row id.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.RunID) == "" {
		return 0, errors.New("history entry requires a run id")
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = e.FinishedAt
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO downloads (
			run_id, identifier, title, format, requested_quality, quality, policy,
			path, success, error_kind, error_message, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RunID, e.Identifier, nullString(e.Title), e.Format, nullString(e.RequestedQuality),
			nullString(e.Quality), nullString(e.Policy), nullString(e.Path), boolToInt(e.Success),
			nullString(e.ErrorKind), nullString(e.ErrorMessage),
			e.StartedAt.UTC().Format(time.RFC3339Nano), e.FinishedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record history entry: %w", err)
	}
	return id, nil
}

// List returns the most recent entries, newest first. A non-positive limit
// uses the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, run_id, identifier, title, format, requested_quality, quality, policy,
		path, success, error_kind, error_message, started_at, finished_at
		FROM downloads ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                                  Entry
			title, requested, quality, policy, path, kind, msg sql.NullString
			success                                            int
			started, finished                                  string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Identifier, &title, &e.Format, &requested, &quality,
			&policy, &path, &success, &kind, &msg, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Title = title.String
		e.RequestedQuality = requested.String
		e.Quality = quality.String
		e.Policy = policy.String
		e.Path = path.String
		e.Success = success != 0
		e.ErrorKind = kind.String
		e.ErrorMessage = msg.String
		e.StartedAt = parseTime(started)
		e.FinishedAt = parseTime(finished)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
