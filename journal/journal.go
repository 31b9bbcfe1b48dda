// Package journal records received sequencer commands in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal closed")

// Entry is one recorded command.
type Entry struct {
	ID      int64
	Time    time.Time
	Command byte
	Payload [4]byte
	// Mode is the sequencer mode the command was received in.
	Mode string
	// Status is the outcome, "ok" or the reason the command was ignored.
	Status string
}

// Journal is an append-only command log.
type Journal struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		at      INTEGER NOT NULL,
		command INTEGER NOT NULL,
		payload BLOB NOT NULL,
		mode    TEXT NOT NULL,
		status  TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Journal{db: db, path: path}, nil
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Record appends e. A zero Time is replaced with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return ErrClosed
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO commands (at, command, payload, mode, status) VALUES (?, ?, ?, ?, ?)",
		e.Time.UnixNano(), int(e.Command), e.Payload[:], e.Mode, e.Status,
	)
	if err != nil {
		return fmt.Errorf("recording command: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, oldest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, command, payload, mode, status FROM
			(SELECT * FROM commands ORDER BY id DESC LIMIT ?)
		ORDER BY id`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			at      int64
			command int
			payload []byte
		)
		if err := rows.Scan(&e.ID, &at, &command, &payload, &e.Mode, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		e.Time = time.Unix(0, at)
		e.Command = byte(command)
		copy(e.Payload[:], payload)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded commands.
func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return 0, ErrClosed
	}

	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM commands").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting commands: %w", err)
	}
	return n, nil
}
