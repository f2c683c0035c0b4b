// Package ledger records command runs in a local SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Status is the outcome of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one recorded command invocation.
type Run struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	SpaceKey   string     `json:"space_key,omitempty"`
	Items      int        `json:"items"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns the wall time of a finished run, or 0.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l := &Ledger{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}

	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return l, nil
}

func (l *Ledger) migrate() error {
	_, err := l.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		command     TEXT NOT NULL,
		space_key   TEXT NOT NULL DEFAULT '',
		items       INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL,
		error       TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		finished_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
	`)
	return err
}

func (l *Ledger) newID(t time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), l.entropy).String()
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Begin records a running command and returns it.
func (l *Ledger) Begin(ctx context.Context, command, spaceKey string) (*Run, error) {
	now := l.now().UTC()
	run := &Run{
		ID:        l.newID(now),
		Command:   command,
		SpaceKey:  spaceKey,
		Status:    StatusRunning,
		StartedAt: now,
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, space_key, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.SpaceKey, string(run.Status), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish closes run with its item count and outcome. A nil runErr marks it
// succeeded; context cancellation marks it interrupted.
func (l *Ledger) Finish(ctx context.Context, run *Run, items int, runErr error) error {
	now := l.now().UTC()
	status := StatusSucceeded
	msg := ""
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		status = StatusInterrupted
		msg = runErr.Error()
	default:
		status = StatusFailed
		msg = runErr.Error()
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET items = ?, status = ?, error = ?, finished_at = ? WHERE id = ?`,
		items, string(status), msg, now.Format(time.RFC3339Nano), run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish %s: %w", run.ID, ErrNotFound)
	}

	run.Items = items
	run.Status = status
	run.Error = msg
	run.FinishedAt = &now
	return nil
}

// Get returns the run with id.
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, command, space_key, items, status, error, started_at, finished_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListParams filters List.
type ListParams struct {
	Command string
	Limit   int
}

// List returns runs newest first. Ids are monotonic ULIDs, so id order is
// start order.
func (l *Ledger) List(ctx context.Context, p ListParams) ([]Run, error) {
	query := `SELECT id, command, space_key, items, status, error, started_at, finished_at FROM runs`
	var args []any
	if p.Command != "" {
		query += ` WHERE command = ?`
		args = append(args, p.Command)
	}
	query += ` ORDER BY id DESC`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&run.ID, &run.Command, &run.SpaceKey, &run.Items, &status, &run.Error, &started, &finished); err != nil {
		return nil, err
	}
	run.Status = Status(status)

	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at of %s: %w", run.ID, err)
	}
	run.StartedAt = t

	if finished.Valid {
		f, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at of %s: %w", run.ID, err)
		}
		run.FinishedAt = &f
	}
	return &run, nil
}
