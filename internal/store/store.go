package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

// Store is the job and user registry backed by SQLite. The single
// connection pool with WAL and a busy timeout serializes concurrent access
// from worker goroutines and request handlers.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to (or creates) the registry database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// CreateJob inserts a fresh job record in the given initial status.
func (s *Store) CreateJob(ctx context.Context, id, username, filename string, status JobStatus) (*Job, error) {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, username, filename, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, username, filename, status, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// UpdateStatus moves a job to a new (non-terminal) pipeline stage.
func (s *Store) UpdateStatus(ctx context.Context, id string, status JobStatus) error {
	return s.updateJob(ctx, id,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, now(), id,
	)
}

// UpdateFilename records the resolved source title for link submissions.
func (s *Store) UpdateFilename(ctx context.Context, id, filename string) error {
	return s.updateJob(ctx, id,
		`UPDATE jobs SET filename = ?, updated_at = ? WHERE id = ?`,
		filename, now(), id,
	)
}

// MarkCompleted records a successful terminal state with its artifacts.
func (s *Store) MarkCompleted(ctx context.Context, id, downloadURL, transcription, duration string) error {
	return s.updateJob(ctx, id,
		`UPDATE jobs SET status = ?, download_url = ?, transcription = ?, duration = ?, error = '', updated_at = ?
         WHERE id = ?`,
		StatusCompleted, downloadURL, transcription, duration, now(), id,
	)
}

// MarkFailed records a failed terminal state with a human-readable message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.updateJob(ctx, id,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, message, now(), id,
	)
}

func (s *Store) updateJob(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

const jobColumns = `id, username, filename, status, error, download_url, transcription, duration, favorite, created_at, updated_at`

func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, err
}

// ListJobsByUser returns a user's jobs, newest first.
func (s *Store) ListJobsByUser(ctx context.Context, username string) ([]*Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE username = ? ORDER BY created_at DESC`,
		username,
	)
}

// ListTerminalJobs returns completed and failed jobs, newest first; the
// cleanup pass trims this list.
func (s *Store) ListTerminalJobs(ctx context.Context) ([]*Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status IN (?, ?) ORDER BY updated_at DESC`,
		StatusCompleted, StatusFailed,
	)
}

func (s *Store) listJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job record. Missing rows are not an error: the files
// may already be gone from a cleanup pass.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// ToggleFavorite flips a job's favorite flag, scoped to its owner, and
// returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET favorite = 1 - favorite, updated_at = ? WHERE id = ? AND username = ?`,
		now(), id, username,
	)
	if err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return false, err
	}
	return job.Favorite, nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("user %s: %w", username, ErrUserExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*Job, error) {
	var j Job
	var favorite int
	var created, updated string
	err := row.Scan(
		&j.ID, &j.Username, &j.Filename, &j.Status, &j.Error,
		&j.DownloadURL, &j.Transcription, &j.Duration, &favorite,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	j.Favorite = favorite != 0
	j.CreatedAt = parseTime(created)
	j.UpdatedAt = parseTime(updated)
	return &j, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
