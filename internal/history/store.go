// Package history persists a compile log to sqlite, one row per
// compile attempt, so watch-mode sessions leave an inspectable trail.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Compile is one logged compile attempt.
type Compile struct {
	ModuleKey string
	Timestamp time.Time
	OK        bool
	Error     string
	DepCount  int
	GLSLBytes int
	Duration  time.Duration
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// RecordCompile logs one compile attempt. A zero timestamp defaults to
// now.
func (s *Store) RecordCompile(c Compile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(c.ModuleKey) == "" {
		return fmt.Errorf("compile record requires a module key")
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	ok := 0
	if c.OK {
		ok = 1
	}

	query := `
INSERT INTO compiles (module_key, ts_utc, ok, error, dep_count, glsl_bytes, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(module_key, ts_utc) DO UPDATE SET
  ok=excluded.ok,
  error=excluded.error,
  dep_count=excluded.dep_count,
  glsl_bytes=excluded.glsl_bytes,
  duration_ms=excluded.duration_ms
`
	return s.withRetry("record compile", func() error {
		_, err := s.db.Exec(
			query,
			c.ModuleKey,
			c.Timestamp.UTC().Format(time.RFC3339Nano),
			ok,
			c.Error,
			c.DepCount,
			c.GLSLBytes,
			float64(c.Duration)/float64(time.Millisecond),
		)
		return err
	})
}

// Recent returns the latest compile records, newest first. A zero or
// negative limit returns everything.
func (s *Store) Recent(limit int) ([]Compile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT module_key, ts_utc, ok, error, dep_count, glsl_bytes, duration_ms
FROM compiles
ORDER BY ts_utc DESC
`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load compiles", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	compiles := make([]Compile, 0)
	for rows.Next() {
		var (
			tsRaw      string
			ok         int
			durationMS float64
			c          Compile
		)
		if err := rows.Scan(&c.ModuleKey, &tsRaw, &ok, &c.Error, &c.DepCount, &c.GLSLBytes, &durationMS); err != nil {
			return nil, fmt.Errorf("scan compile row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse compile timestamp %q: %w", tsRaw, err)
		}
		c.Timestamp = ts.UTC()
		c.OK = ok != 0
		c.Duration = time.Duration(durationMS * float64(time.Millisecond))

		compiles = append(compiles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compile rows: %w", err)
	}

	return compiles, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
