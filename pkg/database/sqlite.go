package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SQLite wraps a single-writer SQLite handle used for local runs
type SQLite struct {
	DB *sql.DB
}

// OpenSQLite opens or creates the database at path.
// ":memory:" keeps everything in process.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers

	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA foreign_keys=ON`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLite{DB: db}, nil
}

// Close closes the underlying handle
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// Migrate runs idempotent DDL statements in order
func (s *SQLite) Migrate(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

// HealthCheck pings the handle
func (s *SQLite) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Driver: "sqlite", Timestamp: time.Now()}

	start := time.Now()
	if err := s.DB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := s.DB.Stats()
	status.OpenConns = stats.OpenConnections
	status.IdleConns = stats.Idle
	status.Healthy = true
	return status, nil
}
