package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/database"
)

// SQLiteRepository implements contracts.SeriesRepository on a local file
type SQLiteRepository struct {
	db *database.SQLite
}

// NewSQLiteRepository creates a new repository and applies the schema
func NewSQLiteRepository(ctx context.Context, db *database.SQLite) (*SQLiteRepository, error) {
	if err := db.Migrate(ctx, SQLiteSchema); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// SaveRun upserts the run and replaces its rows in one transaction
func (r *SQLiteRepository) SaveRun(ctx context.Context, run *contracts.Run) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, keyword, mode, geo, category, property,
			start_date, end_date, partial, failure, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			keyword = excluded.keyword,
			mode = excluded.mode,
			geo = excluded.geo,
			category = excluded.category,
			property = excluded.property,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			partial = excluded.partial,
			failure = excluded.failure,
			created_at = excluded.created_at
	`,
		run.ID, run.Keyword, run.Mode, run.Geo, run.Category, run.Property,
		run.Start.Format(contracts.DateLayout), run.End.Format(contracts.DateLayout),
		run.Partial, run.Failure, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_rows WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("delete rows of %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_rows (run_id, ts, value, overlap) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range run.Rows {
		if _, err := stmt.ExecContext(ctx, run.ID, row.Time.Unix(), row.Value, row.Overlap); err != nil {
			return fmt.Errorf("insert row %s of %s: %w", row.Time.Format(time.RFC3339), run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetLatest returns the newest run for keyword with its rows
func (r *SQLiteRepository) GetLatest(ctx context.Context, keyword string) (*contracts.Run, error) {
	var (
		run        contracts.Run
		start, end string
		created    int64
	)
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT id, keyword, mode, geo, category, property,
		       start_date, end_date, partial, failure, created_at
		FROM runs
		WHERE keyword = ? COLLATE NOCASE
		ORDER BY created_at DESC
		LIMIT 1
	`, strings.TrimSpace(keyword)).Scan(
		&run.ID, &run.Keyword, &run.Mode, &run.Geo, &run.Category, &run.Property,
		&start, &end, &run.Partial, &run.Failure, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	if run.Start, err = contracts.ParseDate(start); err != nil {
		return nil, err
	}
	if run.End, err = contracts.ParseDate(end); err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(created).UTC()

	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT ts, value, overlap
		FROM run_rows
		WHERE run_id = ?
		ORDER BY ts ASC
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query rows of %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row contracts.Row
			ts  int64
		)
		if err := rows.Scan(&ts, &row.Value, &row.Overlap); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Time = time.Unix(ts, 0).UTC()
		run.Rows = append(run.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists run summaries, newest first. An empty keyword lists all.
func (r *SQLiteRepository) ListRuns(ctx context.Context, keyword string, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	keyword = strings.TrimSpace(keyword)

	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT r.id, r.keyword, r.mode, r.start_date, r.end_date, r.partial, r.created_at,
		       (SELECT COUNT(*) FROM run_rows rr WHERE rr.run_id = r.id)
		FROM runs r
		WHERE ? = '' OR r.keyword = ? COLLATE NOCASE
		ORDER BY r.created_at DESC
		LIMIT ?
	`, keyword, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []contracts.RunSummary
	for rows.Next() {
		var (
			s          contracts.RunSummary
			start, end string
			created    int64
		)
		if err := rows.Scan(&s.ID, &s.Keyword, &s.Mode, &start, &end, &s.Partial, &created, &s.RowCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if s.Start, err = contracts.ParseDate(start); err != nil {
			return nil, err
		}
		if s.End, err = contracts.ParseDate(end); err != nil {
			return nil, err
		}
		s.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database handle
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
