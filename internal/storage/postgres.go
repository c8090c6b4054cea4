package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/database"
)

// PostgresRepository implements contracts.SeriesRepository on pgx
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository creates a new repository and applies the schema
func NewPostgresRepository(ctx context.Context, db *database.DB) (*PostgresRepository, error) {
	if err := db.Migrate(ctx, PostgresSchema); err != nil {
		return nil, fmt.Errorf("migrate trends schema: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// SaveRun upserts the run and replaces its rows in one transaction
func (r *PostgresRepository) SaveRun(ctx context.Context, run *contracts.Run) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO trends.runs (
			id, keyword, mode, geo, category, property,
			start_date, end_date, partial, failure, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			keyword = EXCLUDED.keyword,
			mode = EXCLUDED.mode,
			geo = EXCLUDED.geo,
			category = EXCLUDED.category,
			property = EXCLUDED.property,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			partial = EXCLUDED.partial,
			failure = EXCLUDED.failure,
			created_at = EXCLUDED.created_at
	`,
		run.ID, run.Keyword, run.Mode, run.Geo, run.Category, run.Property,
		run.Start, run.End, run.Partial, run.Failure, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM trends.run_rows WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("delete rows of %s: %w", run.ID, err)
	}

	batch := &pgx.Batch{}
	for _, row := range run.Rows {
		batch.Queue(`INSERT INTO trends.run_rows (run_id, ts, value, overlap) VALUES ($1, $2, $3, $4)`,
			run.ID, row.Time, row.Value, row.Overlap)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rows of %s: %w", run.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetLatest returns the newest run for keyword with its rows
func (r *PostgresRepository) GetLatest(ctx context.Context, keyword string) (*contracts.Run, error) {
	var run contracts.Run
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, keyword, mode, geo, category, property,
		       start_date, end_date, partial, failure, created_at
		FROM trends.runs
		WHERE lower(keyword) = lower($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, strings.TrimSpace(keyword)).Scan(
		&run.ID, &run.Keyword, &run.Mode, &run.Geo, &run.Category, &run.Property,
		&run.Start, &run.End, &run.Partial, &run.Failure, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT ts, value, overlap
		FROM trends.run_rows
		WHERE run_id = $1
		ORDER BY ts ASC
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query rows of %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row contracts.Row
		if err := rows.Scan(&row.Time, &row.Value, &row.Overlap); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Time = row.Time.UTC()
		run.Rows = append(run.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	run.Start, run.End, run.CreatedAt = run.Start.UTC(), run.End.UTC(), run.CreatedAt.UTC()
	return &run, nil
}

// ListRuns lists run summaries, newest first. An empty keyword lists all.
func (r *PostgresRepository) ListRuns(ctx context.Context, keyword string, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT r.id, r.keyword, r.mode, r.start_date, r.end_date, r.partial, r.created_at,
		       (SELECT COUNT(*) FROM trends.run_rows rr WHERE rr.run_id = r.id)
		FROM trends.runs r
		WHERE $1::text = '' OR lower(r.keyword) = lower($1)
		ORDER BY r.created_at DESC
		LIMIT $2
	`, strings.TrimSpace(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []contracts.RunSummary
	for rows.Next() {
		var s contracts.RunSummary
		if err := rows.Scan(&s.ID, &s.Keyword, &s.Mode, &s.Start, &s.End, &s.Partial, &s.CreatedAt, &s.RowCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Start, s.End, s.CreatedAt = s.Start.UTC(), s.End.UTC(), s.CreatedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}
