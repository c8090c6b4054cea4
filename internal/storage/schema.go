package storage

// ⭐ SSOT: 저장소 스키마는 여기서만 정의

// PostgresSchema creates the trends schema. Every statement is idempotent.
var PostgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS trends`,
	`CREATE TABLE IF NOT EXISTS trends.runs (
		id          TEXT PRIMARY KEY,
		keyword     TEXT NOT NULL,
		mode        TEXT NOT NULL,
		geo         TEXT NOT NULL DEFAULT '',
		category    INTEGER NOT NULL DEFAULT 0,
		property    TEXT NOT NULL DEFAULT '',
		start_date  DATE NOT NULL,
		end_date    DATE NOT NULL,
		partial     BOOLEAN NOT NULL DEFAULT FALSE,
		failure     TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS runs_keyword_created_idx
		ON trends.runs (lower(keyword), created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS trends.run_rows (
		run_id   TEXT NOT NULL REFERENCES trends.runs(id) ON DELETE CASCADE,
		ts       TIMESTAMPTZ NOT NULL,
		value    DOUBLE PRECISION NOT NULL,
		overlap  BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (run_id, ts)
	)`,
}

// SQLiteSchema mirrors PostgresSchema. Timestamps are unix seconds
// (rows) and unix milliseconds (created_at) so they sort numerically.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		keyword     TEXT NOT NULL,
		mode        TEXT NOT NULL,
		geo         TEXT NOT NULL DEFAULT '',
		category    INTEGER NOT NULL DEFAULT 0,
		property    TEXT NOT NULL DEFAULT '',
		start_date  TEXT NOT NULL,
		end_date    TEXT NOT NULL,
		partial     INTEGER NOT NULL DEFAULT 0,
		failure     TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS runs_keyword_created_idx
		ON runs (keyword COLLATE NOCASE, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS run_rows (
		run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		ts       INTEGER NOT NULL,
		value    REAL NOT NULL,
		overlap  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, ts)
	)`,
}
