package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:rapidrate.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/rapidrate?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; commit appends from concurrent trials queue here
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS trial_results (
  trial_id TEXT PRIMARY KEY,
  ratings_json TEXT NOT NULL,
  allowed_none INTEGER NOT NULL,
  allowed_blank INTEGER NOT NULL,
  rt_ms INTEGER NOT NULL,
  trigger_name TEXT NOT NULL,
  commit_log_json TEXT,                      -- NULL when commits were not logged
  finished_at INTEGER NOT NULL               -- unix millis
);

CREATE TABLE IF NOT EXISTS commit_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  trial_id TEXT NOT NULL,
  offset_ms INTEGER NOT NULL,
  item TEXT NOT NULL,
  value_json TEXT NOT NULL,                  -- null | "none" | 0..100
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS commit_log_trial ON commit_log (trial_id, seq);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS trial_results (
  trial_id TEXT PRIMARY KEY,
  ratings_json TEXT NOT NULL,
  allowed_none INTEGER NOT NULL,
  allowed_blank INTEGER NOT NULL,
  rt_ms BIGINT NOT NULL,
  trigger_name TEXT NOT NULL,
  commit_log_json TEXT,
  finished_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS commit_log (
  seq BIGSERIAL PRIMARY KEY,
  trial_id TEXT NOT NULL,
  offset_ms BIGINT NOT NULL,
  item TEXT NOT NULL,
  value_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS commit_log_trial ON commit_log (trial_id, seq);
`
