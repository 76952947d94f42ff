package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// DB is a database/sql handle plus the driver it was opened with. Postgres
// handles are backed by a pgx pool.
type DB struct {
	SQL    *sql.DB
	Driver string
	pool   *pgxpool.Pool
}

// Open connects to the run ledger database and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	logger.Info("connecting to database", "driver", cfg.Driver)

	var db *DB
	var err error
	switch cfg.Driver {
	case DriverPostgres:
		db, err = openPostgres(ctx, cfg)
	case DriverSQLite, "":
		db, err = openSQLite(cfg)
	default:
		err = fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if err := HealthCheck(ctx, db, cfg.DialTimeout); err != nil {
		db.Close(logger)
		logger.Error("database ping failed", "error", err)
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close(logger)
		logger.Error("database migration failed", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database", "driver", db.Driver)
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.ConnConfig.RuntimeParams["application_name"] = "labs-tracker"

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Driver: DriverPostgres, pool: pool}, nil
}

func openSQLite(cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each :memory: connection is its own database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	if _, err := sqlDB.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return &DB{SQL: sqlDB, Driver: DriverSQLite}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if db.SQL != nil {
		if err := db.SQL.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.SQL.PingContext(ctx)
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	ddl := sqliteSchema
	if db.Driver == DriverPostgres {
		ddl = postgresSchema
	}
	for _, stmt := range ddl {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		id                TEXT PRIMARY KEY,
		source_file_name  TEXT NOT NULL,
		content_hash      TEXT NOT NULL,
		status            TEXT NOT NULL,
		provider          TEXT,
		model             TEXT,
		confidence        REAL,
		needs_review      INTEGER NOT NULL DEFAULT 0,
		warnings          TEXT NOT NULL DEFAULT '[]',
		measurement_count INTEGER NOT NULL DEFAULT 0,
		test_date         TEXT,
		error_message     TEXT,
		started_at        TEXT NOT NULL,
		finished_at       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS extraction_runs_content_hash_idx ON extraction_runs (content_hash)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		id                UUID PRIMARY KEY,
		source_file_name  TEXT NOT NULL,
		content_hash      TEXT NOT NULL,
		status            TEXT NOT NULL,
		provider          TEXT,
		model             TEXT,
		confidence        DOUBLE PRECISION,
		needs_review      BOOLEAN NOT NULL DEFAULT FALSE,
		warnings          TEXT NOT NULL DEFAULT '[]',
		measurement_count INTEGER NOT NULL DEFAULT 0,
		test_date         TEXT,
		error_message     TEXT,
		started_at        TIMESTAMPTZ NOT NULL,
		finished_at       TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS extraction_runs_content_hash_idx ON extraction_runs (content_hash)`,
}

// rebind rewrites ? placeholders to $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg formats t for the column type in use.
func (db *DB) timeArg(t time.Time) any {
	if db.Driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// Fixed width so text timestamps sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
