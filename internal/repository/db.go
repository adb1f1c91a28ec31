package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/protocol-extractor/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is an open journal database. Postgres DSNs go through a pgx pool;
// anything else is a SQLite path (or ":memory:").
type DB struct {
	SQL     *sql.DB
	Dialect string
	pool    *pgxpool.Pool
}

func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if isPostgres(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("db.connect", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.connect.failed", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "protocol-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect.failed", "error", err)
		return nil, err
	}

	db := &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: dialect.Postgres, pool: pool}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("db.connect.ok", "dialect", dialect.Postgres)
	return db, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	path := strings.TrimPrefix(cfg.DSN, "sqlite://")
	if path == "" {
		path = ":memory:"
	}
	logger.Info("db.connect", "dialect", dialect.SQLite, "path", path)

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps a :memory: database alive across calls
	sqldb.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout=10000", "PRAGMA journal_mode=WAL"} {
		if _, err := sqldb.ExecContext(ctx, pragma); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
		}
	}

	db := &DB{SQL: sqldb, Dialect: dialect.SQLite}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("db.connect.ok", "dialect", dialect.SQLite)
	return db, nil
}

// Close closes the database connections.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	err := db.SQL.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.SQL.PingContext(ctx)
}

// ConfigFrom maps the database section of the application config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}
