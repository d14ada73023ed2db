package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"startupetl/internal/config"
	"startupetl/internal/errors"
)

const pingTimeout = 5 * time.Second

// Open creates and configures a connection pool for the configured driver
// and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, Dialect, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, errors.NewConfigError("invalid database driver", err)
	}

	if dialect.Name == config.DriverSQLite {
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, Dialect{}, errors.NewStorageError("failed to create database directory", err)
		}
	}

	db, err := sql.Open(dialect.DriverName, cfg.DSN)
	if err != nil {
		return nil, Dialect{}, errors.NewStorageError("failed to open database", err).
			WithContext("driver", cfg.Driver)
	}

	maxOpen := cfg.MaxOpenConns
	if dialect.Name == config.DriverSQLite {
		// a single writer avoids SQLITE_BUSY on the table swap
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.InfoContext(ctx, "database connection pool configured",
		slog.String("driver", cfg.Driver),
		slog.Int("max_open_conns", maxOpen),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, errors.NewStorageError(fmt.Sprintf("failed to ping %s database", cfg.Driver), err)
	}

	logger.InfoContext(ctx, "database connection established", slog.String("driver", cfg.Driver))
	return db, dialect, nil
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
