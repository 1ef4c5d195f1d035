package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type SQLOpts struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// driverNames maps store.driver values to registered database/sql drivers.
var driverNames = map[string]string{
	"mysql":    "mysql",
	"postgres": "pgx",
	"sqlite":   "sqlite",
}

// NewSQLConnection opens a *sqlx.DB for the weight store with sensible pool/timeouts.
func NewSQLConnection(driver, dsn string, opts SQLOpts) (*sqlx.DB, error) {
	name, ok := driverNames[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("empty %s DSN", driver)
	}
	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY under fan-out
	if driver == "sqlite" {
		opts.MaxOpenConns = 1
	}

	applyPool(db, opts)

	if err := ping(db, opts.PingTimeout, 5*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func applyPool(db *sqlx.DB, opts SQLOpts) {
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func ping(db *sqlx.DB, timeout, fallback time.Duration) error {
	if timeout <= 0 {
		timeout = fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.PingContext(ctx)
}
