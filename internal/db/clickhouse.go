package db

import (
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

// NewClickHouseConnection opens the analytics store holding archived weight history.
// dsn e.g. clickhouse://default:@localhost:9000/kuritterweight?dial_timeout=5s&compress=true
func NewClickHouseConnection(dsn string, opts SQLOpts) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty ClickHouse DSN")
	}
	db, err := sqlx.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}

	applyPool(db, opts)

	if err := ping(db, opts.PingTimeout, 3*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
