package db

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates the schema for the given dialect (mysql | postgres | sqlite | clickhouse).
// Statements are idempotent, so it is safe to run on every deploy.
func Migrate(ctx context.Context, db *sqlx.DB, dialect string) error {
	raw, err := migrations.ReadFile("migrations/" + dialect + ".sql")
	if err != nil {
		return fmt.Errorf("read %s migration: %w", dialect, err)
	}

	for _, stmt := range splitStatements(string(raw)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %s migration: %w", dialect, err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
