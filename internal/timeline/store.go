package timeline

import (
	"context"
	"database/sql"
)

// DBTX is the store handle the three stores run against. Both *sql.DB and
// *sql.Tx satisfy it, so the orchestrator can run a multi-store use case on
// a single transaction while reads go straight to the pool.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
