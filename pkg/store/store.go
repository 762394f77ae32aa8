// Package store holds the hand-written SQL persistence layer. Mirrors the
// teacher's own hottest write path (pkg/events/publisher.go), which talks
// to *sql.DB directly instead of routing through a generated ORM client —
// the same choice made here for every store, not just the event log.
package store

import (
	"context"
	"database/sql"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting every store
// method run standalone or as part of a caller-managed transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
