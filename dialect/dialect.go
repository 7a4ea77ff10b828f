package dialect

import (
	"context"
	"database/sql"
	"log/slog"
)

// SQLite is the name of the default embedded driver
// (modernc.org/sqlite registers itself under this name).
const SQLite = "sqlite"

// ExecQuerier wraps the standard Exec and Query methods of database/sql.
// It is implemented by *sql.DB, *sql.Conn and *sql.Tx, and by the wrappers
// in this package.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DebugExecQuerier wraps an ExecQuerier and logs every statement it
// executes at debug level, together with its bound arguments.
type DebugExecQuerier struct {
	ExecQuerier
	log *slog.Logger
}

// Debug returns an ExecQuerier that logs all statements through the
// given logger. A nil logger falls back to slog.Default.
func Debug(eq ExecQuerier, log *slog.Logger) *DebugExecQuerier {
	if log == nil {
		log = slog.Default()
	}
	return &DebugExecQuerier{ExecQuerier: eq, log: log}
}

// ExecContext logs the statement and delegates to the underlying ExecQuerier.
func (d *DebugExecQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.log.DebugContext(ctx, "exec", "query", query, "args", args)
	return d.ExecQuerier.ExecContext(ctx, query, args...)
}

// QueryContext logs the statement and delegates to the underlying ExecQuerier.
func (d *DebugExecQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.log.DebugContext(ctx, "query", "query", query, "args", args)
	return d.ExecQuerier.QueryContext(ctx, query, args...)
}
