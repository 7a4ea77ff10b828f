// Package dialect provides the thin driver-facing layer between the mapper
// and database/sql.
//
// The package defines the ExecQuerier interface that the rest of the module
// executes statements through:
//
//	type ExecQuerier interface {
//	    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
//	    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
//	}
//
// It is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so the same query and
// mutation code runs inside and outside transactions.
//
// # Debug logging
//
// Debug wraps any ExecQuerier and logs each statement with its arguments
// through a *slog.Logger before executing it:
//
//	eq := dialect.Debug(conn, slog.Default())
//
// # Sub-packages
//
//   - dialect/sql: SQL text builders (Selector, DeleteBuilder, InsertBuilder,
//     UpdateBuilder), the predicate tree, statement statistics, and
//     constraint-error classification.
package dialect
