package zxorm

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
)

// op is the fixed query shape a cached statement belongs to. Only
// operations whose text never varies for a given table are cached;
// open-ended queries are compiled per call.
type op uint8

const (
	opFind op = iota
	opDelete
	opFirst
	opLast
	opInsert
	opUpdate
)

func (o op) String() string {
	switch o {
	case opFind:
		return "find"
	case opDelete:
		return "delete"
	case opFirst:
		return "first"
	case opLast:
		return "last"
	case opInsert:
		return "insert"
	case opUpdate:
		return "update"
	}
	return "unknown"
}

// stmtKey identifies a cached statement: one table, one fixed query shape.
type stmtKey struct {
	table string
	op    op
}

// cachedStmt pairs a prepared handle with the text it was compiled from.
// The text is kept so that reuse with drifted text is detected instead of
// silently rebinding a stale handle.
type cachedStmt struct {
	text string
	stmt *stdsql.Stmt
}

// preparer compiles SQL text into a prepared handle. Implemented by
// *sql.Conn and *sql.Tx.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*stdsql.Stmt, error)
}

// stmtCache holds the connection's prepared statements for fixed-shape
// operations. It is owned and mutated by exactly one connection; entries
// live until the connection is torn down.
type stmtCache struct {
	entries map[stmtKey]*cachedStmt
}

func newStmtCache() *stmtCache {
	return &stmtCache{entries: make(map[stmtKey]*cachedStmt)}
}

// get returns the prepared handle for key, compiling text on first use.
// A cache hit whose stored text differs from the requested text is an
// internal error: the handle's text is immutable for its lifetime.
func (c *stmtCache) get(ctx context.Context, p preparer, key stmtKey, text string) (*stdsql.Stmt, error) {
	if e, ok := c.entries[key]; ok {
		if e.text != text {
			return nil, fmt.Errorf("zxorm: cached statement %s/%s text changed (was %q, now %q)",
				key.table, key.op, e.text, text)
		}
		return e.stmt, nil
	}
	stmt, err := p.PrepareContext(ctx, text)
	if err != nil {
		return nil, err
	}
	c.entries[key] = &cachedStmt{text: text, stmt: stmt}
	return stmt, nil
}

// len returns the number of cached statements.
func (c *stmtCache) len() int { return len(c.entries) }

// Close finalizes every cached handle.
func (c *stmtCache) Close() error {
	var errs []error
	for key, e := range c.entries {
		if err := e.stmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finalize %s/%s: %w", key.table, key.op, err))
		}
	}
	c.entries = make(map[stmtKey]*cachedStmt)
	return errors.Join(errs...)
}
