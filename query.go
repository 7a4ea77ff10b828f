package zxorm

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
	"github.com/tadejg/zxorm-sqlcipher/schema"
)

// Query composes a SELECT over one table. Clause methods may be called in
// any order; the rendered statement always follows the grammar order. A
// composition error (unknown table, unresolvable join) sticks to the query
// and is returned by the terminal methods; no SQL is sent once one is
// recorded.
type Query[T any] struct {
	c         *Conn
	t         *schema.Table[T]
	sel       *sql.Selector
	reachable []string
}

// Select starts a query over t.
func Select[T any](c *Conn, t *schema.Table[T]) *Query[T] {
	q := &Query[T]{
		c:         c,
		t:         t,
		sel:       sql.Select(t.Selections()...).From(t.Name()),
		reachable: []string{t.Name()},
	}
	if err := checkTable(c, t); err != nil {
		q.sel.SetErr(err)
	}
	return q
}

// Where adds a predicate; repeated calls combine with AND.
func (q *Query[T]) Where(p *sql.P) *Query[T] {
	q.sel.Where(p)
	return q
}

// OrderBy appends an ordering key.
func (q *Query[T]) OrderBy(f schema.FieldRef, o sql.Order) *Query[T] {
	q.sel.OrderBy(f.Ref(), o)
	return q
}

// GroupBy appends grouping keys.
func (q *Query[T]) GroupBy(fs ...schema.FieldRef) *Query[T] {
	for _, f := range fs {
		q.sel.GroupBy(f.Ref())
	}
	return q
}

// Limit caps the number of returned rows.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.sel.Limit(n)
	return q
}

// Join adds an inner join against target, resolving the join condition
// from the foreign-key graph. Exactly one foreign key must connect target
// to the tables already in the query; none or several is a composition
// error, and JoinOn with an explicit field pair must be used instead.
// The joined table becomes reachable for later joins.
func (q *Query[T]) Join(target schema.Info) *Query[T] {
	if _, err := q.c.table(target.Name()); err != nil {
		q.sel.SetErr(err)
		return q
	}
	if err := checkNotReachable(q.reachable, target.Name()); err != nil {
		q.sel.SetErr(&ValidationError{Name: "query on " + q.t.Name(), Err: err})
		return q
	}
	e, err := q.c.graph.Resolve(q.reachable, target.Name())
	if err != nil {
		q.sel.SetErr(&ValidationError{Name: "query on " + q.t.Name(), Err: err})
		return q
	}
	q.sel.Join(target.Name(), sql.T(e.Table, e.Column), sql.T(e.RefTable, e.RefColumn))
	q.reachable = append(q.reachable, target.Name())
	return q
}

// JoinOn adds an inner join against target on the explicit condition
// `left = right`, bypassing foreign-key resolution. The fields may be given
// in either order, but one must belong to an already-reachable table and
// the other to target.
func (q *Query[T]) JoinOn(target schema.Info, left, right schema.FieldRef) *Query[T] {
	if _, err := q.c.table(target.Name()); err != nil {
		q.sel.SetErr(err)
		return q
	}
	if err := checkJoinPair(q.reachable, target.Name(), left, right); err != nil {
		q.sel.SetErr(&ValidationError{Name: "query on " + q.t.Name(), Err: err})
		return q
	}
	q.sel.Join(target.Name(), left.Ref(), right.Ref())
	q.reachable = append(q.reachable, target.Name())
	return q
}

// checkNotReachable rejects joining a table the query already contains.
func checkNotReachable(reachable []string, target string) error {
	for _, r := range reachable {
		if r == target {
			return fmt.Errorf("table %s is already part of the query", target)
		}
	}
	return nil
}

// checkJoinPair validates an explicit join condition: the target must not
// be in the query yet, and the pair must connect one already-reachable
// table to it.
func checkJoinPair(reachable []string, target string, left, right schema.FieldRef) error {
	if err := checkNotReachable(reachable, target); err != nil {
		return err
	}
	in := make(map[string]bool, len(reachable))
	for _, r := range reachable {
		in[r] = true
	}
	lt, rt := left.Ref().Table, right.Ref().Table
	switch {
	case in[lt] && rt == target:
	case in[rt] && lt == target:
	default:
		return fmt.Errorf("join condition %s.%s = %s.%s does not connect %s to the query",
			lt, left.Ref().Name, rt, right.Ref().Name, target)
	}
	return nil
}

// All runs the query and returns every matching record.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	cur, err := q.Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	var recs []*T
	for cur.Next() {
		recs = append(recs, cur.Record())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return recs, cur.Close()
}

// One runs the query limited to a single row. No matching row is not an
// error; it returns (nil, nil).
func (q *Query[T]) One(ctx context.Context) (*T, error) {
	q.sel.Limit(1)
	recs, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// Only is One for callers that require the row to exist: a missing row is
// reported as a NotFoundError.
func (q *Query[T]) Only(ctx context.Context) (*T, error) {
	rec, err := q.One(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &NotFoundError{Table: q.t.Name()}
	}
	return rec, nil
}

// Iter runs the query and returns a forward-only cursor over the results.
// The cursor holds the statement's row stream open until Close.
func (q *Query[T]) Iter(ctx context.Context) (*Cursor[T], error) {
	text, args, err := q.sel.Query()
	if err != nil {
		return nil, queryErr(q.t.Name(), "select", err)
	}
	rows, err := q.c.eq.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, queryErr(q.t.Name(), "select", err)
	}
	return &Cursor[T]{t: q.t, rows: rows}, nil
}

// Count runs the composed query as `SELECT COUNT(*)`.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	return q.count(ctx, sql.CountAll())
}

// CountColumn runs the composed query as `SELECT COUNT(column)`, counting
// non-NULL values.
func (q *Query[T]) CountColumn(ctx context.Context, f schema.FieldRef) (int64, error) {
	return q.count(ctx, sql.Count(f.Ref()))
}

// CountDistinct runs the composed query as `SELECT COUNT(DISTINCT column)`.
func (q *Query[T]) CountDistinct(ctx context.Context, f schema.FieldRef) (int64, error) {
	return q.count(ctx, sql.CountDistinct(f.Ref()))
}

func (q *Query[T]) count(ctx context.Context, sel sql.Selection) (int64, error) {
	text, args, err := q.sel.WithSelection(sel).Query()
	if err != nil {
		return 0, queryErr(q.t.Name(), "count", err)
	}
	rows, err := q.c.eq.QueryContext(ctx, text, args...)
	if err != nil {
		return 0, queryErr(q.t.Name(), "count", err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, queryErr(q.t.Name(), "count", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, queryErr(q.t.Name(), "count", err)
	}
	return n, nil
}

// Cursor streams the records of one query. It is forward-only and
// single-use; Close releases the underlying row stream.
type Cursor[T any] struct {
	t    *schema.Table[T]
	rows *stdsql.Rows
	rec  *T
	err  error
}

// Next advances to the next record, reporting whether one was read.
func (c *Cursor[T]) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.rec, c.err = c.t.ScanRow(c.rows.Scan)
	return c.err == nil
}

// Record returns the record read by the last successful Next.
func (c *Cursor[T]) Record() *T { return c.rec }

// Err returns the first error hit while iterating.
func (c *Cursor[T]) Err() error {
	if c.err != nil {
		return queryErr(c.t.Name(), "select", c.err)
	}
	return queryErr(c.t.Name(), "select", c.rows.Err())
}

// Close releases the cursor's row stream. It is safe to call repeatedly.
func (c *Cursor[T]) Close() error { return c.rows.Close() }

// DeleteQuery composes a DELETE over one table. It deliberately has no
// join support; the statement cannot express one, so the builder does not
// either.
type DeleteQuery[T any] struct {
	c  *Conn
	t  *schema.Table[T]
	db *sql.DeleteBuilder
}

// Delete starts a delete over t.
func Delete[T any](c *Conn, t *schema.Table[T]) *DeleteQuery[T] {
	q := &DeleteQuery[T]{c: c, t: t, db: sql.Delete(t.Name())}
	if err := checkTable(c, t); err != nil {
		q.db.SetErr(err)
	}
	return q
}

// Where adds a predicate; repeated calls combine with AND.
func (q *DeleteQuery[T]) Where(p *sql.P) *DeleteQuery[T] {
	q.db.Where(p)
	return q
}

// Exec runs the delete and returns the number of removed rows.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	text, args, err := q.db.Query()
	if err != nil {
		return 0, mutationErr(q.t.Name(), "delete", err)
	}
	res, err := q.c.eq.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, mutationErr(q.t.Name(), "delete", err)
	}
	n, err := res.RowsAffected()
	return n, mutationErr(q.t.Name(), "delete", err)
}
