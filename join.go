package zxorm

import (
	"context"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
	"github.com/tadejg/zxorm-sqlcipher/schema"
)

// Joined is one result row of a two-table join: one record per side.
type Joined[A, B any] struct {
	A *A
	B *B
}

// JoinQuery composes a SELECT over two joined tables, returning tuple
// records. Both tables' columns are selected, table-qualified, and scanned
// over disjoint ordinal ranges: A's columns first, then B's.
type JoinQuery[A, B any] struct {
	c   *Conn
	ta  *schema.Table[A]
	tb  *schema.Table[B]
	sel *sql.Selector
}

// SelectJoin starts a two-table query, resolving the join condition from
// the foreign-key graph. Exactly one foreign key must connect the tables.
func SelectJoin[A, B any](c *Conn, ta *schema.Table[A], tb *schema.Table[B]) *JoinQuery[A, B] {
	q := newJoinQuery(c, ta, tb)
	if q.sel.Err() != nil {
		return q
	}
	if err := checkNotReachable([]string{ta.Name()}, tb.Name()); err != nil {
		q.sel.SetErr(&ValidationError{Name: "join of " + ta.Name() + " and " + tb.Name(), Err: err})
		return q
	}
	e, err := c.graph.Resolve([]string{ta.Name()}, tb.Name())
	if err != nil {
		q.sel.SetErr(&ValidationError{Name: "join of " + ta.Name() + " and " + tb.Name(), Err: err})
		return q
	}
	q.sel.Join(tb.Name(), sql.T(e.Table, e.Column), sql.T(e.RefTable, e.RefColumn))
	return q
}

// SelectJoinOn starts a two-table query on the explicit join condition
// `left = right`, bypassing foreign-key resolution.
func SelectJoinOn[A, B any](c *Conn, ta *schema.Table[A], tb *schema.Table[B], left, right schema.FieldRef) *JoinQuery[A, B] {
	q := newJoinQuery(c, ta, tb)
	if q.sel.Err() != nil {
		return q
	}
	if err := checkJoinPair([]string{ta.Name()}, tb.Name(), left, right); err != nil {
		q.sel.SetErr(&ValidationError{Name: "join of " + ta.Name() + " and " + tb.Name(), Err: err})
		return q
	}
	q.sel.Join(tb.Name(), left.Ref(), right.Ref())
	return q
}

func newJoinQuery[A, B any](c *Conn, ta *schema.Table[A], tb *schema.Table[B]) *JoinQuery[A, B] {
	sels := append(ta.Selections(), tb.Selections()...)
	q := &JoinQuery[A, B]{
		c:   c,
		ta:  ta,
		tb:  tb,
		sel: sql.Select(sels...).From(ta.Name()),
	}
	if err := checkTable(c, ta); err != nil {
		q.sel.SetErr(err)
	} else if err := checkTable(c, tb); err != nil {
		q.sel.SetErr(err)
	}
	return q
}

// Where adds a predicate; repeated calls combine with AND.
func (q *JoinQuery[A, B]) Where(p *sql.P) *JoinQuery[A, B] {
	q.sel.Where(p)
	return q
}

// OrderBy appends an ordering key.
func (q *JoinQuery[A, B]) OrderBy(f schema.FieldRef, o sql.Order) *JoinQuery[A, B] {
	q.sel.OrderBy(f.Ref(), o)
	return q
}

// Limit caps the number of returned rows.
func (q *JoinQuery[A, B]) Limit(n int) *JoinQuery[A, B] {
	q.sel.Limit(n)
	return q
}

// All runs the query and returns every matching tuple.
func (q *JoinQuery[A, B]) All(ctx context.Context) ([]Joined[A, B], error) {
	text, args, err := q.sel.Query()
	if err != nil {
		return nil, queryErr(q.ta.Name(), "select", err)
	}
	rows, err := q.c.eq.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, queryErr(q.ta.Name(), "select", err)
	}
	defer rows.Close()
	var out []Joined[A, B]
	na := q.ta.NumColumns()
	for rows.Next() {
		dests := append(q.ta.Dests(), q.tb.Dests()...)
		if err := rows.Scan(dests...); err != nil {
			return nil, queryErr(q.ta.Name(), "select", err)
		}
		a, b := new(A), new(B)
		if err := q.ta.Fill(a, dests[:na]); err != nil {
			return nil, queryErr(q.ta.Name(), "select", err)
		}
		if err := q.tb.Fill(b, dests[na:]); err != nil {
			return nil, queryErr(q.tb.Name(), "select", err)
		}
		out = append(out, Joined[A, B]{A: a, B: b})
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(q.ta.Name(), "select", err)
	}
	return out, rows.Close()
}

// One runs the query limited to a single tuple. No matching row is not an
// error; the zero Joined and nil are returned.
func (q *JoinQuery[A, B]) One(ctx context.Context) (Joined[A, B], error) {
	q.sel.Limit(1)
	all, err := q.All(ctx)
	if err != nil || len(all) == 0 {
		return Joined[A, B]{}, err
	}
	return all[0], nil
}
