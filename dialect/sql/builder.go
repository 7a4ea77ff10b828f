package sql

import (
	"errors"
	"strconv"
	"strings"
)

// Col identifies a single column, optionally qualified by the table it
// belongs to. Whether the qualifier is rendered depends on the statement:
// single-table statements emit the bare column name, joined statements
// emit `table`.`column`.
type Col struct {
	Table string
	Name  string
}

// C returns an unqualified column reference.
func C(name string) Col { return Col{Name: name} }

// T returns a column reference qualified by its table.
func T(table, name string) Col { return Col{Table: table, Name: name} }

// render writes the column to the builder, honoring its qualify mode.
func (c Col) render(b *Builder) {
	if b.qualify && c.Table != "" {
		b.Quote(c.Table)
		b.WriteByte('.')
	}
	b.Quote(c.Name)
}

// Builder is the low-level SQL text builder. It accumulates the statement
// text and its bound arguments; every Arg call appends one `?` placeholder
// and one value, so the argument order always matches the placeholder order.
type Builder struct {
	sb      strings.Builder
	args    []any
	qualify bool
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Qualify sets whether column references are rendered with their table
// qualifier.
func (b *Builder) Qualify(q bool) *Builder {
	b.qualify = q
	return b
}

// WriteString appends raw text to the statement.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends a single byte to the statement.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Quote appends a backtick-quoted identifier.
func (b *Builder) Quote(ident string) *Builder {
	b.sb.WriteByte('`')
	b.sb.WriteString(ident)
	b.sb.WriteByte('`')
	return b
}

// Col appends a column reference.
func (b *Builder) Col(c Col) *Builder {
	c.render(b)
	return b
}

// Arg appends a `?` placeholder and records its bound value.
func (b *Builder) Arg(v any) *Builder {
	b.sb.WriteByte('?')
	b.args = append(b.args, v)
	return b
}

// Int appends a decimal integer literal.
func (b *Builder) Int(n int) *Builder {
	b.sb.WriteString(strconv.Itoa(n))
	return b
}

// SetErr records an error hit while rendering. The first error wins.
func (b *Builder) SetErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded while rendering.
func (b *Builder) Err() error { return b.err }

// Query returns the accumulated statement text and its arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// Order is the direction of an ORDER BY key.
type Order int

const (
	// OrderAsc sorts in ascending order.
	OrderAsc Order = iota
	// OrderDesc sorts in descending order.
	OrderDesc
)

func (o Order) String() string {
	if o == OrderDesc {
		return "DESC"
	}
	return "ASC"
}

// Selection is one entry of a select-list: a column reference or an
// aggregate over one.
type Selection interface {
	renderSelection(b *Builder)
	selectionTable() string
}

func (c Col) renderSelection(b *Builder) { c.render(b) }
func (c Col) selectionTable() string { return c.Table }

type countSel struct {
	col      Col
	distinct bool
	all      bool
}

// Count returns a COUNT(column) selection.
func Count(c Col) Selection { return countSel{col: c} }

// CountDistinct returns a COUNT(DISTINCT column) selection.
func CountDistinct(c Col) Selection { return countSel{col: c, distinct: true} }

// CountAll returns a COUNT(*) selection.
func CountAll() Selection { return countSel{all: true} }

func (c countSel) renderSelection(b *Builder) {
	b.WriteString("COUNT(")
	switch {
	case c.all:
		b.WriteByte('*')
	case c.distinct:
		b.WriteString("DISTINCT ")
		c.col.render(b)
	default:
		c.col.render(b)
	}
	b.WriteByte(')')
}

func (c countSel) selectionTable() string { return c.col.Table }

type joinClause struct {
	kind  string // "JOIN" or "LEFT JOIN"
	table string
	left  Col
	right Col
}

type orderTerm struct {
	col   Col
	order Order
}

// Selector builds SELECT statements. Clauses are rendered in fixed grammar
// order regardless of the order they were added: select-list, FROM, joins in
// declaration order, WHERE, GROUP BY, ORDER BY, LIMIT.
type Selector struct {
	sels    []Selection
	from    string
	joins   []joinClause
	where   *P
	groupBy []Col
	orderBy []orderTerm
	limit   int
	limited bool
	err     error
}

// Select returns a Selector with the given select-list.
func Select(sels ...Selection) *Selector {
	return &Selector{sels: sels}
}

// AppendSelect adds entries to the select-list.
func (s *Selector) AppendSelect(sels ...Selection) *Selector {
	s.sels = append(s.sels, sels...)
	return s
}

// WithSelection returns a copy of the selector whose select-list is
// replaced. The copy shares the original's clauses; it exists so an
// aggregate can be run over an already-composed query.
func (s *Selector) WithSelection(sels ...Selection) *Selector {
	c := *s
	c.sels = sels
	return &c
}

// From sets the table the statement selects from. If it is never called,
// the table of the first select-list entry is used.
func (s *Selector) From(table string) *Selector {
	s.from = table
	return s
}

// Join appends an inner join on the condition `left = right`.
func (s *Selector) Join(table string, left, right Col) *Selector {
	s.joins = append(s.joins, joinClause{kind: "JOIN", table: table, left: left, right: right})
	return s
}

// LeftJoin appends a left outer join on the condition `left = right`.
func (s *Selector) LeftJoin(table string, left, right Col) *Selector {
	s.joins = append(s.joins, joinClause{kind: "LEFT JOIN", table: table, left: left, right: right})
	return s
}

// Where sets the WHERE predicate. Calling it again combines the predicates
// with AND.
func (s *Selector) Where(p *P) *Selector {
	if s.where != nil {
		p = And(s.where, p)
	}
	s.where = p
	return s
}

// GroupBy appends GROUP BY keys.
func (s *Selector) GroupBy(cols ...Col) *Selector {
	s.groupBy = append(s.groupBy, cols...)
	return s
}

// OrderBy appends an ORDER BY key with its direction.
func (s *Selector) OrderBy(c Col, o Order) *Selector {
	s.orderBy = append(s.orderBy, orderTerm{col: c, order: o})
	return s
}

// Limit sets the LIMIT count.
func (s *Selector) Limit(n int) *Selector {
	s.limit = n
	s.limited = true
	return s
}

// SetErr marks the selector as malformed. The first recorded error is kept
// and returned by Query.
func (s *Selector) SetErr(err error) *Selector {
	if s.err == nil {
		s.err = err
	}
	return s
}

// Err returns the first composition error recorded on the selector.
func (s *Selector) Err() error { return s.err }

// Query renders the statement text and its bound arguments. The output is a
// pure function of the selector's clause list.
func (s *Selector) Query() (string, []any, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	from := s.from
	if from == "" {
		for _, sel := range s.sels {
			if t := sel.selectionTable(); t != "" {
				from = t
				break
			}
		}
	}
	if from == "" {
		return "", nil, errors.New("sql: selector has no FROM table")
	}
	if len(s.sels) == 0 {
		return "", nil, errors.New("sql: selector has an empty select-list")
	}
	b := NewBuilder().Qualify(len(s.joins) > 0)
	b.WriteString("SELECT ")
	for i, sel := range s.sels {
		if i > 0 {
			b.WriteString(", ")
		}
		sel.renderSelection(b)
	}
	b.WriteString(" FROM ").WriteString(from)
	for _, j := range s.joins {
		b.WriteByte(' ').WriteString(j.kind).WriteByte(' ').WriteString(j.table)
		b.WriteString(" ON ")
		j.left.render(b)
		b.WriteString(" = ")
		j.right.render(b)
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.render(b)
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, c := range s.groupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			c.render(b)
		}
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			o.col.render(b)
			b.WriteByte(' ').WriteString(o.order.String())
		}
	}
	if s.limited {
		b.WriteString(" LIMIT ").Int(s.limit)
	}
	if err := b.Err(); err != nil {
		return "", nil, err
	}
	text, args := b.Query()
	return text, args, nil
}

// DeleteBuilder builds DELETE statements. The grammar is fixed to
// `DELETE FROM table [WHERE predicate]`; joins are not part of the builder
// on purpose, the statement cannot express them.
type DeleteBuilder struct {
	table string
	where *P
	err   error
}

// Delete returns a DeleteBuilder for the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where sets the WHERE predicate. Calling it again combines with AND.
func (d *DeleteBuilder) Where(p *P) *DeleteBuilder {
	if d.where != nil {
		p = And(d.where, p)
	}
	d.where = p
	return d
}

// SetErr marks the builder as malformed.
func (d *DeleteBuilder) SetErr(err error) *DeleteBuilder {
	if d.err == nil {
		d.err = err
	}
	return d
}

// Err returns the first composition error recorded on the builder.
func (d *DeleteBuilder) Err() error { return d.err }

// Query renders the statement text and its bound arguments.
func (d *DeleteBuilder) Query() (string, []any, error) {
	if d.err != nil {
		return "", nil, d.err
	}
	b := NewBuilder()
	b.WriteString("DELETE FROM ").WriteString(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.render(b)
	}
	if err := b.Err(); err != nil {
		return "", nil, err
	}
	text, args := b.Query()
	return text, args, nil
}

// InsertBuilder builds INSERT statements, optionally with multiple value
// rows for batched inserts.
type InsertBuilder struct {
	table string
	cols  []string
	rows  [][]any
}

// Insert returns an InsertBuilder for the given table and column list.
func Insert(table string, cols ...string) *InsertBuilder {
	return &InsertBuilder{table: table, cols: cols}
}

// Values appends one row of values. The length must match the column list.
func (i *InsertBuilder) Values(vs ...any) *InsertBuilder {
	i.rows = append(i.rows, vs)
	return i
}

// Query renders the statement text and its bound arguments.
func (i *InsertBuilder) Query() (string, []any, error) {
	if len(i.cols) == 0 {
		return "", nil, errors.New("sql: insert without columns")
	}
	if len(i.rows) == 0 {
		return "", nil, errors.New("sql: insert without values")
	}
	for _, row := range i.rows {
		if len(row) != len(i.cols) {
			return "", nil, errors.New("sql: insert row length does not match column list")
		}
	}
	b := NewBuilder()
	b.WriteString("INSERT INTO ").WriteString(i.table).WriteString(" (")
	for n, c := range i.cols {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Quote(c)
	}
	b.WriteString(") VALUES ")
	for n, row := range i.rows {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for m, v := range row {
			if m > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteByte(')')
	}
	text, args := b.Query()
	return text, args, nil
}

// UpdateBuilder builds UPDATE statements.
type UpdateBuilder struct {
	table string
	cols  []string
	vals  []any
	where *P
}

// Update returns an UpdateBuilder for the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set appends one column assignment. Assignments render in the order they
// were added, and their arguments precede the WHERE arguments.
func (u *UpdateBuilder) Set(col string, v any) *UpdateBuilder {
	u.cols = append(u.cols, col)
	u.vals = append(u.vals, v)
	return u
}

// Where sets the WHERE predicate.
func (u *UpdateBuilder) Where(p *P) *UpdateBuilder {
	if u.where != nil {
		p = And(u.where, p)
	}
	u.where = p
	return u
}

// Query renders the statement text and its bound arguments.
func (u *UpdateBuilder) Query() (string, []any, error) {
	if len(u.cols) == 0 {
		return "", nil, errors.New("sql: update without assignments")
	}
	b := NewBuilder()
	b.WriteString("UPDATE ").WriteString(u.table).WriteString(" SET ")
	for n, c := range u.cols {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Quote(c).WriteString(" = ").Arg(u.vals[n])
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.render(b)
	}
	if err := b.Err(); err != nil {
		return "", nil, err
	}
	text, args := b.Query()
	return text, args, nil
}
