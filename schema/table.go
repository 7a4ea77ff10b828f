package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
)

// ForeignKey is the derived view of one FOREIGN KEY constraint: a directed
// edge from a column of this table to a (table, column) target.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Info is the record-type-independent view of a table descriptor. It is
// what the connection and the join resolver consume.
type Info interface {
	Name() string
	NumColumns() int
	ColumnName(i int) string
	CreateQuery(ifNotExists bool) string
	ForeignKeys() []ForeignKey
	PrimaryKeyName() (string, bool)
	Validate() error
}

// ColumnOf is one column of a table over record type T. It is implemented
// by *Col; the unexported methods keep the binding machinery internal.
type ColumnOf[T any] interface {
	Desc() *Desc
	Ref() sql.Col

	bind(table string) error
	value(rec *T) (any, error)
	dest() any
	assign(rec *T, dest any) error
	setRowID(rec *T, id int64)
}

// Table maps the record type T onto one relational table. It is assembled
// once at program build time and is immutable afterwards; validation
// failures are reported by Validate, before any SQL is produced.
type Table[T any] struct {
	name string
	cols []ColumnOf[T]
	pk   ColumnOf[T]
	errs []error
}

// NewTable assembles a table descriptor from explicit column declarations.
// Shape problems (duplicate column names, multiple primary keys, columns
// already bound elsewhere) are recorded and surfaced by Validate.
func NewTable[T any](name string, cols ...ColumnOf[T]) *Table[T] {
	t := &Table[T]{name: name, cols: cols}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		d := c.Desc()
		if _, dup := seen[d.Name]; dup {
			t.errs = append(t.errs, fmt.Errorf("table %q: duplicate column name %q", name, d.Name))
			continue
		}
		seen[d.Name] = struct{}{}
		if err := c.bind(name); err != nil {
			t.errs = append(t.errs, fmt.Errorf("table %q: %w", name, err))
		}
		if d.PrimaryKey {
			if t.pk != nil {
				t.errs = append(t.errs, fmt.Errorf("table %q: multiple primary keys (%q and %q)", name, t.pk.Desc().Name, d.Name))
				continue
			}
			t.pk = c
		}
	}
	if len(cols) == 0 {
		t.errs = append(t.errs, fmt.Errorf("table %q: no columns", name))
	}
	return t
}

// NewTableFor assembles a table whose name is derived from the record type
// name (snake_case).
func NewTableFor[T any](cols ...ColumnOf[T]) *Table[T] {
	name := inflect.Underscore(reflect.TypeFor[T]().Name())
	return NewTable[T](name, cols...)
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// NumColumns returns the number of declared columns.
func (t *Table[T]) NumColumns() int { return len(t.cols) }

// ColumnName returns the name of the i-th column in declaration order.
func (t *Table[T]) ColumnName(i int) string { return t.cols[i].Desc().Name }

// Columns returns the declared columns in order.
func (t *Table[T]) Columns() []ColumnOf[T] { return t.cols }

// PrimaryKey returns the primary-key column, if one was designated.
func (t *Table[T]) PrimaryKey() (ColumnOf[T], bool) { return t.pk, t.pk != nil }

// PrimaryKeyName returns the primary-key column name, if one was designated.
func (t *Table[T]) PrimaryKeyName() (string, bool) {
	if t.pk == nil {
		return "", false
	}
	return t.pk.Desc().Name, true
}

// HasRowID reports whether the primary key is an INTEGER column, making it
// an alias of the engine's row id. Such columns are omitted from inserts
// and assigned back from the generated id.
func (t *Table[T]) HasRowID() bool {
	return t.pk != nil && t.pk.Desc().Kind == KindInteger
}

// ForeignKeys returns the table's foreign-key edges.
func (t *Table[T]) ForeignKeys() []ForeignKey {
	var fks []ForeignKey
	for _, c := range t.cols {
		if ref := c.Desc().Ref; ref != nil {
			fks = append(fks, ForeignKey{
				Column:    c.Desc().Name,
				RefTable:  ref.Table,
				RefColumn: ref.Column,
			})
		}
	}
	return fks
}

// Validate reports the shape problems recorded while assembling the table.
// Foreign-key targets are validated by the connection, which knows the full
// table set.
func (t *Table[T]) Validate() error {
	return errors.Join(t.errs...)
}

// CreateQuery renders the table's CREATE TABLE statement. Column fragments
// appear in declaration order.
func (t *Table[T]) CreateQuery(ifNotExists bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(t.name)
	sb.WriteString(" ( ")
	for i, c := range t.cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Desc().DDL())
	}
	sb.WriteString(" );")
	return sb.String()
}

// Selections returns the select-list covering all columns in declaration
// order, qualified by the table.
func (t *Table[T]) Selections() []sql.Selection {
	sels := make([]sql.Selection, len(t.cols))
	for i, c := range t.cols {
		sels[i] = c.Ref()
	}
	return sels
}

// Dests returns fresh scan destinations for one row of the table's columns,
// in declaration order.
func (t *Table[T]) Dests() []any {
	dests := make([]any, len(t.cols))
	for i, c := range t.cols {
		dests[i] = c.dest()
	}
	return dests
}

// Fill assigns scanned destinations back into the record, ordinal by
// ordinal.
func (t *Table[T]) Fill(rec *T, dests []any) error {
	if len(dests) != len(t.cols) {
		return fmt.Errorf("table %q: %d scan destinations for %d columns", t.name, len(dests), len(t.cols))
	}
	for i, c := range t.cols {
		if err := c.assign(rec, dests[i]); err != nil {
			return err
		}
	}
	return nil
}

// ScanRow scans the next row from the given scan function into a fresh
// record.
func (t *Table[T]) ScanRow(scan func(dest ...any) error) (*T, error) {
	dests := t.Dests()
	if err := scan(dests...); err != nil {
		return nil, err
	}
	rec := new(T)
	if err := t.Fill(rec, dests); err != nil {
		return nil, err
	}
	return rec, nil
}

// InsertColumns returns the column names bound by an insert, in declaration
// order. A row-id primary key is omitted; the engine assigns it.
func (t *Table[T]) InsertColumns() []string {
	var names []string
	for _, c := range t.cols {
		if t.HasRowID() && c == t.pk {
			continue
		}
		names = append(names, c.Desc().Name)
	}
	return names
}

// InsertValues returns the record's bound values matching InsertColumns.
func (t *Table[T]) InsertValues(rec *T) ([]any, error) {
	var vals []any
	for _, c := range t.cols {
		if t.HasRowID() && c == t.pk {
			continue
		}
		v, err := c.value(rec)
		if err != nil {
			return nil, fmt.Errorf("table %q, column %q: %w", t.name, c.Desc().Name, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// UpdateColumns returns the non-primary-key column names, in declaration
// order.
func (t *Table[T]) UpdateColumns() []string {
	var names []string
	for _, c := range t.cols {
		if c == t.pk {
			continue
		}
		names = append(names, c.Desc().Name)
	}
	return names
}

// UpdateValues returns the record's bound values matching UpdateColumns.
func (t *Table[T]) UpdateValues(rec *T) ([]any, error) {
	var vals []any
	for _, c := range t.cols {
		if c == t.pk {
			continue
		}
		v, err := c.value(rec)
		if err != nil {
			return nil, fmt.Errorf("table %q, column %q: %w", t.name, c.Desc().Name, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// PrimaryKeyValue returns the record's bound primary-key value.
func (t *Table[T]) PrimaryKeyValue(rec *T) (any, error) {
	if t.pk == nil {
		return nil, fmt.Errorf("table %q has no primary key", t.name)
	}
	return t.pk.value(rec)
}

// SetRowID assigns an engine-generated row id to the record's primary key.
func (t *Table[T]) SetRowID(rec *T, id int64) {
	if t.pk != nil {
		t.pk.setRowID(rec, id)
	}
}
