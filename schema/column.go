package schema

import (
	stdsql "database/sql"
	"fmt"
	"reflect"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
)

// Kind is the SQL storage class of a column, derived from the Go type of
// the bound field.
type Kind int

const (
	KindInteger Kind = iota
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	}
	return "INTEGER"
}

// Conflict is the resolution policy applied when a NOT NULL, PRIMARY KEY or
// UNIQUE constraint is violated.
type Conflict string

const (
	Rollback Conflict = "ROLLBACK"
	Abort    Conflict = "ABORT"
	Fail     Conflict = "FAIL"
	Ignore   Conflict = "IGNORE"
	Replace  Conflict = "REPLACE"
)

// RefAction is the action taken on the referencing row when the referenced
// row is updated or deleted.
type RefAction string

const (
	NoAction   RefAction = "NO ACTION"
	Restrict   RefAction = "RESTRICT"
	SetNull    RefAction = "SET NULL"
	SetDefault RefAction = "SET DEFAULT"
	Cascade    RefAction = "CASCADE"
)

// Reference is the target of a FOREIGN KEY constraint.
type Reference struct {
	Table    string
	Column   string
	OnUpdate RefAction
	OnDelete RefAction
}

// Desc describes one column: its name, storage class, and constraints.
// Descriptors are pure derived data; nothing mutates them after the owning
// table is assembled.
type Desc struct {
	Name             string
	Kind             Kind
	Nullable         bool
	NotNullPolicy    Conflict
	PrimaryKey       bool
	PrimaryKeyPolicy Conflict
	Unique           bool
	UniquePolicy     Conflict
	Ref              *Reference
}

// DDL renders the column's CREATE TABLE fragment. The constraint order is
// fixed: NOT NULL, PRIMARY KEY, UNIQUE, REFERENCES.
func (d *Desc) DDL() string {
	b := sql.NewBuilder()
	b.Quote(d.Name).WriteByte(' ').WriteString(d.Kind.String())
	if !d.Nullable {
		b.WriteString(" NOT NULL ON CONFLICT ").WriteString(string(d.NotNullPolicy))
	}
	if d.PrimaryKey {
		b.WriteString(" PRIMARY KEY ON CONFLICT ").WriteString(string(d.PrimaryKeyPolicy))
	}
	if d.Unique {
		b.WriteString(" UNIQUE ON CONFLICT ").WriteString(string(d.UniquePolicy))
	}
	if d.Ref != nil {
		b.WriteString(" REFERENCES ").Quote(d.Ref.Table)
		b.WriteString(" (").Quote(d.Ref.Column).WriteByte(')')
		b.WriteString(" ON UPDATE ").WriteString(string(d.Ref.OnUpdate))
		b.WriteString(" ON DELETE ").WriteString(string(d.Ref.OnDelete))
	}
	text, _ := b.Query()
	return text
}

// Option configures a column's constraints.
type Option func(*Desc)

// Nullable marks the column as nullable, suppressing the implicit NOT NULL
// constraint.
func Nullable() Option {
	return func(d *Desc) { d.Nullable = true }
}

// NotNull sets the conflict policy of the implicit NOT NULL constraint.
func NotNull(policy Conflict) Option {
	return func(d *Desc) {
		d.Nullable = false
		d.NotNullPolicy = policy
	}
}

// PrimaryKey marks the column as the table's primary key. The optional
// policy defaults to Abort.
func PrimaryKey(policy ...Conflict) Option {
	return func(d *Desc) {
		d.PrimaryKey = true
		d.PrimaryKeyPolicy = Abort
		if len(policy) > 0 {
			d.PrimaryKeyPolicy = policy[0]
		}
	}
}

// Unique adds a UNIQUE constraint. The optional policy defaults to Abort.
func Unique(policy ...Conflict) Option {
	return func(d *Desc) {
		d.Unique = true
		d.UniquePolicy = Abort
		if len(policy) > 0 {
			d.UniquePolicy = policy[0]
		}
	}
}

// References adds a FOREIGN KEY constraint targeting table(column) with the
// given ON UPDATE and ON DELETE actions.
func References(table, column string, onUpdate, onDelete RefAction) Option {
	return func(d *Desc) {
		d.Ref = &Reference{Table: table, Column: column, OnUpdate: onUpdate, OnDelete: onDelete}
	}
}

// Accessor reads and writes one field of a record. The two implementations,
// pointer access and a getter/setter pair, are treated uniformly by every
// later stage; records never have to implement anything themselves.
type Accessor[T, V any] interface {
	Get(rec *T) V
	Set(rec *T, v V)
}

type ptrAccess[T, V any] struct {
	ptr func(*T) *V
}

func (a ptrAccess[T, V]) Get(rec *T) V { return *a.ptr(rec) }
func (a ptrAccess[T, V]) Set(rec *T, v V) { *a.ptr(rec) = v }

// Ptr returns an Accessor over a directly addressable field.
func Ptr[T, V any](ptr func(*T) *V) Accessor[T, V] {
	return ptrAccess[T, V]{ptr: ptr}
}

type getSetAccess[T, V any] struct {
	get func(*T) V
	set func(*T, V)
}

func (a getSetAccess[T, V]) Get(rec *T) V { return a.get(rec) }
func (a getSetAccess[T, V]) Set(rec *T, v V) { a.set(rec, v) }

// GetSet returns an Accessor over a getter/setter pair, for fields that are
// not directly addressable.
func GetSet[T, V any](get func(*T) V, set func(*T, V)) Accessor[T, V] {
	return getSetAccess[T, V]{get: get, set: set}
}

// Value is the set of Go types a plain column can bind: integral types map
// to INTEGER, floats to REAL, strings to TEXT and byte slices to BLOB.
// Booleans are stored as INTEGER.
type Value interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string | ~bool | ~[]byte
}

// FieldRef identifies one column on one table, independent of the record
// type. It is what ordering, grouping and explicit join clauses accept.
type FieldRef interface {
	Ref() sql.Col
}

// codec converts between the field's Go value and its SQL representation,
// for columns that store an encoded form (UUID text, serialized blobs).
type codec[V any] struct {
	dest   func() any
	decode func(src any) (V, error)
	encode func(v V) (any, error)
}

// Col is a single column bound to a field of the record type T with value
// type V. It doubles as the typed field reference used to build predicates,
// ordering keys and join conditions.
type Col[T, V any] struct {
	desc  *Desc
	acc   Accessor[T, V]
	cod   *codec[V]
	table string
}

// Column declares a column named name over the given accessor. The storage
// class is derived from V.
func Column[T any, V Value](name string, acc Accessor[T, V], opts ...Option) *Col[T, V] {
	d := &Desc{
		Name:          name,
		Kind:          kindOf[V](),
		NotNullPolicy: Abort,
	}
	for _, opt := range opts {
		opt(d)
	}
	return &Col[T, V]{desc: d, acc: acc}
}

func kindOf[V any]() Kind {
	t := reflect.TypeFor[V]()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Bool:
		return KindInteger
	case reflect.Float32, reflect.Float64:
		return KindReal
	case reflect.String:
		return KindText
	case reflect.Slice:
		return KindBlob
	}
	return KindInteger
}

// Desc returns the column descriptor.
func (c *Col[T, V]) Desc() *Desc { return c.desc }

// Name returns the column name.
func (c *Col[T, V]) Name() string { return c.desc.Name }

// Ref returns the column reference, qualified by the owning table once the
// column has been attached to one.
func (c *Col[T, V]) Ref() sql.Col { return sql.T(c.table, c.desc.Name) }

// arg converts a typed value to its bound SQL representation.
func (c *Col[T, V]) arg(v V) (any, error) {
	if c.cod != nil {
		return c.cod.encode(v)
	}
	return v, nil
}

// pred builds a comparison predicate over an encoded value. An encode
// failure becomes an error predicate, failing the enclosing statement at
// render time.
func (c *Col[T, V]) pred(build func(sql.Col, any) *sql.P, v V) *sql.P {
	a, err := c.arg(v)
	if err != nil {
		return sql.Err(fmt.Errorf("column %q: encode: %w", c.desc.Name, err))
	}
	return build(c.Ref(), a)
}

// EQ returns the predicate `column = ?`.
func (c *Col[T, V]) EQ(v V) *sql.P { return c.pred(sql.EQ, v) }

// NEQ returns the predicate `column != ?`.
func (c *Col[T, V]) NEQ(v V) *sql.P { return c.pred(sql.NEQ, v) }

// LT returns the predicate `column < ?`.
func (c *Col[T, V]) LT(v V) *sql.P { return c.pred(sql.LT, v) }

// LTE returns the predicate `column <= ?`.
func (c *Col[T, V]) LTE(v V) *sql.P { return c.pred(sql.LTE, v) }

// GT returns the predicate `column > ?`.
func (c *Col[T, V]) GT(v V) *sql.P { return c.pred(sql.GT, v) }

// GTE returns the predicate `column >= ?`.
func (c *Col[T, V]) GTE(v V) *sql.P { return c.pred(sql.GTE, v) }

// Like returns the predicate `column LIKE ?`.
func (c *Col[T, V]) Like(pattern string) *sql.P { return sql.Like(c.Ref(), pattern) }

// In returns the predicate `column IN (?, ...)`.
func (c *Col[T, V]) In(vs ...V) *sql.P {
	args := make([]any, len(vs))
	for i, v := range vs {
		a, err := c.arg(v)
		if err != nil {
			return sql.Err(fmt.Errorf("column %q: encode: %w", c.desc.Name, err))
		}
		args[i] = a
	}
	return sql.In(c.Ref(), args...)
}

// IsNull returns the predicate `column IS NULL`.
func (c *Col[T, V]) IsNull() *sql.P { return sql.IsNull(c.Ref()) }

// NotNull returns the predicate `column IS NOT NULL`.
func (c *Col[T, V]) NotNull() *sql.P { return sql.NotNull(c.Ref()) }

// EQCol returns the cross-column predicate `column = other`.
func (c *Col[T, V]) EQCol(other FieldRef) *sql.P {
	return sql.ColumnsEQ(c.Ref(), other.Ref())
}

// bind attaches the column to its owning table. A column can belong to one
// table only.
func (c *Col[T, V]) bind(table string) error {
	if c.table != "" && c.table != table {
		return fmt.Errorf("column %q is already bound to table %q", c.desc.Name, c.table)
	}
	c.table = table
	return nil
}

// value returns the bound SQL value for the record's field.
func (c *Col[T, V]) value(rec *T) (any, error) {
	v := c.acc.Get(rec)
	if c.cod != nil {
		return c.cod.encode(v)
	}
	return v, nil
}

// dest returns a fresh scan destination for the column.
func (c *Col[T, V]) dest() any {
	if c.cod != nil {
		return c.cod.dest()
	}
	if c.desc.Nullable {
		return &stdsql.Null[V]{}
	}
	return new(V)
}

// assign writes a scanned destination back into the record's field.
func (c *Col[T, V]) assign(rec *T, dest any) error {
	if c.cod != nil {
		v, err := c.cod.decode(dest)
		if err != nil {
			return fmt.Errorf("column %q: %w", c.desc.Name, err)
		}
		c.acc.Set(rec, v)
		return nil
	}
	switch d := dest.(type) {
	case *V:
		c.acc.Set(rec, *d)
	case *stdsql.Null[V]:
		c.acc.Set(rec, d.V) // zero value when NULL
	default:
		return fmt.Errorf("column %q: unexpected scan destination %T", c.desc.Name, dest)
	}
	return nil
}

// setRowID assigns an engine-generated row id to integral fields. Non-integral
// fields are left untouched.
func (c *Col[T, V]) setRowID(rec *T, id int64) {
	var v V
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(uint64(id))
	default:
		return
	}
	c.acc.Set(rec, v)
}
