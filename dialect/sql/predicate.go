package sql

// P is a node of a predicate tree: either a leaf comparison over a column,
// or an AND/OR/NOT composition of other nodes. Rendering a node is
// deterministic and idempotent; the bound arguments it produces are in the
// same left-to-right order as the `?` placeholders it emits, fixed at
// construction time.
type P struct {
	build func(b *Builder)
}

// Query renders the predicate on its own and returns the text with its
// bound arguments. Column references render unqualified.
func (p *P) Query() (string, []any) {
	b := NewBuilder()
	p.render(b)
	return b.Query()
}

func (p *P) render(b *Builder) { p.build(b) }

// Err returns a predicate that renders nothing and records err on the
// builder instead, failing the enclosing statement's Query. It carries
// value-conversion failures hit during predicate construction to the point
// where the statement is rendered.
func Err(err error) *P {
	return &P{build: func(b *Builder) {
		b.SetErr(err)
	}}
}

func binary(c Col, op string, v any) *P {
	return &P{build: func(b *Builder) {
		b.Col(c).WriteByte(' ').WriteString(op).WriteByte(' ').Arg(v)
	}}
}

func columns(a Col, op string, c Col) *P {
	return &P{build: func(b *Builder) {
		b.Col(a).WriteByte(' ').WriteString(op).WriteByte(' ').Col(c)
	}}
}

// EQ returns the predicate `column = ?`.
func EQ(c Col, v any) *P { return binary(c, "=", v) }

// NEQ returns the predicate `column != ?`.
func NEQ(c Col, v any) *P { return binary(c, "!=", v) }

// LT returns the predicate `column < ?`.
func LT(c Col, v any) *P { return binary(c, "<", v) }

// LTE returns the predicate `column <= ?`.
func LTE(c Col, v any) *P { return binary(c, "<=", v) }

// GT returns the predicate `column > ?`.
func GT(c Col, v any) *P { return binary(c, ">", v) }

// GTE returns the predicate `column >= ?`.
func GTE(c Col, v any) *P { return binary(c, ">=", v) }

// Like returns the predicate `column LIKE ?`.
func Like(c Col, pattern string) *P { return binary(c, "LIKE", pattern) }

// ColumnsEQ returns the cross-column predicate `a = b`.
func ColumnsEQ(a, b Col) *P { return columns(a, "=", b) }

// ColumnsNEQ returns the cross-column predicate `a != b`.
func ColumnsNEQ(a, b Col) *P { return columns(a, "!=", b) }

// IsNull returns the predicate `column IS NULL`.
func IsNull(c Col) *P {
	return &P{build: func(b *Builder) {
		b.Col(c).WriteString(" IS NULL")
	}}
}

// NotNull returns the predicate `column IS NOT NULL`.
func NotNull(c Col) *P {
	return &P{build: func(b *Builder) {
		b.Col(c).WriteString(" IS NOT NULL")
	}}
}

// In returns the predicate `column IN (?, ...)`. An empty value list
// renders FALSE, since the membership cannot hold.
func In(c Col, vs ...any) *P {
	return &P{build: func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Col(c).WriteString(" IN (")
		for i, v := range vs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteByte(')')
	}}
}

// NotIn returns the predicate `column NOT IN (?, ...)`. An empty value list
// renders TRUE.
func NotIn(c Col, vs ...any) *P {
	return &P{build: func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Col(c).WriteString(" NOT IN (")
		for i, v := range vs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteByte(')')
	}}
}

func compose(op string, ps []*P) *P {
	if len(ps) == 1 {
		return ps[0]
	}
	return &P{build: func(b *Builder) {
		for i, p := range ps {
			if i > 0 {
				b.WriteByte(' ').WriteString(op).WriteByte(' ')
			}
			b.WriteByte('(')
			p.render(b)
			b.WriteByte(')')
		}
	}}
}

// And combines predicates with AND. Operands render parenthesized, left to
// right, so their arguments keep their construction order.
func And(ps ...*P) *P { return compose("AND", ps) }

// Or combines predicates with OR.
func Or(ps ...*P) *P { return compose("OR", ps) }

// Not negates a predicate.
func Not(p *P) *P {
	return &P{build: func(b *Builder) {
		b.WriteString("NOT (")
		p.render(b)
		b.WriteByte(')')
	}}
}
