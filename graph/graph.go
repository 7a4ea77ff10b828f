// Package graph resolves joins over the schema's foreign-key graph.
//
// Nodes are tables, edges are declared foreign keys. Edges are traversable
// in both directions, since either side of a foreign key may be the "many"
// side of a join. A bare join against a target table resolves to the unique
// edge connecting it to the already-reachable tables; zero edges or more
// than one edge is a composition error, reported before any SQL is
// rendered.
package graph

import (
	"errors"
	"fmt"

	"github.com/tadejg/zxorm-sqlcipher/schema"
)

// Edge is one traversable foreign-key edge, oriented from an
// already-reachable table to the join target.
type Edge struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

// NoRelationError reports a bare join with no foreign key connecting the
// target to the reachable tables.
type NoRelationError struct {
	Target string
}

func (e *NoRelationError) Error() string {
	return fmt.Sprintf("graph: no relation found between %q and already-joined tables", e.Target)
}

// AmbiguousRelationError reports a bare join with more than one candidate
// foreign key.
type AmbiguousRelationError struct {
	Target string
	Count  int
}

func (e *AmbiguousRelationError) Error() string {
	return fmt.Sprintf("graph: ambiguous relation for %q (%d candidate foreign keys); use an explicit field-pair join", e.Target, e.Count)
}

// IsNoRelation reports whether the error is a NoRelationError.
func IsNoRelation(err error) bool {
	var e *NoRelationError
	return errors.As(err, &e)
}

// IsAmbiguousRelation reports whether the error is an AmbiguousRelationError.
func IsAmbiguousRelation(err error) bool {
	var e *AmbiguousRelationError
	return errors.As(err, &e)
}

// Graph is the foreign-key graph over a connection's table set, built once
// at connection construction and immutable afterwards.
type Graph struct {
	tables map[string]schema.Info
	// adjacency: every foreign key appears under both of its endpoints.
	edges map[string][]edge
}

// edge is a declared foreign key, stored undirected.
type edge struct {
	fromTable  string
	fromColumn string
	toTable    string
	toColumn   string
}

// New builds the graph and validates the table set: table names must be
// unique and every foreign key must target a known (table, column) pair.
func New(tables ...schema.Info) (*Graph, error) {
	g := &Graph{
		tables: make(map[string]schema.Info, len(tables)),
		edges:  make(map[string][]edge),
	}
	for _, t := range tables {
		if _, dup := g.tables[t.Name()]; dup {
			return nil, fmt.Errorf("graph: duplicate table name %q", t.Name())
		}
		g.tables[t.Name()] = t
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys() {
			target, ok := g.tables[fk.RefTable]
			if !ok {
				return nil, fmt.Errorf("graph: table %q column %q references unknown table %q",
					t.Name(), fk.Column, fk.RefTable)
			}
			if !hasColumn(target, fk.RefColumn) {
				return nil, fmt.Errorf("graph: table %q column %q references unknown column %q.%q",
					t.Name(), fk.Column, fk.RefTable, fk.RefColumn)
			}
			e := edge{
				fromTable:  t.Name(),
				fromColumn: fk.Column,
				toTable:    fk.RefTable,
				toColumn:   fk.RefColumn,
			}
			g.edges[e.fromTable] = append(g.edges[e.fromTable], e)
			if e.toTable != e.fromTable {
				g.edges[e.toTable] = append(g.edges[e.toTable], e)
			}
		}
	}
	return g, nil
}

func hasColumn(t schema.Info, name string) bool {
	for i := 0; i < t.NumColumns(); i++ {
		if t.ColumnName(i) == name {
			return true
		}
	}
	return false
}

// HasTable reports whether the graph contains the named table.
func (g *Graph) HasTable(name string) bool {
	_, ok := g.tables[name]
	return ok
}

// Table returns the descriptor of the named table.
func (g *Graph) Table(name string) (schema.Info, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// Resolve finds the unique foreign-key edge connecting target to any of the
// reachable tables and returns it oriented reachable-side first. The search
// scans the target's adjacency list once, so it terminates even on cyclic
// schemas.
func (g *Graph) Resolve(reachable []string, target string) (Edge, error) {
	if !g.HasTable(target) {
		return Edge{}, fmt.Errorf("graph: unknown table %q", target)
	}
	in := make(map[string]bool, len(reachable))
	for _, r := range reachable {
		in[r] = true
	}
	var (
		found Edge
		n     int
	)
	for _, e := range g.edges[target] {
		switch {
		case e.fromTable == target && in[e.toTable]:
			found = Edge{Table: e.toTable, Column: e.toColumn, RefTable: target, RefColumn: e.fromColumn}
			n++
		case e.toTable == target && in[e.fromTable]:
			found = Edge{Table: e.fromTable, Column: e.fromColumn, RefTable: target, RefColumn: e.toColumn}
			n++
		}
	}
	switch n {
	case 0:
		return Edge{}, &NoRelationError{Target: target}
	case 1:
		return found, nil
	default:
		return Edge{}, &AmbiguousRelationError{Target: target, Count: n}
	}
}
