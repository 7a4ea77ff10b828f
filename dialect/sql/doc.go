// Package sql provides the SQL text assembly layer: statement builders, the
// predicate tree, and small driver-level utilities.
//
// # Builders
//
//   - Builder: low-level text builder with backtick identifier quoting and
//     ordered `?` placeholder/argument accumulation
//   - Selector: SELECT builder with joins, predicates, grouping, ordering
//     and limits, rendered in fixed grammar order
//   - DeleteBuilder: DELETE builder (structurally join-free)
//   - InsertBuilder: INSERT builder with multi-row VALUES support
//   - UpdateBuilder: UPDATE builder
//
// Every builder's Query method is a pure function of its clause list: the
// text and the left-to-right argument order are fully determined by the
// order clauses were composed.
//
// # Predicates
//
//	sql.EQ(sql.C("name"), "john")     // `name` = ?
//	sql.Like(sql.C("name"), "jo%")    // `name` LIKE ?
//	sql.In(sql.C("id"), 1, 2, 3)      // `id` IN (?, ?, ?)
//	sql.IsNull(sql.C("deleted_at"))   // `deleted_at` IS NULL
//	sql.And(p1, p2)                   // (p1) AND (p2)
//	sql.Not(p)                        // NOT (p)
//
// Column references carry an optional table qualifier that is rendered only
// in joined statements:
//
//	sql.T("users", "id")              // `users`.`id` when the query joins
//
// # Utilities
//
// IsConstraintError and its siblings classify engine errors reported by the
// SQLite driver. Stats wraps an ExecQuerier with execution statistics and
// slow-statement detection.
package sql
