// Package zxorm is a statically typed query engine for embedded SQLite.
//
// Tables are declared in Go, binding record types to columns through
// accessors:
//
//	type User struct {
//		ID   int64
//		Name string
//	}
//
//	var (
//		UserID   = schema.Column[User]("id", schema.Ptr(func(u *User) *int64 { return &u.ID }), schema.PrimaryKey())
//		UserName = schema.Column[User]("name", schema.Ptr(func(u *User) *string { return &u.Name }))
//		Users    = schema.NewTable[User]("user", UserID, UserName)
//	)
//
// A Conn owns one database handle, the table set, its foreign-key graph
// and a prepared-statement cache for the fixed-shape operations (Find,
// First, Last, Insert, Update, DeleteByKey). Open-ended queries are
// composed with Select:
//
//	users, err := zxorm.Select(c, Users).
//		Where(UserName.Like("a%")).
//		OrderBy(UserID, sql.OrderAsc).
//		All(ctx)
//
// Column declarations double as typed field references, so predicates are
// checked against the field's Go type at compile time. Joins resolve their
// conditions from declared foreign keys; when more than one foreign key
// connects two tables the join must name its field pair explicitly.
//
// All query text is rendered deterministically: clauses appear in grammar
// order regardless of composition order, and bound arguments line up with
// their placeholders left to right.
package zxorm
