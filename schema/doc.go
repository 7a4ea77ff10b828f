// Package schema describes how record types map onto relational tables.
//
// Records stay plain data: the mapping is carried entirely by external
// descriptors, built once at program build time, so no record ever has to
// implement an interface or embed a base type.
//
// # Declaring tables
//
//	type User struct {
//	    ID   int64
//	    Name string
//	}
//
//	var (
//	    UserID   = schema.Column("id", schema.Ptr(func(u *User) *int64 { return &u.ID }), schema.PrimaryKey())
//	    UserName = schema.Column("name", schema.Ptr(func(u *User) *string { return &u.Name }))
//	    Users    = schema.NewTable("users", UserID, UserName)
//	)
//
// Fields that are not directly addressable bind through a getter/setter
// pair instead; every later stage treats the two capabilities uniformly:
//
//	schema.Column("name", schema.GetSet((*User).GetName, (*User).SetName))
//
// # Constraints
//
// Columns are NOT NULL unless declared Nullable. PRIMARY KEY and UNIQUE
// take a conflict policy, foreign keys take a referenced (table, column)
// pair with ON UPDATE / ON DELETE actions:
//
//	schema.Column("owner_id", acc,
//	    schema.References("users", "id", schema.Cascade, schema.Restrict))
//
// # Field references
//
// A declared column doubles as the typed field reference for that column:
// it builds predicates (EQ, Like, In, IsNull, ...), ordering and grouping
// keys, and explicit join conditions.
package schema
