package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadejg/zxorm-sqlcipher/schema"
)

type user struct {
	ID int64
}

type pet struct {
	ID       int64
	OwnerID  int64
	FriendID int64
}

func userTable() *schema.Table[user] {
	return schema.NewTable("user",
		schema.Column("id", schema.Ptr(func(r *user) *int64 { return &r.ID }), schema.PrimaryKey()),
	)
}

func petTable() *schema.Table[pet] {
	return schema.NewTable("pet",
		schema.Column("id", schema.Ptr(func(r *pet) *int64 { return &r.ID }), schema.PrimaryKey()),
		schema.Column("owner_id", schema.Ptr(func(r *pet) *int64 { return &r.OwnerID }),
			schema.References("user", "id", schema.NoAction, schema.Cascade)),
	)
}

func TestNewValidatesTargets(t *testing.T) {
	t.Parallel()
	_, err := New(userTable(), petTable())
	require.NoError(t, err)

	// Foreign key against an unregistered table.
	_, err = New(petTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown table "user"`)

	// Foreign key against a missing column.
	bad := schema.NewTable("pet",
		schema.Column("id", schema.Ptr(func(r *pet) *int64 { return &r.ID }), schema.PrimaryKey()),
		schema.Column("owner_id", schema.Ptr(func(r *pet) *int64 { return &r.OwnerID }),
			schema.References("user", "uid", schema.NoAction, schema.NoAction)),
	)
	_, err = New(userTable(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "user"."uid"`)

	// Duplicate table names.
	_, err = New(userTable(), userTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")
}

func TestResolveUniqueEdge(t *testing.T) {
	t.Parallel()
	g, err := New(userTable(), petTable())
	require.NoError(t, err)

	// Joining pet from user traverses the foreign key backwards.
	e, err := g.Resolve([]string{"user"}, "pet")
	require.NoError(t, err)
	assert.Equal(t, Edge{Table: "user", Column: "id", RefTable: "pet", RefColumn: "owner_id"}, e)

	// Joining user from pet traverses it forwards.
	e, err = g.Resolve([]string{"pet"}, "user")
	require.NoError(t, err)
	assert.Equal(t, Edge{Table: "pet", Column: "owner_id", RefTable: "user", RefColumn: "id"}, e)
}

func TestResolveNoRelation(t *testing.T) {
	t.Parallel()
	type tag struct{ ID int64 }
	tags := schema.NewTable("tag",
		schema.Column("id", schema.Ptr(func(r *tag) *int64 { return &r.ID }), schema.PrimaryKey()),
	)
	g, err := New(userTable(), petTable(), tags)
	require.NoError(t, err)

	_, err = g.Resolve([]string{"user"}, "tag")
	require.Error(t, err)
	assert.True(t, IsNoRelation(err))
	assert.False(t, IsAmbiguousRelation(err))
}

func TestResolveAmbiguous(t *testing.T) {
	t.Parallel()
	// Two foreign keys relate pet to user; a bare join cannot pick one.
	two := schema.NewTable("pet",
		schema.Column("id", schema.Ptr(func(r *pet) *int64 { return &r.ID }), schema.PrimaryKey()),
		schema.Column("owner_id", schema.Ptr(func(r *pet) *int64 { return &r.OwnerID }),
			schema.References("user", "id", schema.NoAction, schema.Cascade)),
		schema.Column("friend_id", schema.Ptr(func(r *pet) *int64 { return &r.FriendID }),
			schema.References("user", "id", schema.NoAction, schema.SetNull)),
	)
	g, err := New(userTable(), two)
	require.NoError(t, err)

	_, err = g.Resolve([]string{"user"}, "pet")
	require.Error(t, err)
	assert.True(t, IsAmbiguousRelation(err))
	assert.Contains(t, err.Error(), "explicit field-pair join")
}

func TestResolveUnknownTarget(t *testing.T) {
	t.Parallel()
	g, err := New(userTable())
	require.NoError(t, err)
	_, err = g.Resolve([]string{"user"}, "ghost")
	assert.Error(t, err)
}
