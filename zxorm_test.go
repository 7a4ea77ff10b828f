package zxorm

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
	"github.com/tadejg/zxorm-sqlcipher/schema"
)

type userModel struct {
	ID   int64
	Name string
	Age  int64
}

type petModel struct {
	ID      int64
	Name    string
	OwnerID int64
}

type userSchema struct {
	ID   *schema.Col[userModel, int64]
	Name *schema.Col[userModel, string]
	Age  *schema.Col[userModel, int64]
	T    *schema.Table[userModel]
}

func newUserSchema() *userSchema {
	s := &userSchema{
		ID:   schema.Column("id", schema.Ptr(func(u *userModel) *int64 { return &u.ID }), schema.PrimaryKey()),
		Name: schema.Column("name", schema.Ptr(func(u *userModel) *string { return &u.Name })),
		Age:  schema.Column("age", schema.Ptr(func(u *userModel) *int64 { return &u.Age })),
	}
	s.T = schema.NewTable("user", s.ID, s.Name, s.Age)
	return s
}

type petSchema struct {
	ID      *schema.Col[petModel, int64]
	Name    *schema.Col[petModel, string]
	OwnerID *schema.Col[petModel, int64]
	T       *schema.Table[petModel]
}

func newPetSchema() *petSchema {
	s := &petSchema{
		ID:   schema.Column("id", schema.Ptr(func(p *petModel) *int64 { return &p.ID }), schema.PrimaryKey()),
		Name: schema.Column("name", schema.Ptr(func(p *petModel) *string { return &p.Name })),
		OwnerID: schema.Column("owner_id", schema.Ptr(func(p *petModel) *int64 { return &p.OwnerID }),
			schema.References("user", "id", schema.NoAction, schema.Cascade)),
	}
	s.T = schema.NewTable("pet", s.ID, s.Name, s.OwnerID)
	return s
}

// openTest opens an in-memory database with the user and pet tables
// created.
func openTest(t *testing.T) (*Conn, *userSchema, *petSchema) {
	t.Helper()
	ctx := context.Background()
	users, pets := newUserSchema(), newPetSchema()
	c, err := Open(ctx, ":memory:", []schema.Info{users.T, pets.T})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.CreateTables(ctx, false))
	return c, users, pets
}

func TestOpenValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := Open(ctx, ":memory:", nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// Foreign key against a table missing from the set.
	pets := newPetSchema()
	_, err = Open(ctx, ":memory:", []schema.Info{pets.T})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// Duplicate table names.
	_, err = Open(ctx, ":memory:", []schema.Info{newUserSchema().T, newUserSchema().T})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestInsertFindRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	rec := &userModel{Name: "a8m", Age: 30}
	require.NoError(t, Insert(ctx, c, users.T, rec))
	assert.NotZero(t, rec.ID, "generated row id is written back")

	got, err := Find[userModel](ctx, c, users.T, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, got)

	// A missing row is an empty result, not an error.
	got, err = Find[userModel](ctx, c, users.T, int64(9999))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	rec := &userModel{Name: "a8m", Age: 30}
	require.NoError(t, Insert(ctx, c, users.T, rec))
	rec.Name = "nati"
	rec.Age = 31
	require.NoError(t, Update(ctx, c, users.T, rec))

	got, err := Find[userModel](ctx, c, users.T, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDeleteByKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	rec := &userModel{Name: "a8m"}
	require.NoError(t, Insert(ctx, c, users.T, rec))
	require.NoError(t, DeleteByKey(ctx, c, users.T, rec.ID))

	got, err := Find[userModel](ctx, c, users.T, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing row is a no-op.
	require.NoError(t, DeleteByKey(ctx, c, users.T, rec.ID))
}

func TestFirstLast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	first, err := First(ctx, c, users.T)
	require.NoError(t, err)
	assert.Nil(t, first, "empty table yields no record")

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: name}))
	}
	first, err = First(ctx, c, users.T)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "a", first.Name)

	last, err := Last(ctx, c, users.T)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "c", last.Name)
}

func TestInsertMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	recs := make([]*userModel, 25)
	for i := range recs {
		recs[i] = &userModel{Name: "user", Age: int64(i)}
	}
	require.NoError(t, InsertMany(ctx, c, users.T, recs))

	n, err := Select(c, users.T).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	// Explicit batch size, including a remainder batch.
	require.NoError(t, InsertMany(ctx, c, users.T, recs[:7], 3))
	n, err = Select(c, users.T).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(32), n)

	require.NoError(t, InsertMany(ctx, c, users.T, nil))
	err = InsertMany(ctx, c, users.T, recs, 0)
	assert.True(t, IsValidation(err))
}

func TestSelectCompose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	for i, name := range []string{"ariel", "alex", "pedro"} {
		require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: name, Age: int64(20 + i)}))
	}

	got, err := Select(c, users.T).
		Where(sql.And(users.Name.Like("a%"), users.Age.GTE(20))).
		OrderBy(users.Name, sql.OrderAsc).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alex", got[0].Name)
	assert.Equal(t, "ariel", got[1].Name)

	one, err := Select(c, users.T).Where(users.Name.EQ("pedro")).One(ctx)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, int64(22), one.Age)

	one, err = Select(c, users.T).Where(users.Name.EQ("nobody")).One(ctx)
	require.NoError(t, err)
	assert.Nil(t, one)

	_, err = Select(c, users.T).Where(users.Name.EQ("nobody")).Only(ctx)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	n, err := Select(c, users.T).CountDistinct(ctx, users.Name)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCursor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: name}))
	}
	cur, err := Select(c, users.T).OrderBy(users.Name, sql.OrderAsc).Iter(ctx)
	require.NoError(t, err)
	defer cur.Close()

	var names []string
	for cur.Next() {
		names = append(names, cur.Record().Name)
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []string{"a", "b", "c"}, names)
	require.NoError(t, cur.Close())
}

func TestJoin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, pets := openTest(t)

	owner := &userModel{Name: "a8m"}
	require.NoError(t, Insert(ctx, c, users.T, owner))
	other := &userModel{Name: "nati"}
	require.NoError(t, Insert(ctx, c, users.T, other))
	require.NoError(t, Insert(ctx, c, pets.T, &petModel{Name: "pedro", OwnerID: owner.ID}))

	// Bare join resolves its condition from the single foreign key.
	got, err := Select(c, users.T).
		Join(pets.T).
		Where(pets.Name.EQ("pedro")).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a8m", got[0].Name)

	// The explicit field-pair join produces the same result.
	explicit, err := Select(c, users.T).
		JoinOn(pets.T, users.ID, pets.OwnerID).
		Where(pets.Name.EQ("pedro")).
		All(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, explicit)
}

func TestSelectJoinTuples(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, pets := openTest(t)

	owner := &userModel{Name: "a8m"}
	require.NoError(t, Insert(ctx, c, users.T, owner))
	require.NoError(t, Insert(ctx, c, pets.T, &petModel{Name: "pedro", OwnerID: owner.ID}))
	require.NoError(t, Insert(ctx, c, pets.T, &petModel{Name: "xabi", OwnerID: owner.ID}))

	rows, err := SelectJoin(c, users.T, pets.T).
		OrderBy(pets.Name, sql.OrderAsc).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a8m", rows[0].A.Name)
	assert.Equal(t, "pedro", rows[0].B.Name)
	assert.Equal(t, "xabi", rows[1].B.Name)

	row, err := SelectJoinOn(c, users.T, pets.T, users.ID, pets.OwnerID).
		Where(pets.Name.EQ("xabi")).
		One(ctx)
	require.NoError(t, err)
	require.NotNil(t, row.A)
	assert.Equal(t, owner.ID, row.B.OwnerID)
}

func TestJoinResolutionErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, pets := openTest(t)

	// No foreign key relates user to itself.
	_, err := Select(c, users.T).Join(users.T).All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// An explicit pair that does not touch the joined table is rejected
	// before any SQL is rendered.
	_, err = Select(c, users.T).JoinOn(pets.T, users.ID, users.Name).All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestJoinRepeatedTableRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, pets := openTest(t)

	// A table joins into the query once; repeating it fails composition,
	// it never reaches the engine.
	_, err := Select(c, users.T).Join(pets.T).Join(pets.T).All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = Select(c, users.T).
		JoinOn(pets.T, users.ID, pets.OwnerID).
		JoinOn(pets.T, users.ID, pets.OwnerID).
		All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// The from-table is reachable by definition and cannot be re-joined.
	_, err = Select(c, pets.T).JoinOn(users.T, pets.OwnerID, users.ID).Join(users.T).All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = SelectJoin(c, users.T, users.T).All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = SelectJoinOn(c, pets.T, pets.T, pets.OwnerID, pets.ID).All(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestDeleteQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	for _, name := range []string{"hello a", "hello b", "bye"} {
		require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: name}))
	}
	n, err := Delete(c, users.T).Where(users.Name.Like("hello %")).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := Select(c, users.T).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func TestTransactionRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	err := c.Transaction(ctx, func(ctx context.Context) error {
		if err := Insert(ctx, c, users.T, &userModel{Name: "a8m"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	n, err := Select(c, users.T).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "rolled back insert leaves no row")

	err = c.Transaction(ctx, func(ctx context.Context) error {
		return Insert(ctx, c, users.T, &userModel{Name: "nati"})
	})
	require.NoError(t, err)
	n, err = Select(c, users.T).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTruncateAndCountTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	n, err := c.CountTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: "a8m"}))
	require.NoError(t, c.Truncate(ctx, users.T))
	rows, err := Select(c, users.T).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestStatementCacheReuse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, users, _ := openTest(t)

	require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: "a"}))
	require.NoError(t, Insert(ctx, c, users.T, &userModel{Name: "b"}))
	for i := int64(1); i <= 2; i++ {
		_, err := Find[userModel](ctx, c, users.T, i)
		require.NoError(t, err)
	}
	// One insert and one find entry, however many times they ran.
	assert.Equal(t, 2, c.cache.len())

	_, err := First(ctx, c, users.T)
	require.NoError(t, err)
	_, err = Last(ctx, c, users.T)
	require.NoError(t, err)
	assert.Equal(t, 4, c.cache.len())
}

func TestConstraintViolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, pets := openTest(t)

	// Foreign-key enforcement is on: inserting a pet without its owner
	// fails with a constraint error.
	err := Insert(ctx, c, pets.T, &petModel{Name: "orphan", OwnerID: 404})
	require.Error(t, err)
	assert.True(t, IsConstraint(err))

	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "pet", me.Table)
}

func TestUnregisteredTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, _ := openTest(t)

	stray := newUserSchema()
	err := Insert(ctx, c, stray.T, &userModel{Name: "x"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestClosedConn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUserSchema()
	c, err := Open(ctx, ":memory:", []schema.Info{users.T, newPetSchema().T})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "closing twice is fine")

	err = Insert(ctx, c, users.T, &userModel{Name: "x"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.CountTables(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users, pets := newUserSchema(), newPetSchema()
	c, err := Open(ctx, ":memory:", []schema.Info{users.T, pets.T}, WithStats())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.CreateTables(ctx, false))

	_, err = Select(c, users.T).Count(ctx)
	require.NoError(t, err)

	stats := c.Stats()
	require.NotNil(t, stats)
	snap := stats.Stats()
	assert.Positive(t, snap.TotalExecs, "create tables ran through the wrapper")
	assert.Positive(t, snap.TotalQueries)
}

type docModel struct {
	ID    uuid.UUID
	Meta  map[string]string
	Title string
}

func TestCodecColumnsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := schema.UUID("id", schema.Ptr(func(d *docModel) *uuid.UUID { return &d.ID }), schema.PrimaryKey())
	meta := schema.Msgpack[docModel, map[string]string]("meta", schema.Ptr(func(d *docModel) *map[string]string { return &d.Meta }))
	title := schema.Column("title", schema.Ptr(func(d *docModel) *string { return &d.Title }))
	docs := schema.NewTable("doc", id, meta, title)

	c, err := Open(ctx, ":memory:", []schema.Info{docs})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.CreateTables(ctx, false))

	rec := &docModel{
		ID:    uuid.New(),
		Meta:  map[string]string{"lang": "en"},
		Title: "hello",
	}
	require.NoError(t, Insert(ctx, c, docs, rec))

	got, err := Select(c, docs).Where(id.EQ(rec.ID)).One(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, got)
}
