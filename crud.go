package zxorm

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"

	"github.com/tadejg/zxorm-sqlcipher/dialect/sql"
	"github.com/tadejg/zxorm-sqlcipher/schema"
)

// DefaultBatchSize is the number of rows bound per INSERT statement by
// InsertMany when no explicit batch size is given.
const DefaultBatchSize = 10

// checkTable verifies that t is the descriptor registered with c under its
// name, not a second descriptor that merely shares it.
func checkTable[T any](c *Conn, t *schema.Table[T]) error {
	reg, err := c.table(t.Name())
	if err != nil {
		return err
	}
	if reg != schema.Info(t) {
		return &ValidationError{
			Name: "table " + t.Name(),
			Err:  errors.New("descriptor differs from the one registered with this connection"),
		}
	}
	return nil
}

// execCached executes a fixed-shape statement through the connection's
// prepared-statement cache.
func (c *Conn) execCached(ctx context.Context, key stmtKey, text string, args []any) (stdsql.Result, error) {
	stmt, err := c.cache.get(ctx, c.conn, key, text)
	if err != nil {
		return nil, err
	}
	if c.log != nil {
		c.log.DebugContext(ctx, "exec cached", "query", text, "args", args)
	}
	return stmt.ExecContext(ctx, args...)
}

// queryCached runs a fixed-shape row-returning statement through the
// prepared-statement cache.
func (c *Conn) queryCached(ctx context.Context, key stmtKey, text string, args []any) (*stdsql.Rows, error) {
	stmt, err := c.cache.get(ctx, c.conn, key, text)
	if err != nil {
		return nil, err
	}
	if c.log != nil {
		c.log.DebugContext(ctx, "query cached", "query", text, "args", args)
	}
	return stmt.QueryContext(ctx, args...)
}

// Insert persists one record. When the table's primary key is a row-id
// column, the engine-assigned id is written back into the record.
func Insert[T any](ctx context.Context, c *Conn, t *schema.Table[T], rec *T) error {
	if err := checkTable(c, t); err != nil {
		return err
	}
	vals, err := t.InsertValues(rec)
	if err != nil {
		return mutationErr(t.Name(), "insert", err)
	}
	text, args, err := sql.Insert(t.Name(), t.InsertColumns()...).Values(vals...).Query()
	if err != nil {
		return mutationErr(t.Name(), "insert", err)
	}
	res, err := c.execCached(ctx, stmtKey{table: t.Name(), op: opInsert}, text, args)
	if err != nil {
		return mutationErr(t.Name(), "insert", err)
	}
	if t.HasRowID() {
		id, err := res.LastInsertId()
		if err != nil {
			return mutationErr(t.Name(), "insert", err)
		}
		t.SetRowID(rec, id)
	}
	return nil
}

// InsertMany persists records in batches inside one transaction. The batch
// size defaults to DefaultBatchSize. Batched statements bypass the cache;
// their shape depends on the batch size, and the remainder batch differs
// again. Generated row ids are not written back.
func InsertMany[T any](ctx context.Context, c *Conn, t *schema.Table[T], recs []*T, batchSize ...int) error {
	if err := checkTable(c, t); err != nil {
		return err
	}
	size := DefaultBatchSize
	if len(batchSize) > 0 {
		size = batchSize[0]
	}
	if size < 1 {
		return &ValidationError{Name: "table " + t.Name(), Err: fmt.Errorf("batch size %d is not positive", size)}
	}
	if len(recs) == 0 {
		return nil
	}
	cols := t.InsertColumns()
	return c.Transaction(ctx, func(ctx context.Context) error {
		for start := 0; start < len(recs); start += size {
			end := min(start+size, len(recs))
			ib := sql.Insert(t.Name(), cols...)
			for _, rec := range recs[start:end] {
				vals, err := t.InsertValues(rec)
				if err != nil {
					return mutationErr(t.Name(), "insert", err)
				}
				ib.Values(vals...)
			}
			text, args, err := ib.Query()
			if err != nil {
				return mutationErr(t.Name(), "insert", err)
			}
			if _, err := c.eq.ExecContext(ctx, text, args...); err != nil {
				return mutationErr(t.Name(), "insert", err)
			}
		}
		return nil
	})
}

// Update rewrites every non-primary-key column of the record's row,
// addressed by its primary key.
func Update[T any](ctx context.Context, c *Conn, t *schema.Table[T], rec *T) error {
	if err := checkTable(c, t); err != nil {
		return err
	}
	pk, ok := t.PrimaryKeyName()
	if !ok {
		return &ValidationError{Name: "table " + t.Name(), Err: errors.New("update requires a primary key")}
	}
	vals, err := t.UpdateValues(rec)
	if err != nil {
		return mutationErr(t.Name(), "update", err)
	}
	key, err := t.PrimaryKeyValue(rec)
	if err != nil {
		return mutationErr(t.Name(), "update", err)
	}
	ub := sql.Update(t.Name())
	for i, col := range t.UpdateColumns() {
		ub.Set(col, vals[i])
	}
	ub.Where(sql.EQ(sql.C(pk), key))
	text, args, err := ub.Query()
	if err != nil {
		return mutationErr(t.Name(), "update", err)
	}
	_, err = c.execCached(ctx, stmtKey{table: t.Name(), op: opUpdate}, text, args)
	return mutationErr(t.Name(), "update", err)
}

// Find fetches the record with the given primary-key value. A missing row
// is not an error; it returns (nil, nil).
func Find[T any](ctx context.Context, c *Conn, t *schema.Table[T], key any) (*T, error) {
	if err := checkTable(c, t); err != nil {
		return nil, err
	}
	pk, ok := t.PrimaryKeyName()
	if !ok {
		return nil, &ValidationError{Name: "table " + t.Name(), Err: errors.New("find requires a primary key")}
	}
	s := sql.Select(t.Selections()...).
		From(t.Name()).
		Where(sql.EQ(sql.C(pk), key)).
		Limit(1)
	return oneCached[T](ctx, c, t, stmtKey{table: t.Name(), op: opFind}, s)
}

// DeleteByKey removes the row with the given primary-key value. Deleting a
// missing row is a no-op.
func DeleteByKey[T any](ctx context.Context, c *Conn, t *schema.Table[T], key any) error {
	if err := checkTable(c, t); err != nil {
		return err
	}
	pk, ok := t.PrimaryKeyName()
	if !ok {
		return &ValidationError{Name: "table " + t.Name(), Err: errors.New("delete requires a primary key")}
	}
	text, args, err := sql.Delete(t.Name()).Where(sql.EQ(sql.C(pk), key)).Query()
	if err != nil {
		return mutationErr(t.Name(), "delete", err)
	}
	_, err = c.execCached(ctx, stmtKey{table: t.Name(), op: opDelete}, text, args)
	return mutationErr(t.Name(), "delete", err)
}

// First returns the row with the smallest primary key, or (nil, nil) when
// the table is empty.
func First[T any](ctx context.Context, c *Conn, t *schema.Table[T]) (*T, error) {
	return endpoint[T](ctx, c, t, opFirst, sql.OrderAsc)
}

// Last returns the row with the largest primary key, or (nil, nil) when
// the table is empty.
func Last[T any](ctx context.Context, c *Conn, t *schema.Table[T]) (*T, error) {
	return endpoint[T](ctx, c, t, opLast, sql.OrderDesc)
}

func endpoint[T any](ctx context.Context, c *Conn, t *schema.Table[T], o op, dir sql.Order) (*T, error) {
	if err := checkTable(c, t); err != nil {
		return nil, err
	}
	pk, ok := t.PrimaryKeyName()
	if !ok {
		return nil, &ValidationError{Name: "table " + t.Name(), Err: fmt.Errorf("%s requires a primary key", o)}
	}
	s := sql.Select(t.Selections()...).
		From(t.Name()).
		OrderBy(sql.C(pk), dir).
		Limit(1)
	return oneCached[T](ctx, c, t, stmtKey{table: t.Name(), op: o}, s)
}

// oneCached runs a cached single-row select and binds the row, if any.
func oneCached[T any](ctx context.Context, c *Conn, t *schema.Table[T], key stmtKey, s *sql.Selector) (*T, error) {
	text, args, err := s.Query()
	if err != nil {
		return nil, queryErr(t.Name(), key.op.String(), err)
	}
	rows, err := c.queryCached(ctx, key, text, args)
	if err != nil {
		return nil, queryErr(t.Name(), key.op.String(), err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, queryErr(t.Name(), key.op.String(), err)
		}
		return nil, nil
	}
	rec, err := t.ScanRow(rows.Scan)
	if err != nil {
		return nil, queryErr(t.Name(), key.op.String(), err)
	}
	return rec, rows.Close()
}
