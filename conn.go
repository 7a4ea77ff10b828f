package zxorm

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // default embedded engine

	"github.com/tadejg/zxorm-sqlcipher/dialect"
	sqlx "github.com/tadejg/zxorm-sqlcipher/dialect/sql"
	"github.com/tadejg/zxorm-sqlcipher/graph"
	"github.com/tadejg/zxorm-sqlcipher/schema"
)

// Conn owns one engine handle and the prepared-statement cache, and is the
// entry point every compiled query is dispatched through. A Conn is meant
// to be used from one goroutine; it performs no internal locking.
type Conn struct {
	db     *stdsql.DB
	conn   *stdsql.Conn
	eq     dialect.ExecQuerier
	graph  *graph.Graph
	order  []schema.Info
	tables map[string]schema.Info
	cache  *stmtCache
	log    *slog.Logger
	stats  *sqlx.StatsExecQuerier
	closed bool
}

type options struct {
	driverName string
	key        string
	logger     *slog.Logger
	stats      bool
	statsOpts  []sqlx.StatsOption
}

// Option configures Open.
type Option func(*options)

// WithDriverName selects the database/sql driver to open the file with.
// The default is the embedded modernc driver ("sqlite"); pass an
// SQLCipher-capable driver name to use encrypted databases.
func WithDriverName(name string) Option {
	return func(o *options) { o.driverName = name }
}

// WithKey sets the database encryption passphrase, applied as `PRAGMA key`
// immediately after opening. It only has an effect with an
// SQLCipher-capable driver.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// WithLogger enables debug logging of every statement through the given
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStats enables statement statistics collection, retrievable via
// Conn.Stats.
func WithStats(opts ...sqlx.StatsOption) Option {
	return func(o *options) {
		o.stats = true
		o.statsOpts = opts
	}
}

// Open opens (creating if necessary) the database at path and binds the
// given table set to it. The table set is validated before the engine is
// touched: duplicate columns, multiple primary keys and unknown
// foreign-key targets all fail here. Foreign-key enforcement is switched
// on for the session.
func Open(ctx context.Context, path string, tables []schema.Info, opts ...Option) (*Conn, error) {
	o := options{driverName: dialect.SQLite}
	for _, opt := range opts {
		opt(&o)
	}
	if len(tables) == 0 {
		return nil, &ValidationError{Name: "connection", Err: errors.New("at least one table is required")}
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, &ValidationError{Name: "table " + t.Name(), Err: err}
		}
	}
	g, err := graph.New(tables...)
	if err != nil {
		return nil, &ValidationError{Name: "connection", Err: err}
	}
	db, err := stdsql.Open(o.driverName, path)
	if err != nil {
		return nil, fmt.Errorf("zxorm: open %q: %w", path, err)
	}
	// One engine handle per connection: cap the pool and pin a session so
	// every statement, pragma and transaction shares it.
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("zxorm: open %q: %w", path, err)
	}
	c := &Conn{
		db:     db,
		conn:   conn,
		eq:     conn,
		graph:  g,
		order:  tables,
		tables: make(map[string]schema.Info, len(tables)),
		cache:  newStmtCache(),
		log:    o.logger,
	}
	for _, t := range tables {
		c.tables[t.Name()] = t
	}
	if o.stats {
		c.stats = sqlx.Stats(c.eq, o.statsOpts...)
		c.eq = c.stats
	}
	if o.logger != nil {
		c.eq = dialect.Debug(c.eq, o.logger)
	}
	if o.key != "" {
		quoted := strings.ReplaceAll(o.key, "'", "''")
		if _, err := c.eq.ExecContext(ctx, "PRAGMA key = '"+quoted+"'"); err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, fmt.Errorf("zxorm: apply key: %w", err)
		}
	}
	if err := c.SetForeignKeys(ctx, true); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close finalizes every cached statement and tears down the engine handle.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Join(c.cache.Close(), c.conn.Close(), c.db.Close())
}

// Stats returns the collected statement statistics, or nil when WithStats
// was not set.
func (c *Conn) Stats() *sqlx.QueryStats {
	if c.stats == nil {
		return nil
	}
	return c.stats.Stats()
}

// table returns the registered descriptor for name.
func (c *Conn) table(name string) (schema.Info, error) {
	if c.closed {
		return nil, ErrClosed
	}
	t, ok := c.tables[name]
	if !ok {
		return nil, &ValidationError{
			Name: "table " + name,
			Err:  errors.New("not registered with this connection"),
		}
	}
	return t, nil
}

// CreateTables creates every registered table, in registration order,
// inside one transaction.
func (c *Conn) CreateTables(ctx context.Context, ifNotExists bool) error {
	if c.closed {
		return ErrClosed
	}
	return c.Transaction(ctx, func(ctx context.Context) error {
		for _, t := range c.order {
			if _, err := c.eq.ExecContext(ctx, t.CreateQuery(ifNotExists)); err != nil {
				return mutationErr(t.Name(), "create", err)
			}
		}
		return nil
	})
}

// CountTables returns the number of tables present in the database file.
func (c *Conn) CountTables(ctx context.Context) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	rows, err := c.eq.QueryContext(ctx, "SELECT COUNT(*) FROM sqlite_schema WHERE type = 'table'")
	if err != nil {
		return 0, queryErr("sqlite_schema", "count", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, queryErr("sqlite_schema", "count", err)
		}
	}
	return n, rows.Err()
}

// Truncate deletes every row of the given table.
func (c *Conn) Truncate(ctx context.Context, t schema.Info) error {
	if _, err := c.table(t.Name()); err != nil {
		return err
	}
	_, err := c.eq.ExecContext(ctx, "DELETE FROM "+t.Name())
	return mutationErr(t.Name(), "truncate", err)
}

// SetForeignKeys toggles foreign-key enforcement for the session.
func (c *Conn) SetForeignKeys(ctx context.Context, on bool) error {
	if c.closed {
		return ErrClosed
	}
	pragma := "PRAGMA foreign_keys = OFF"
	if on {
		pragma = "PRAGMA foreign_keys = ON"
	}
	if _, err := c.eq.ExecContext(ctx, pragma); err != nil {
		return fmt.Errorf("zxorm: set foreign keys: %w", err)
	}
	return nil
}

// Transaction runs fn inside BEGIN/COMMIT on the connection's session,
// rolling back when fn returns an error. Transactions do not nest; the
// engine's native capability is all there is.
func (c *Conn) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.closed {
		return ErrClosed
	}
	if _, err := c.eq.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("zxorm: begin: %w", err)
	}
	if err := fn(ctx); err != nil {
		if _, rerr := c.eq.ExecContext(ctx, "ROLLBACK TRANSACTION"); rerr != nil {
			return errors.Join(err, fmt.Errorf("zxorm: rollback: %w", rerr))
		}
		return err
	}
	if _, err := c.eq.ExecContext(ctx, "COMMIT TRANSACTION"); err != nil {
		return fmt.Errorf("zxorm: commit: %w", err)
	}
	return nil
}
