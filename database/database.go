package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// DefaultMaxConns caps the pool when no limit is configured.
const DefaultMaxConns = 10

// Driver identifies the SQL backend selected from the connection URL.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database URL scheme", errors.CategoryBadInput).
	WithTextCode("DB_UNSUPPORTED_DRIVER")

var ErrClosed = errors.New("database client is closed", errors.CategoryOperation).
	WithTextCode("DB_CLOSED")

// Option configures a Client.
type Option func(*Client)

// WithMaxConns sets the pool size.
func WithMaxConns(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConns = n
		}
	}
}

// WithQueryLogging installs bundebug on the handle.
func WithQueryLogging(enabled bool) Option {
	return func(c *Client) {
		c.debug = enabled
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client owns the connection pool. The pool is opened on the first call
// to DB and shared by every caller after that.
type Client struct {
	dsn      string
	driver   Driver
	maxConns int
	debug    bool
	logger   Logger

	once   sync.Once
	mu     sync.Mutex
	db     *bun.DB
	err    error
	closed bool
}

// New validates the URL and returns a Client. No connection is made.
func New(databaseURL string, opts ...Option) (*Client, error) {
	driver, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		dsn:      dsn,
		driver:   driver,
		maxConns: DefaultMaxConns,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	// every connection to an in-memory sqlite database gets its own empty
	// database, so the pool must stay at one.
	if driver == DriverSQLite && isMemoryDSN(dsn) {
		c.maxConns = 1
	}

	return c, nil
}

// ParseURL maps a connection URL to a driver and the DSN that driver expects.
//
//	postgres://u:p@host/db   -> postgres, same URL
//	sqlite:///tmp/app.db     -> sqlite, /tmp/app.db
//	sqlite::memory:          -> sqlite, :memory:
//	file:app.db?cache=shared -> sqlite, same URL
func ParseURL(raw string) (Driver, string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrap(err, errors.CategoryBadInput, "invalid database URL")
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, raw, nil
	case "file":
		return DriverSQLite, raw, nil
	case "sqlite", "sqlite3":
		dsn := strings.TrimPrefix(raw, u.Scheme+":")
		dsn = strings.TrimPrefix(dsn, "//")
		if dsn == "" {
			dsn = ":memory:"
		}
		return DriverSQLite, dsn, nil
	default:
		return "", "", ErrUnsupportedDriver
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (c *Client) Driver() Driver {
	return c.driver
}

// DB returns the shared handle, opening the pool on first use.
func (c *Client) DB() (*bun.DB, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	c.once.Do(func() {
		db, err := c.open()
		c.mu.Lock()
		c.db, c.err = db, err
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db, c.err
}

// MustDB panics when the pool cannot be opened.
func (c *Client) MustDB() *bun.DB {
	db, err := c.DB()
	if err != nil {
		panic(err)
	}
	return db
}

func (c *Client) open() (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
	)

	switch c.driver {
	case DriverPostgres:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(c.dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite:
		var err error
		sqldb, err = sql.Open(sqliteshim.ShimName, c.dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, ErrUnsupportedDriver
	}

	sqldb.SetMaxOpenConns(c.maxConns)
	sqldb.SetMaxIdleConns(c.maxConns)

	if c.debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	c.logger.Info("database pool ready", "driver", c.driver, "max_conns", c.maxConns)
	return db, nil
}

// Ping opens the pool if needed and checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "database ping failed")
	}
	return nil
}

// Migrate creates the tables for models that do not exist yet.
func (c *Client) Migrate(ctx context.Context, models ...any) error {
	db, err := c.DB()
	if err != nil {
		return err
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return errors.Wrap(err, errors.CategoryInternal, "failed to create table").
					WithMetadata(map[string]any{
						"model": fmt.Sprintf("%T", model),
					})
			}
		}
		return nil
	})
}

// Close releases the pool. A client that never opened a pool closes cleanly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
