package database_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-starter/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Body          string `bun:"body,notnull"`
}

func newMemoryClient(t *testing.T) *database.Client {
	t.Helper()
	client, err := database.New("sqlite::memory:", database.WithMaxConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw    string
		driver database.Driver
		dsn    string
	}{
		{raw: "postgres://app:pw@localhost:5432/app", driver: database.DriverPostgres, dsn: "postgres://app:pw@localhost:5432/app"},
		{raw: "postgresql://localhost/app", driver: database.DriverPostgres, dsn: "postgresql://localhost/app"},
		{raw: "sqlite::memory:", driver: database.DriverSQLite, dsn: ":memory:"},
		{raw: "sqlite:///tmp/app.db", driver: database.DriverSQLite, dsn: "/tmp/app.db"},
		{raw: "file:app.db?cache=shared", driver: database.DriverSQLite, dsn: "file:app.db?cache=shared"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			driver, dsn, err := database.ParseURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestParseURLRejectsUnknownScheme(t *testing.T) {
	_, _, err := database.ParseURL("mysql://localhost/app")
	assert.ErrorIs(t, err, database.ErrUnsupportedDriver)
	assert.NotContains(t, err.Error(), "source:")

	_, err = database.New("redis://localhost")
	assert.Error(t, err)
}

func TestDBIsLazyAndShared(t *testing.T) {
	client := newMemoryClient(t)
	assert.Equal(t, database.DriverSQLite, client.Driver())

	var (
		wg      sync.WaitGroup
		handles = make([]*bun.DB, 8)
	)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := client.DB()
			assert.NoError(t, err)
			handles[i] = db
		}(i)
	}
	wg.Wait()

	for _, h := range handles[1:] {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, 1, handles[0].DB.Stats().MaxOpenConnections)
}

func TestMemorySQLiteKeepsSingleConnection(t *testing.T) {
	ctx := context.Background()
	client, err := database.New("sqlite::memory:", database.WithMaxConns(10))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Migrate(ctx, (*note)(nil)))
	db := client.MustDB()
	assert.Equal(t, 1, db.DB.Stats().MaxOpenConnections)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.NewSelect().Model((*note)(nil)).Count(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestFileSQLiteHonoursMaxConns(t *testing.T) {
	client, err := database.New("sqlite://"+t.TempDir()+"/app.db", database.WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 4, client.MustDB().DB.Stats().MaxOpenConnections)
}

func TestMigrateCreatesTablesIdempotently(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t)

	require.NoError(t, client.Migrate(ctx, (*note)(nil)))
	require.NoError(t, client.Migrate(ctx, (*note)(nil)))

	db := client.MustDB()
	_, err := db.NewInsert().Model(&note{Body: "hello"}).Exec(ctx)
	require.NoError(t, err)

	count, err := db.NewSelect().Model((*note)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPing(t *testing.T) {
	client := newMemoryClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestCloseWithoutOpenAndAfterClose(t *testing.T) {
	client, err := database.New("sqlite::memory:")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.DB()
	assert.ErrorIs(t, err, database.ErrClosed)
}
