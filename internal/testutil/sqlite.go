// Package testutil opens throwaway SQLite stores with the campus schema.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yigit/campusdata/internal/app/migrations"
	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/config"
	"github.com/yigit/campusdata/internal/db"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// MaxSessions is the connection limit of test stores. Sessions opened with
// Session hold their connection until the test ends.
const MaxSessions = 32

// acquireTimeout bounds how long Session waits for a free connection, so an
// exhausted pool fails the test instead of hanging it
const acquireTimeout = 5 * time.Second

func init() {
	logger.Configure(logger.Config{Level: logger.Disabled})
}

// OpenSQLite opens a fresh file database under t.TempDir with the schema
// created. It is closed when the test ends.
func OpenSQLite(t testing.TB) *db.Database {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Unit = "test"
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "campus.db")
	cfg.Database.MaxOpenConns = MaxSessions
	cfg.Database.MaxIdleConns = MaxSessions
	cfg.Database.ConnMaxLifetime = "5m"

	database, err := db.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.NewMigrator(database).Migrate(context.Background()))
	return database
}

// NewFactory returns a session factory over a fresh SQLite store
func NewFactory(t testing.TB, opts ...models.MappingOption) *orm.Factory {
	t.Helper()

	reg, err := models.NewRegistry(opts...)
	require.NoError(t, err)
	f, err := orm.NewFactory("test", OpenSQLite(t), reg)
	require.NoError(t, err)
	return f
}

// Session opens a session closed at the end of the test
func Session(t testing.TB, f *orm.Factory) *orm.Session {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()
	s, err := f.OpenSession(ctx)
	require.NoError(t, err, "no free connection within %s", acquireTimeout)
	t.Cleanup(func() { s.Close() })
	return s
}
