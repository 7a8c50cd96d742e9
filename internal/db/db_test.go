package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/campusdata/internal/config"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver string
		want   Dialect
	}{
		{config.DriverPgx, Postgres},
		{config.DriverPostgres, Postgres},
		{config.DriverMySQL, MySQL},
		{config.DriverSQLite, SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := DialectFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Returning, got.Returning)
		})
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q, err := Postgres.Rebind("SELECT * FROM students WHERE age > ? AND name = ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM students WHERE age > $1 AND name = $2", q)

	q, err = MySQL.Rebind("SELECT 1 WHERE ? = ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 WHERE ? = ?", q)
}

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "open.db")
	cfg.Database.MaxOpenConns = 2
	cfg.Database.ConnMaxLifetime = "1m"

	database, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	assert.Equal(t, SQLite.Name, database.Dialect.Name)

	var fk int
	require.NoError(t, database.DB.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}
