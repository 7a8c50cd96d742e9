package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/yigit/campusdata/internal/config"
	"github.com/yigit/campusdata/internal/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database is an opened store together with the dialect its statements use
type Database struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open opens the persistence unit described by cfg and verifies the connection
func Open(cfg *config.Config) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dialect, err := DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	var sqlDB *sql.DB
	switch cfg.Database.Driver {
	case config.DriverPgx:
		connConfig, err := pgx.ParseConfig(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to parse pgx config: %w", err)
		}
		sqlDB = stdlib.OpenDB(*connConfig)
	default:
		sqlDB, err = sql.Open(cfg.Database.Driver, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
		}
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	logger.Info().
		Str("unit", cfg.Database.Unit).
		Str("driver", cfg.Database.Driver).
		Msg("Database connection established")

	return &Database{DB: sqlDB, Dialect: dialect}, nil
}

// Close closes the underlying pool
func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Dialect captures the statement differences between supported stores
type Dialect struct {
	Name        string
	Placeholder squirrel.PlaceholderFormat
	// Returning reports whether INSERT ... RETURNING id is available;
	// otherwise the generated key comes from LastInsertId.
	Returning bool
}

var (
	Postgres = Dialect{Name: "postgres", Placeholder: squirrel.Dollar, Returning: true}
	MySQL    = Dialect{Name: "mysql", Placeholder: squirrel.Question}
	SQLite   = Dialect{Name: "sqlite", Placeholder: squirrel.Question, Returning: true}
)

// DialectFor maps a configured driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPgx, config.DriverPostgres:
		return Postgres, nil
	case config.DriverMySQL:
		return MySQL, nil
	case config.DriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Builder returns a squirrel statement builder using the dialect's placeholders
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// Rebind rewrites a statement written with ? placeholders for this dialect
func (d Dialect) Rebind(query string) (string, error) {
	if d.Placeholder == nil {
		return query, nil
	}
	return d.Placeholder.ReplacePlaceholders(query)
}
