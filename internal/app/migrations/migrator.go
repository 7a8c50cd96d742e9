package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/yigit/campusdata/internal/db"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

//go:embed sql/*.sql
var schemas embed.FS

// SchemaVersion identifies the embedded schema in schema_migrations
const SchemaVersion = "001"

// Migrator creates the campus tables when they are missing. It is a
// bootstrap for development and tests, not a versioned migration tool.
type Migrator struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewMigrator creates a new migrator
func NewMigrator(database *db.Database) *Migrator {
	return &Migrator{
		db:      database.DB,
		dialect: database.Dialect,
	}
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := m.db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// isMigrationApplied checks if a specific migration has already been applied
func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	query, args, err := m.dialect.Builder().
		Select("COUNT(*)").From("schema_migrations").
		Where("version = ?", version).
		ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return n > 0, nil
}

// Statements returns the DDL statements of the embedded schema for the
// dialect, in execution order
func (m *Migrator) Statements() ([]string, error) {
	content, err := schemas.ReadFile("sql/" + m.dialect.Name + ".sql")
	if err != nil {
		return nil, fmt.Errorf("no schema for dialect %s: %w", m.dialect.Name, err)
	}
	var stmts []string
	for _, part := range strings.Split(string(content), ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}

// Migrate creates missing tables and records the schema version. Applying
// it twice is a no-op.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return err
	}

	applied, err := m.isMigrationApplied(ctx, SchemaVersion)
	if err != nil {
		return err
	}
	if applied {
		logger.Debug().Str("version", SchemaVersion).Msg("Schema already applied, skipping")
		return nil
	}

	stmts, err := m.Statements()
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error occurred during schema creation: %w", err)
		}
	}

	record, args, err := m.dialect.Builder().
		Insert("schema_migrations").Columns("version", "applied_at").
		Values(SchemaVersion, time.Now().UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info().
		Str("version", SchemaVersion).
		Str("dialect", m.dialect.Name).
		Int("statements", len(stmts)).
		Msg("Schema created")
	return nil
}
