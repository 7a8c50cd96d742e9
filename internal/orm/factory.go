package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/campusdata/internal/db"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// Factory opens sessions against one persistence unit. It is safe for
// concurrent use.
type Factory struct {
	unit     string
	db       *sql.DB
	dialect  db.Dialect
	registry *Registry
	log      zerolog.Logger
}

// NewFactory binds a registry to an opened store. The registry is built if
// it has not been already.
func NewFactory(unit string, database *db.Database, registry *Registry) (*Factory, error) {
	if database == nil || database.DB == nil {
		return nil, errors.New("database is required")
	}
	if !registry.Built() {
		if err := registry.Build(); err != nil {
			return nil, fmt.Errorf("invalid mapping: %w", err)
		}
	}
	return &Factory{
		unit:     unit,
		db:       database.DB,
		dialect:  database.Dialect,
		registry: registry,
		log:      logger.WithComponent("orm").With().Str("unit", unit).Logger(),
	}, nil
}

// Registry returns the mapping registry
func (f *Factory) Registry() *Registry { return f.registry }

// Dialect returns the store dialect
func (f *Factory) Dialect() db.Dialect { return f.dialect }

// OpenSession acquires a connection for a new session. The caller must
// Close it.
func (f *Factory) OpenSession(ctx context.Context) (*Session, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	s := newSession(f, conn)
	s.log.Debug().Msg("Session opened")
	return s, nil
}

// WithSession runs fn with a new session and always closes it, including
// when fn panics.
func (f *Factory) WithSession(ctx context.Context, fn func(s *Session) error) (err error) {
	s, err := f.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			f.log.Error().Err(cerr).Str("session", s.ID()).Msg("Failed to close session")
			if err == nil {
				err = cerr
			}
		}
	}()
	return fn(s)
}

// WithTransaction runs fn in a new session inside one transaction
func (f *Factory) WithTransaction(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	return f.WithSession(ctx, func(s *Session) error {
		return s.InTransaction(ctx, func(ctx context.Context) error {
			return fn(ctx, s)
		})
	})
}
