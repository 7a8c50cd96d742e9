package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/campusdata/internal/db"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
	"github.com/yigit/campusdata/internal/pkg/dberrors"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

type identityKey struct {
	entity string
	id     int64
}

// querier is satisfied by both *sql.Conn and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session owns one connection, at most one transaction and the set of
// attached entity instances. A Session is not safe for concurrent use.
//
// Reads run inside the active transaction when there is one and directly on
// the connection otherwise. Writes require an active transaction; a failed
// write rolls the transaction back before the error is returned, and a
// rollback restores the identifiers, versions and association deltas the
// transaction had changed in memory, then detaches every instance.
type Session struct {
	id       string
	factory  *Factory
	conn     *sql.Conn
	tx       *sql.Tx
	attached map[identityKey]Entity
	pending  int
	undo     []func()
	stmts    map[string]*sql.Stmt
	txStmts  map[string]*sql.Stmt
	closed   bool
	log      zerolog.Logger
}

func newSession(f *Factory, conn *sql.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		factory:  f,
		conn:     conn,
		attached: make(map[identityKey]Entity),
		stmts:    make(map[string]*sql.Stmt),
		log:      logger.WithSession(id).With().Str("unit", f.unit).Logger(),
	}
}

// ID returns the session identifier used in log entries
func (s *Session) ID() string { return s.id }

// Registry returns the mapping registry of the persistence unit
func (s *Session) Registry() *Registry { return s.factory.registry }

// Dialect returns the store dialect
func (s *Session) Dialect() db.Dialect { return s.factory.dialect }

// Builder returns a statement builder for the store dialect
func (s *Session) Builder() squirrel.StatementBuilderType { return s.factory.dialect.Builder() }

// Active reports whether a transaction is open
func (s *Session) Active() bool { return s.tx != nil }

// Closed reports whether Close was called
func (s *Session) Closed() bool { return s.closed }

// Begin starts a unit of work. Transactions never nest.
func (s *Session) Begin(ctx context.Context) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if s.tx != nil {
		return apperrors.ErrTransactionActive
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	s.pending = 0
	s.undo = nil
	s.txStmts = make(map[string]*sql.Stmt)
	s.log.Debug().Msg("Transaction started")
	return nil
}

// Commit makes the unit of work durable. Committing without pending changes
// succeeds.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if s.tx == nil {
		return apperrors.ErrNoActiveTransaction
	}
	tx, pending := s.tx, s.pending
	s.endTransaction()
	if err := tx.Commit(); err != nil {
		s.restore()
		s.log.Error().Err(err).Int("pending", pending).Msg("Commit failed")
		return fmt.Errorf("failed to commit transaction: %w", dberrors.Translate(err))
	}
	s.undo = nil
	s.log.Debug().Int("pending", pending).Msg("Transaction committed")
	return nil
}

// Rollback discards the unit of work
func (s *Session) Rollback(ctx context.Context) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if s.tx == nil {
		return apperrors.ErrNoActiveTransaction
	}
	return s.rollback("requested")
}

func (s *Session) rollback(reason string) error {
	tx := s.tx
	s.endTransaction()
	err := tx.Rollback()
	s.restore()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Error().Err(err).Str("reason", reason).Msg("Failed to rollback transaction")
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	s.log.Debug().Str("reason", reason).Msg("Transaction rolled back")
	return nil
}

func (s *Session) endTransaction() {
	for _, stmt := range s.txStmts {
		stmt.Close()
	}
	s.tx = nil
	s.txStmts = nil
	s.pending = 0
}

// restore replays the undo log newest first and detaches everything
func (s *Session) restore() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.undo = nil
	s.attached = make(map[identityKey]Entity)
}

// InTransaction runs fn inside the active transaction, or inside a new one
// that is committed when fn succeeds and rolled back when it fails or panics.
func (s *Session) InTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if s.tx != nil {
		return fn(ctx)
	}
	if err := s.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if s.tx != nil {
				_ = s.rollback("panic")
			}
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if s.tx != nil {
			if rbErr := s.rollback("error"); rbErr != nil {
				return fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
		return err
	}
	return s.Commit(ctx)
}

// Close rolls back an open transaction and releases the connection.
// Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	var errs []error
	if s.tx != nil {
		s.log.Warn().Msg("Closing session with an open transaction")
		errs = append(errs, s.rollback("close"))
	}
	for name, stmt := range s.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close statement %s: %w", name, err))
		}
	}
	s.stmts = nil
	s.attached = make(map[identityKey]Entity)
	s.closed = true
	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("failed to release connection: %w", err))
	}
	s.log.Debug().Msg("Session closed")
	return errors.Join(errs...)
}

// Attach makes e the managed instance for its identity. Attaching a second
// instance with the same identity replaces the first.
func (s *Session) Attach(e Entity) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	id := e.Base().ID
	if id == 0 {
		return apperrors.NewInvalidArgument("entity", "cannot attach transient %s", e.EntityName())
	}
	s.attached[identityKey{e.EntityName(), id}] = e
	return nil
}

// Detach stops managing e
func (s *Session) Detach(e Entity) {
	key := identityKey{e.EntityName(), e.Base().ID}
	if cur, ok := s.attached[key]; ok && any(cur) == any(e) {
		delete(s.attached, key)
	}
}

// Contains reports whether e itself is the attached instance for its identity
func (s *Session) Contains(e Entity) bool {
	cur, ok := s.attached[identityKey{e.EntityName(), e.Base().ID}]
	return ok && any(cur) == any(e)
}

// Lookup returns the attached instance of entity with id
func (s *Session) Lookup(entity string, id int64) (Entity, bool) {
	e, ok := s.attached[identityKey{entity, id}]
	return e, ok
}

// OnRollback records an action that undoes an in-memory change made by the
// current transaction
func (s *Session) OnRollback(fn func()) {
	if s.tx != nil {
		s.undo = append(s.undo, fn)
	}
}

func (s *Session) runner() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// Write runs fn as one write inside the active transaction. If fn fails the
// transaction is rolled back before the error is returned.
func (s *Session) Write(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if s.tx == nil {
		return apperrors.ErrNoActiveTransaction
	}
	if err := fn(ctx); err != nil {
		if rbErr := s.rollback("write failed"); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	s.pending++
	return nil
}

// Select runs a read statement
func (s *Session) Select(ctx context.Context, stmt squirrel.Sqlizer) (*sql.Rows, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	s.trace(query, args)
	rows, err := s.runner().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// exec runs a write statement; callers hold Write
func (s *Session) exec(ctx context.Context, stmt squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build statement: %w", err)
	}
	s.trace(query, args)
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, dberrors.Translate(err)
	}
	return res, nil
}

// insertReturning runs an INSERT ... RETURNING id
func (s *Session) insertReturning(ctx context.Context, stmt squirrel.Sqlizer) (int64, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}
	s.trace(query, args)
	var id int64
	if err := s.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, dberrors.Translate(err)
	}
	return id, nil
}

// Named runs a registered native query through the session's statement
// cache. The statement is prepared on first use.
func (s *Session) Named(ctx context.Context, name string, args ...any) (*sql.Rows, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}
	stmt, err := s.prepared(ctx, name)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("query", name).Int("args", len(args)).Msg("Named query")
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("named query %s failed: %w", name, err)
	}
	return rows, nil
}

func (s *Session) prepared(ctx context.Context, name string) (*sql.Stmt, error) {
	stmt, ok := s.stmts[name]
	if !ok {
		q, found := s.factory.registry.Query(name)
		if !found {
			return nil, apperrors.NewInvalidArgument("query", "no named query %q", name)
		}
		text, err := s.factory.dialect.Rebind(q.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to rebind %s: %w", name, err)
		}
		stmt, err = s.conn.PrepareContext(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		s.stmts[name] = stmt
	}
	if s.tx == nil {
		return stmt, nil
	}
	if txStmt, ok := s.txStmts[name]; ok {
		return txStmt, nil
	}
	txStmt := s.tx.StmtContext(ctx, stmt)
	s.txStmts[name] = txStmt
	return txStmt, nil
}

// PreparedCount returns the number of cached named statements
func (s *Session) PreparedCount() int { return len(s.stmts) }

func (s *Session) trace(query string, args []any) {
	s.log.Debug().Str("sql", query).Int("args", len(args)).Bool("tx", s.tx != nil).Msg("Statement")
}
