package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/orm/query"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// ID is the identity type of every mapped entity
type ID interface{ ~int64 }

// Repository is the caller-managed CRUD tier. Writes join the session's
// active transaction and fail with apperrors.ErrNoActiveTransaction when
// there is none, so several calls can be committed together.
type Repository[E orm.Entity, K ID] struct {
	sess   *orm.Session
	entity string
}

// NewRepository creates a repository for E over sess
func NewRepository[E orm.Entity, K ID](sess *orm.Session) *Repository[E, K] {
	var zero E
	return &Repository[E, K]{sess: sess, entity: zero.EntityName()}
}

// Session returns the session the repository works in
func (r *Repository[E, K]) Session() *orm.Session { return r.sess }

// Create inserts e and the associations its cascade policy reaches
func (r *Repository[E, K]) Create(ctx context.Context, e E) error {
	if err := r.sess.Persist(ctx, e); err != nil {
		logger.Error().Err(err).Str("entity", r.entity).Msg("Error creating entity")
		return err
	}
	logger.Debug().Str("entity", r.entity).Int64("id", e.Base().ID).Msg("Entity created")
	return nil
}

// Read returns the attached instance for id, or loads it. A missing row is
// reported as ok == false, not as an error.
func (r *Repository[E, K]) Read(ctx context.Context, id K) (e E, ok bool, err error) {
	if cur, found := r.sess.Lookup(r.entity, int64(id)); found {
		if typed, isE := cur.(E); isE {
			return typed, true, nil
		}
	}
	e, ok, err = query.First[E](ctx, r.sess, query.From(r.entity).Where(query.Eq("id", int64(id))))
	if err != nil {
		logger.Error().Err(err).Str("entity", r.entity).Int64("id", int64(id)).Msg("Error reading entity")
		return e, false, fmt.Errorf("error reading %s %d: %w", r.entity, id, err)
	}
	return e, ok, nil
}

// Update writes the current state of e, checking its version
func (r *Repository[E, K]) Update(ctx context.Context, e E) error {
	if err := r.sess.Merge(ctx, e); err != nil {
		logger.Error().Err(err).Str("entity", r.entity).Int64("id", e.Base().ID).Msg("Error updating entity")
		return err
	}
	return nil
}

// Delete removes e, applying its remove cascades
func (r *Repository[E, K]) Delete(ctx context.Context, e E) error {
	if err := r.sess.Remove(ctx, e); err != nil {
		logger.Error().Err(err).Str("entity", r.entity).Int64("id", e.Base().ID).Msg("Error deleting entity")
		return err
	}
	logger.Debug().Str("entity", r.entity).Int64("id", e.Base().ID).Msg("Entity deleted")
	return nil
}

// Managed is the self-transacting tier: every write runs in the active
// transaction if there is one, or in its own that it commits.
type Managed[E orm.Entity, K ID] struct {
	*Repository[E, K]
}

// NewManaged creates a self-transacting repository for E over sess
func NewManaged[E orm.Entity, K ID](sess *orm.Session) *Managed[E, K] {
	return &Managed[E, K]{Repository: NewRepository[E, K](sess)}
}

// Create inserts e in its own transaction
func (m *Managed[E, K]) Create(ctx context.Context, e E) error {
	return m.sess.InTransaction(ctx, func(ctx context.Context) error {
		return m.Repository.Create(ctx, e)
	})
}

// Update writes e in its own transaction
func (m *Managed[E, K]) Update(ctx context.Context, e E) error {
	return m.sess.InTransaction(ctx, func(ctx context.Context) error {
		return m.Repository.Update(ctx, e)
	})
}

// Delete removes e in its own transaction
func (m *Managed[E, K]) Delete(ctx context.Context, e E) error {
	return m.sess.InTransaction(ctx, func(ctx context.Context) error {
		return m.Repository.Delete(ctx, e)
	})
}

// list runs c and logs a failure under op
func (r *Repository[E, K]) list(ctx context.Context, op string, c *query.Criteria) ([]E, error) {
	out, err := query.List[E](ctx, r.sess, c)
	if err != nil {
		logger.Error().Err(err).Str("entity", r.entity).Str("op", op).Msg("Query failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// first runs c for a single root
func (r *Repository[E, K]) first(ctx context.Context, op string, c *query.Criteria) (E, bool, error) {
	e, ok, err := query.First[E](ctx, r.sess, c)
	if err != nil {
		logger.Error().Err(err).Str("entity", r.entity).Str("op", op).Msg("Query failed")
		return e, false, fmt.Errorf("%s: %w", op, err)
	}
	return e, ok, nil
}

// byID fetches one root with the given associations
func (r *Repository[E, K]) byID(ctx context.Context, op string, id K, fetch ...string) (E, bool, error) {
	return r.first(ctx, op, query.From(r.entity).Where(query.Eq("id", int64(id))).Fetch(fetch...))
}

// load fills the named associations of already known roots with one IN
// query. Roots that are not attached are attached first.
func (r *Repository[E, K]) load(ctx context.Context, op string, roots []E, fetch ...string) error {
	if len(roots) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(roots))
	for _, e := range roots {
		if !r.sess.Contains(e) {
			if err := r.sess.Attach(e); err != nil {
				return err
			}
		}
		ids = append(ids, e.Base().ID)
	}
	_, err := r.list(ctx, op, query.From(r.entity).Where(query.Eq("id", ids)).Fetch(fetch...))
	return err
}
