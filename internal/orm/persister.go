package orm

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Persist inserts a transient entity and cascades to associations whose
// policy includes CascadePersist. It requires an active transaction.
func (s *Session) Persist(ctx context.Context, e Entity) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if e.Base().ID != 0 {
		return apperrors.NewInvalidArgument("entity", "%s %d is already persistent", e.EntityName(), e.Base().ID)
	}
	return s.Write(ctx, func(ctx context.Context) error {
		return newPersister(s).persist(ctx, e)
	})
}

// Merge reattaches e and writes its current state with an optimistic version
// check, then applies association changes and CascadeMerge policies.
func (s *Session) Merge(ctx context.Context, e Entity) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if e.Base().ID == 0 {
		return apperrors.NewInvalidArgument("entity", "%s is transient", e.EntityName())
	}
	return s.Write(ctx, func(ctx context.Context) error {
		return newPersister(s).merge(ctx, e)
	})
}

// Remove reattaches e, applies remove cascades and deletes its row with an
// optimistic version check.
func (s *Session) Remove(ctx context.Context, e Entity) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if e.Base().ID == 0 {
		return apperrors.NewInvalidArgument("entity", "%s is transient", e.EntityName())
	}
	return s.Write(ctx, func(ctx context.Context) error {
		return newPersister(s).remove(ctx, e)
	})
}

type persister struct {
	s       *Session
	reg     *Registry
	visited map[Entity]bool
	removed map[identityKey]bool
}

func newPersister(s *Session) *persister {
	return &persister{
		s:       s,
		reg:     s.factory.registry,
		visited: make(map[Entity]bool),
		removed: make(map[identityKey]bool),
	}
}

func (p *persister) persist(ctx context.Context, e Entity) error {
	if p.visited[e] {
		return nil
	}
	p.visited[e] = true

	meta, err := p.reg.MetaOf(e)
	if err != nil {
		return err
	}
	if err := p.cascadeOwnedRefs(ctx, meta, e, CascadePersist); err != nil {
		return err
	}
	if err := p.insert(ctx, meta, e); err != nil {
		return err
	}
	return p.syncAssociations(ctx, meta, e, CascadePersist)
}

func (p *persister) merge(ctx context.Context, e Entity) error {
	if p.visited[e] {
		return nil
	}
	p.visited[e] = true

	meta, err := p.reg.MetaOf(e)
	if err != nil {
		return err
	}
	if err := p.cascadeOwnedRefs(ctx, meta, e, CascadeMerge); err != nil {
		return err
	}
	if err := p.update(ctx, meta, e); err != nil {
		return err
	}
	return p.syncAssociations(ctx, meta, e, CascadeMerge)
}

func (p *persister) remove(ctx context.Context, e Entity) error {
	meta, err := p.reg.MetaOf(e)
	if err != nil {
		return err
	}
	base := e.Base()
	if err := p.removeRow(ctx, meta, base.ID, base.Version); err != nil {
		return err
	}
	if p.s.Contains(e) {
		p.s.Detach(e)
		p.s.OnRollback(func() { _ = p.s.Attach(e) })
	}
	return nil
}

// reach writes a target reached through a cascading association: transient
// targets are inserted, persistent ones merged when op is CascadeMerge.
func (p *persister) reach(ctx context.Context, owner *EntityMeta, rel *Relation, target Entity, op Cascade, mergeExisting bool) error {
	if target.Base().ID == 0 {
		if rel.Cascade&(CascadePersist|CascadeMerge) == 0 {
			return apperrors.NewInvalidArgument(owner.Name+"."+rel.Name,
				"references transient %s without a persist cascade", target.EntityName())
		}
		return p.persist(ctx, target)
	}
	if mergeExisting && op == CascadeMerge && rel.Cascade.Has(CascadeMerge) {
		return p.merge(ctx, target)
	}
	return nil
}

// cascadeOwnedRefs writes targets of owning to-one relations before the
// owner row, since the owner's foreign key needs their identifiers. A
// transient target behind a relation without the cascade is rejected.
func (p *persister) cascadeOwnedRefs(ctx context.Context, meta *EntityMeta, e Entity, op Cascade) error {
	for _, rel := range meta.Relations {
		if rel.One == nil || !rel.Owner {
			continue
		}
		t, ok := rel.One.Get(e)
		if !ok {
			continue
		}
		if rel.Cascade&op == 0 {
			// the foreign key would be written as NULL
			if t.Base().ID == 0 {
				return apperrors.NewInvalidArgument(meta.Name+"."+rel.Name,
					"references transient %s; persist it first", t.EntityName())
			}
			continue
		}
		if err := p.reach(ctx, meta, rel, t, op, true); err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) insert(ctx context.Context, meta *EntityMeta, e Entity) error {
	cols := make([]string, 0, len(meta.Columns)+1)
	vals := make([]any, 0, len(meta.Columns)+1)
	cols = append(cols, "version")
	vals = append(vals, int64(1))
	for _, c := range meta.Columns {
		cols = append(cols, c.Name)
		vals = append(vals, c.Get(e))
	}

	ins := p.s.Builder().Insert(meta.Table).Columns(cols...).Values(vals...)

	var id int64
	if p.s.Dialect().Returning {
		var err error
		id, err = p.s.insertReturning(ctx, ins.Suffix("RETURNING id"))
		if err != nil {
			return fmt.Errorf("insert %s: %w", meta.Name, err)
		}
	} else {
		res, err := p.s.exec(ctx, ins)
		if err != nil {
			return fmt.Errorf("insert %s: %w", meta.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert %s: generated key: %w", meta.Name, err)
		}
	}

	base := e.Base()
	prevID, prevVersion := base.ID, base.Version
	base.ID, base.Version = id, 1
	p.s.OnRollback(func() { base.ID, base.Version = prevID, prevVersion })
	return p.s.Attach(e)
}

func (p *persister) update(ctx context.Context, meta *EntityMeta, e Entity) error {
	base := e.Base()
	upd := p.s.Builder().Update(meta.Table).Set("version", squirrel.Expr("version + 1"))
	for _, c := range meta.Columns {
		upd = upd.Set(c.Name, c.Get(e))
	}
	upd = upd.Where(squirrel.Eq{"id": base.ID, "version": base.Version})

	res, err := p.s.exec(ctx, upd)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", meta.Name, base.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %d: %w", meta.Name, base.ID, err)
	}
	if n == 0 {
		return &apperrors.OptimisticLockError{Entity: meta.Name, ID: base.ID, Version: base.Version}
	}

	prev := base.Version
	base.Version++
	p.s.OnRollback(func() { base.Version = prev })
	return p.s.Attach(e)
}

// syncAssociations turns association deltas into writes and then clears the
// deltas. Clearing is undone on rollback.
func (p *persister) syncAssociations(ctx context.Context, meta *EntityMeta, e Entity, op Cascade) error {
	for _, rel := range meta.Relations {
		var err error
		switch rel.Kind {
		case ManyToMany:
			if rel.Owner {
				err = p.syncJoinRows(ctx, meta, rel, e, op)
			}
		case OneToMany:
			err = p.syncChildren(ctx, meta, rel, e, op)
		case OneToOne:
			if !rel.Owner {
				err = p.syncDependent(ctx, meta, rel, e, op)
			}
		case ElementCollection:
			err = p.syncValues(ctx, rel, e)
		}
		if err != nil {
			return err
		}
	}

	for _, rel := range meta.Relations {
		var restore func()
		switch {
		case rel.Many != nil:
			restore = rel.Many.Flush(e)
		case rel.One != nil:
			restore = rel.One.Flush(e)
		case rel.Values != nil:
			restore = rel.Values.Flush(e)
		}
		if restore != nil {
			p.s.OnRollback(restore)
		}
	}
	return nil
}

func (p *persister) syncJoinRows(ctx context.Context, meta *EntityMeta, rel *Relation, e Entity, op Cascade) error {
	id := e.Base().ID
	for _, t := range rel.Many.Removed(e) {
		tid := t.Base().ID
		if tid == 0 {
			continue
		}
		del := p.s.Builder().Delete(rel.JoinTable).
			Where(squirrel.Eq{rel.JoinColumn: id, rel.InverseJoinColumn: tid})
		if _, err := p.s.exec(ctx, del); err != nil {
			return fmt.Errorf("unlink %s.%s: %w", meta.Name, rel.Name, err)
		}
	}
	for _, t := range rel.Many.Added(e) {
		if err := p.reach(ctx, meta, rel, t, op, false); err != nil {
			return err
		}
		ins := p.s.Builder().Insert(rel.JoinTable).
			Columns(rel.JoinColumn, rel.InverseJoinColumn).
			Values(id, t.Base().ID)
		if _, err := p.s.exec(ctx, ins); err != nil {
			return fmt.Errorf("link %s.%s: %w", meta.Name, rel.Name, err)
		}
	}
	return nil
}

// syncChildren handles a one-to-many whose foreign key lives on the child.
// A removed child that now points at another parent is left alone; otherwise
// it is deleted under orphan removal or un-parented without it.
func (p *persister) syncChildren(ctx context.Context, meta *EntityMeta, rel *Relation, e Entity, op Cascade) error {
	target, err := p.reg.Entity(rel.Target)
	if err != nil {
		return err
	}
	fk, ok := target.ColumnNamed(rel.ForeignKey)
	if !ok {
		return fmt.Errorf("%s.%s: %s has no column %s", meta.Name, rel.Name, target.Name, rel.ForeignKey)
	}
	id := e.Base().ID

	for _, child := range rel.Many.Removed(e) {
		cb := child.Base()
		if cb.ID == 0 {
			continue
		}
		if cur := fk.Get(child); cur != nil && !sameKey(cur, id) {
			continue
		}
		if rel.OrphanRemoval {
			if err := p.removeRow(ctx, target, cb.ID, cb.Version); err != nil {
				return err
			}
			p.s.Detach(child)
			continue
		}
		upd := p.s.Builder().Update(target.Table).
			Set(rel.ForeignKey, nil).
			Where(squirrel.Eq{"id": cb.ID, rel.ForeignKey: id})
		if _, err := p.s.exec(ctx, upd); err != nil {
			return fmt.Errorf("detach %s %d from %s: %w", target.Name, cb.ID, meta.Name, err)
		}
	}

	for _, child := range rel.Many.Added(e) {
		if child.Base().ID == 0 || rel.Cascade.Has(CascadeMerge) {
			if err := p.reach(ctx, meta, rel, child, CascadeMerge, true); err != nil {
				return err
			}
			continue
		}
		upd := p.s.Builder().Update(target.Table).
			Set(rel.ForeignKey, id).
			Where(squirrel.Eq{"id": child.Base().ID})
		if _, err := p.s.exec(ctx, upd); err != nil {
			return fmt.Errorf("attach %s %d to %s: %w", target.Name, child.Base().ID, meta.Name, err)
		}
	}
	return nil
}

// syncDependent handles an inverse one-to-one whose foreign key lives on the
// dependent row. Under orphan removal a replaced dependent is deleted before
// the new one is written, so a unique foreign key is never violated.
func (p *persister) syncDependent(ctx context.Context, meta *EntityMeta, rel *Relation, e Entity, op Cascade) error {
	current, present := rel.One.Get(e)

	if op == CascadeMerge && rel.OrphanRemoval && rel.One.Dirty(e) {
		target, err := p.reg.Entity(rel.Target)
		if err != nil {
			return err
		}
		sel := p.s.Builder().Select("id", "version").From(target.Table).
			Where(squirrel.Eq{rel.ForeignKey: e.Base().ID})
		if present && current.Base().ID != 0 {
			sel = sel.Where(squirrel.NotEq{"id": current.Base().ID})
		}
		stale, err := p.keys(ctx, sel)
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := p.removeRow(ctx, target, k.id, k.version); err != nil {
				return err
			}
		}
	}

	if !present || rel.Cascade&op == 0 && current.Base().ID != 0 {
		return nil
	}
	return p.reach(ctx, meta, rel, current, op, true)
}

func (p *persister) syncValues(ctx context.Context, rel *Relation, e Entity) error {
	id := e.Base().ID
	for _, v := range rel.Values.Removed(e) {
		del := p.s.Builder().Delete(rel.JoinTable).
			Where(squirrel.Eq{rel.JoinColumn: id, rel.ValueColumn: v})
		if _, err := p.s.exec(ctx, del); err != nil {
			return fmt.Errorf("remove %s value: %w", rel.Name, err)
		}
	}
	for _, v := range rel.Values.Added(e) {
		ins := p.s.Builder().Insert(rel.JoinTable).
			Columns(rel.JoinColumn, rel.ValueColumn).
			Values(id, v)
		if _, err := p.s.exec(ctx, ins); err != nil {
			return fmt.Errorf("add %s value: %w", rel.Name, err)
		}
	}
	return nil
}

// removeRow applies the remove cascades of one row and deletes it. Rows
// reached by cascade are identified from the store, so their in-memory
// instances need not be loaded.
func (p *persister) removeRow(ctx context.Context, meta *EntityMeta, id, version int64) error {
	key := identityKey{meta.Name, id}
	if p.removed[key] {
		return nil
	}
	p.removed[key] = true

	for _, rel := range meta.Relations {
		if err := p.removeCascade(ctx, meta, rel, id); err != nil {
			return err
		}
	}

	del := p.s.Builder().Delete(meta.Table).
		Where(squirrel.Eq{"id": id, "version": version})
	res, err := p.s.exec(ctx, del)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", meta.Name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", meta.Name, id, err)
	}
	if n == 0 {
		return &apperrors.OptimisticLockError{Entity: meta.Name, ID: id, Version: version}
	}

	if inst, ok := p.s.Lookup(meta.Name, id); ok {
		p.s.Detach(inst)
		p.s.OnRollback(func() { _ = p.s.Attach(inst) })
	}
	return nil
}

func (p *persister) removeCascade(ctx context.Context, meta *EntityMeta, rel *Relation, id int64) error {
	link := rel.Link()
	switch rel.Kind {
	case ManyToMany, ElementCollection:
		del := p.s.Builder().Delete(link.JoinTable).Where(squirrel.Eq{link.NearKey: id})
		if _, err := p.s.exec(ctx, del); err != nil {
			return fmt.Errorf("clear %s.%s: %w", meta.Name, rel.Name, err)
		}
	case OneToMany, OneToOne:
		if rel.Owner {
			return nil
		}
		target, err := p.reg.Entity(rel.Target)
		if err != nil {
			return err
		}
		if !rel.Cascade.Has(CascadeRemove) {
			if rel.Kind == OneToOne {
				return nil
			}
			upd := p.s.Builder().Update(target.Table).
				Set(rel.ForeignKey, nil).
				Where(squirrel.Eq{rel.ForeignKey: id})
			if _, err := p.s.exec(ctx, upd); err != nil {
				return fmt.Errorf("un-parent %s.%s: %w", meta.Name, rel.Name, err)
			}
			return nil
		}
		children, err := p.keys(ctx, p.s.Builder().Select("id", "version").From(target.Table).
			Where(squirrel.Eq{rel.ForeignKey: id}))
		if err != nil {
			return err
		}
		for _, k := range children {
			if err := p.removeRow(ctx, target, k.id, k.version); err != nil {
				return err
			}
		}
	}
	return nil
}

type rowKey struct {
	id      int64
	version int64
}

// keys reads (id, version) pairs; the rows are drained before returning
func (p *persister) keys(ctx context.Context, sel squirrel.SelectBuilder) ([]rowKey, error) {
	rows, err := p.s.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rowKey
	for rows.Next() {
		var k rowKey
		if err := rows.Scan(&k.id, &k.version); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func sameKey(raw any, id int64) bool {
	n, err := toInt64(raw)
	return err == nil && n == id
}
