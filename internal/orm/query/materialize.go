package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/campusdata/internal/orm"
)

type instanceKey struct {
	entity string
	id     int64
}

type fillKey struct {
	owner orm.Entity
	rel   *orm.Relation
}

// materializer turns joined rows into entity graphs. Each identity yields one
// instance per session; associations are filled only when the instance had
// them unloaded at first encounter in the result.
type materializer struct {
	sess   *orm.Session
	seen   map[instanceKey]orm.Entity
	filled map[fillKey]bool
	roots  []orm.Entity
	inRoot map[orm.Entity]bool
}

func newMaterializer(sess *orm.Session) *materializer {
	return &materializer{
		sess:   sess,
		seen:   make(map[instanceKey]orm.Entity),
		filled: make(map[fillKey]bool),
		inRoot: make(map[orm.Entity]bool),
	}
}

func (m *materializer) instance(meta *orm.EntityMeta, raw []any) (orm.Entity, error) {
	if raw[0] == nil {
		return nil, nil
	}
	var id int64
	if err := orm.Assign(&id, raw[0]); err != nil {
		return nil, fmt.Errorf("%s.id: %w", meta.Name, err)
	}
	key := instanceKey{meta.Name, id}
	if e, ok := m.seen[key]; ok {
		return e, nil
	}
	if e, ok := m.sess.Lookup(meta.Name, id); ok {
		m.seen[key] = e
		return e, nil
	}
	e := meta.New()
	if err := meta.Hydrate(e, raw); err != nil {
		return nil, err
	}
	meta.MarkUnloaded(e)
	if err := m.sess.Attach(e); err != nil {
		return nil, err
	}
	m.seen[key] = e
	return e, nil
}

// fill reports whether owner.rel is being loaded by this result, deciding
// on first encounter
func (m *materializer) fill(owner orm.Entity, rel *orm.Relation) bool {
	key := fillKey{owner, rel}
	if f, ok := m.filled[key]; ok {
		return f
	}
	f := !loaded(owner, rel)
	if f {
		switch {
		case rel.Many != nil:
			rel.Many.Reset(owner)
		case rel.One != nil:
			rel.One.Reset(owner)
		case rel.Values != nil:
			rel.Values.Reset(owner)
		}
	}
	m.filled[key] = f
	return f
}

func loaded(owner orm.Entity, rel *orm.Relation) bool {
	switch {
	case rel.Many != nil:
		return rel.Many.Loaded(owner)
	case rel.One != nil:
		return rel.One.Loaded(owner)
	case rel.Values != nil:
		return rel.Values.Loaded(owner)
	}
	return true
}

func (m *materializer) link(owner orm.Entity, rel *orm.Relation, target orm.Entity) {
	if rel.Many != nil {
		rel.Many.Attach(owner, target)
	} else {
		rel.One.Attach(owner, target)
	}
	if inv := rel.Inverse(); inv != nil && inv.One != nil && !inv.One.Loaded(target) {
		inv.One.Attach(target, owner)
	}
}

func (m *materializer) root(e orm.Entity) {
	if !m.inRoot[e] {
		m.inRoot[e] = true
		m.roots = append(m.roots, e)
	}
}

func (m *materializer) row(p *compiled, raw []any) error {
	width := len(p.meta.Columns) + 2
	root, err := m.instance(p.meta, raw[:width])
	if err != nil {
		return err
	}
	if root == nil {
		return nil
	}
	m.root(root)

	resolved := make(map[*fetchNode]orm.Entity, len(p.nodes))
	for _, n := range p.nodes {
		owner := root
		if n.parent != nil {
			owner = resolved[n.parent]
		}
		if owner == nil {
			continue
		}
		f := m.fill(owner, n.rel)
		cells := raw[n.offset : n.offset+n.width]

		if n.meta == nil {
			if f && cells[0] != nil {
				if err := n.rel.Values.Attach(owner, cells[0]); err != nil {
					return fmt.Errorf("%s: %w", n.rel.Name, err)
				}
			}
			continue
		}
		target, err := m.instance(n.meta, cells)
		if err != nil {
			return err
		}
		resolved[n] = target
		if f && target != nil {
			m.link(owner, n.rel, target)
		}
	}
	return nil
}

func materialize(ctx context.Context, sess *orm.Session, p *compiled, sb squirrel.SelectBuilder) ([]orm.Entity, error) {
	rows, err := sess.Select(ctx, sb)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := newMaterializer(sess)
	err = scanRows(rows, func(raw []any) error { return m.row(p, raw) })
	if err != nil {
		return nil, err
	}
	return m.roots, nil
}

func scanRows(rows *sql.Rows, fn func(raw []any) error) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		for i := range raw {
			raw[i] = nil
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Native runs a registered native query that selects whole E rows, columns
// in mapping order (id, version, then the mapped columns), and returns the
// managed instances.
func Native[E orm.Entity](ctx context.Context, sess *orm.Session, name string, args ...any) ([]E, error) {
	var zero E
	meta, err := sess.Registry().MetaOf(zero)
	if err != nil {
		return nil, err
	}
	rows, err := sess.Named(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := newMaterializer(sess)
	var out []E
	err = scanRows(rows, func(raw []any) error {
		if len(raw) != len(meta.Columns)+2 {
			return fmt.Errorf("%s returns %d columns, %s maps %d", name, len(raw), meta.Name, len(meta.Columns)+2)
		}
		e, err := m.instance(meta, raw)
		if err != nil || e == nil {
			return err
		}
		typed, ok := e.(E)
		if !ok {
			return fmt.Errorf("%s produced %T", name, e)
		}
		if !m.inRoot[e] {
			m.root(e)
			out = append(out, typed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
