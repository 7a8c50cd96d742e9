package query

import (
	"fmt"
	"strings"

	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// scope resolves dotted paths against one root entity and accumulates the
// joins they need. Each query and each subquery owns a scope; subqueries get
// their own alias prefix so the two join graphs never collide.
type scope struct {
	reg    *orm.Registry
	meta   *orm.EntityMeta
	alias  string
	prefix string
	n      int
	joins  []string
	nodes  map[string]string
	// multi is set once a multi-valued relation has been traversed
	multi bool
	subs  *int
}

func newScope(reg *orm.Registry, meta *orm.EntityMeta, prefix string, subs *int) *scope {
	return &scope{
		reg:    reg,
		meta:   meta,
		alias:  prefix + "0",
		prefix: prefix,
		nodes:  make(map[string]string),
		subs:   subs,
	}
}

func (s *scope) nextAlias() string {
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n)
}

// column resolves a field path to a qualified column, inner-joining every
// relation on the way. Joins are shared per path prefix.
func (s *scope) column(path string) (string, error) {
	return s.walk(path, "JOIN", "")
}

// outerColumn is column with LEFT JOINs, kept apart from the inner joins
func (s *scope) outerColumn(path string) (string, error) {
	return s.walk(path, "LEFT JOIN", "left:")
}

func (s *scope) walk(path, kind, keyPrefix string) (string, error) {
	if path == "" {
		return "", apperrors.NewInvalidArgument("path", "empty path")
	}
	parts := strings.Split(path, ".")
	meta, alias := s.meta, s.alias
	key := keyPrefix

	for i, part := range parts {
		last := i == len(parts)-1
		rel, isRel := meta.Relation(part)
		if !isRel && !last {
			// embedded fields carry dotted names
			if col, ok := meta.Column(strings.Join(parts[i:], ".")); ok {
				return alias + "." + col.Name, nil
			}
		}

		if last && !isRel {
			col, ok := meta.Column(part)
			if !ok {
				return "", apperrors.NewInvalidArgument("path", "%s has no field %q", meta.Name, part)
			}
			return alias + "." + col.Name, nil
		}
		if !isRel {
			return "", apperrors.NewInvalidArgument("path", "%s has no relation %q", meta.Name, part)
		}

		link := rel.Link()
		// x.id over an owning foreign key needs no join
		if i == len(parts)-2 && parts[i+1] == "id" && link.JoinTable == "" && link.TargetKey == "id" {
			return alias + "." + link.SourceKey, nil
		}

		if rel.MultiValued() {
			s.multi = true
		}
		key += "." + part

		if rel.Kind == orm.ElementCollection {
			if !last {
				return "", apperrors.NewInvalidArgument("path", "cannot traverse value collection %q", part)
			}
			jt, ok := s.nodes[key]
			if !ok {
				jt = s.nextAlias()
				s.joins = append(s.joins, joinClauses(kind, alias, rel, nil, jt, "")...)
				s.nodes[key] = jt
			}
			return jt + "." + rel.ValueColumn, nil
		}

		target, err := s.reg.Entity(rel.Target)
		if err != nil {
			return "", err
		}
		next, ok := s.nodes[key]
		if !ok {
			next = s.nextAlias()
			jt := ""
			if link.JoinTable != "" {
				jt = s.nextAlias()
			}
			s.joins = append(s.joins, joinClauses(kind, alias, rel, target, jt, next)...)
			s.nodes[key] = next
		}
		if last {
			// a bare relation path resolves to the target's identity
			return next + ".id", nil
		}
		meta, alias = target, next
	}
	return "", apperrors.NewInvalidArgument("path", "cannot resolve %q", path)
}

// joinClauses renders the joins that reach rel's target (aliased tAlias)
// from src. Relations through a join table use jtAlias for it. A nil target
// stops at the join table, as for value collections.
func joinClauses(kind, src string, rel *orm.Relation, target *orm.EntityMeta, jtAlias, tAlias string) []string {
	link := rel.Link()
	if link.JoinTable == "" {
		return []string{fmt.Sprintf("%s %s %s ON %s.%s = %s.%s",
			kind, target.Table, tAlias, tAlias, link.TargetKey, src, link.SourceKey)}
	}
	clauses := []string{fmt.Sprintf("%s %s %s ON %s.%s = %s.%s",
		kind, link.JoinTable, jtAlias, jtAlias, link.NearKey, src, link.SourceKey)}
	if target != nil {
		clauses = append(clauses, fmt.Sprintf("%s %s %s ON %s.%s = %s.%s",
			kind, target.Table, tAlias, tAlias, link.TargetKey, jtAlias, link.FarKey))
	}
	return clauses
}
