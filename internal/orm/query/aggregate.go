package query

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Having filters groups by their count
type Having struct {
	Op        string
	Threshold int64
}

// Grouping counts distinct values of Count per combination of GroupBy
// paths. Associations reached by Count are outer-joined, so groups with
// nothing to count report zero.
type Grouping struct {
	Root    string
	GroupBy []string
	// Count is the counted path; blank counts root rows
	Count  string
	Where  []Predicate
	Having *Having
}

// GroupCount is one result row of a grouping
type GroupCount struct {
	Key   []any
	Count int64
}

// CountGroupedBy runs g, ordered by the grouping keys
func CountGroupedBy(ctx context.Context, sess *orm.Session, g Grouping) ([]GroupCount, error) {
	query, err := g.compile(sess.Registry(), sess.Builder())
	if err != nil {
		return nil, err
	}
	rows, err := sess.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupCount
	err = scanRows(rows, func(raw []any) error {
		gc := GroupCount{Key: make([]any, len(g.GroupBy))}
		for i := range g.GroupBy {
			gc.Key[i] = orm.Normalize(raw[i])
		}
		if err := orm.Assign(&gc.Count, raw[len(g.GroupBy)]); err != nil {
			return err
		}
		out = append(out, gc)
		return nil
	})
	return out, err
}

func (g Grouping) compile(reg *orm.Registry, b squirrel.StatementBuilderType) (squirrel.SelectBuilder, error) {
	if len(g.GroupBy) == 0 {
		return squirrel.SelectBuilder{}, apperrors.NewInvalidArgument("groupBy", "at least one grouping path is required")
	}
	meta, err := reg.Entity(g.Root)
	if err != nil {
		return squirrel.SelectBuilder{}, apperrors.NewInvalidArgument("entity", "%v", err)
	}
	subs := 0
	sc := newScope(reg, meta, "t", &subs)

	keys := make([]string, len(g.GroupBy))
	for i, path := range g.GroupBy {
		col, err := sc.column(path)
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		keys[i] = col
	}

	counted := sc.alias + ".id"
	if g.Count != "" {
		counted, err = sc.outerColumn(g.Count)
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
	}
	countExpr := "COUNT(DISTINCT " + counted + ")"

	parts, err := compileAll(sc, g.Where)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}

	cols := append(append([]string(nil), keys...), countExpr)
	sb := b.Select(cols...).From(meta.Table + " " + sc.alias)
	inner, outer := splitJoins(sc.joins)
	for _, j := range inner {
		sb = sb.JoinClause(j)
	}
	for _, j := range outer {
		sb = sb.JoinClause(j)
	}
	if len(parts) > 0 {
		sb = sb.Where(squirrel.And(parts))
	}
	sb = sb.GroupBy(keys...)
	if g.Having != nil {
		if !validOp(g.Having.Op) {
			return squirrel.SelectBuilder{}, apperrors.NewInvalidArgument("having", "unsupported operator %q", g.Having.Op)
		}
		sb = sb.Having(countExpr+" "+g.Having.Op+" ?", g.Having.Threshold)
	}
	return sb.OrderBy(keys...), nil
}

// splitJoins puts inner joins ahead of outer ones so that a LEFT JOIN never
// precedes an inner join it does not depend on
func splitJoins(joins []string) (inner, outer []string) {
	for _, j := range joins {
		if strings.HasPrefix(j, "LEFT JOIN") {
			outer = append(outer, j)
		} else {
			inner = append(inner, j)
		}
	}
	return inner, outer
}
