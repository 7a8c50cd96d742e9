package query

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Subquery is a nested select with its own root and join graph. It shares
// the enclosing statement's parameter list. Correlate ties an inner path to
// a path of the enclosing query.
type Subquery struct {
	root  string
	agg   string
	path  string
	where []Predicate
	corr  [][2]string
}

// Sub starts a subquery over entity, selecting its id
func Sub(entity string) *Subquery {
	return &Subquery{root: entity, path: "id"}
}

// Select selects path
func (q *Subquery) Select(path string) *Subquery {
	q.agg, q.path = "", path
	return q
}

// SelectAvg selects the average of path
func (q *Subquery) SelectAvg(path string) *Subquery {
	q.agg, q.path = "AVG", path
	return q
}

// SelectMax selects the maximum of path
func (q *Subquery) SelectMax(path string) *Subquery {
	q.agg, q.path = "MAX", path
	return q
}

// SelectMin selects the minimum of path
func (q *Subquery) SelectMin(path string) *Subquery {
	q.agg, q.path = "MIN", path
	return q
}

// SelectCount selects the number of matching rows
func (q *Subquery) SelectCount() *Subquery {
	q.agg, q.path = "COUNT", ""
	return q
}

// Where adds filters on the subquery root
func (q *Subquery) Where(preds ...Predicate) *Subquery {
	q.where = append(q.where, preds...)
	return q
}

// Correlate requires inner (a path of the subquery) to equal outer (a path
// of the enclosing query)
func (q *Subquery) Correlate(inner, outer string) *Subquery {
	q.corr = append(q.corr, [2]string{inner, outer})
	return q
}

func (q *Subquery) compile(outer *scope) (squirrel.SelectBuilder, error) {
	meta, err := outer.reg.Entity(q.root)
	if err != nil {
		return squirrel.SelectBuilder{}, apperrors.NewInvalidArgument("subquery", "%v", err)
	}
	*outer.subs++
	s := newScope(outer.reg, meta, fmt.Sprintf("s%d_", *outer.subs), outer.subs)

	expr := "*"
	if q.path != "" {
		col, err := s.column(q.path)
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		expr = col
	}
	if q.agg != "" {
		expr = q.agg + "(" + expr + ")"
	}

	var conds []squirrel.Sqlizer
	for _, c := range q.corr {
		inner, err := s.column(c[0])
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		outerCol, err := outer.column(c[1])
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		conds = append(conds, squirrel.Expr(inner+" = "+outerCol))
	}
	filters, err := compileAll(s, q.where)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	conds = append(conds, filters...)

	sb := squirrel.Select(expr).From(meta.Table + " " + s.alias)
	for _, j := range s.joins {
		sb = sb.JoinClause(j)
	}
	if len(conds) > 0 {
		sb = sb.Where(squirrel.And(conds))
	}
	return sb, nil
}

type subIn struct {
	path string
	sub  *Subquery
	not  bool
}

// In matches when path is among the values the subquery selects
func In(path string, sub *Subquery) Predicate { return subIn{path, sub, false} }

// NotIn matches when path is not among the subquery's values
func NotIn(path string, sub *Subquery) Predicate { return subIn{path, sub, true} }

func (p subIn) toSql(s *scope) (squirrel.Sqlizer, error) {
	col, err := s.column(p.path)
	if err != nil {
		return nil, err
	}
	sb, err := p.sub.compile(s)
	if err != nil {
		return nil, err
	}
	op := " IN "
	if p.not {
		op = " NOT IN "
	}
	return squirrel.Expr(col+op+"(?)", sb), nil
}

type exists struct {
	sub *Subquery
	not bool
}

// Exists matches when the subquery returns a row
func Exists(sub *Subquery) Predicate { return exists{sub, false} }

// NotExists matches when the subquery returns no row
func NotExists(sub *Subquery) Predicate { return exists{sub, true} }

func (p exists) toSql(s *scope) (squirrel.Sqlizer, error) {
	sb, err := p.sub.compile(s)
	if err != nil {
		return nil, err
	}
	if p.not {
		return squirrel.Expr("NOT EXISTS (?)", sb), nil
	}
	return squirrel.Expr("EXISTS (?)", sb), nil
}

type subCompare struct {
	path string
	op   string
	sub  *Subquery
}

// CompareSub compares path with the scalar the subquery selects
func CompareSub(path, op string, sub *Subquery) Predicate { return subCompare{path, op, sub} }

func (p subCompare) toSql(s *scope) (squirrel.Sqlizer, error) {
	if !validOp(p.op) {
		return nil, apperrors.NewInvalidArgument("operator", "unsupported operator %q", p.op)
	}
	col, err := s.column(p.path)
	if err != nil {
		return nil, err
	}
	sb, err := p.sub.compile(s)
	if err != nil {
		return nil, err
	}
	return squirrel.Expr(col+" "+p.op+" (?)", sb), nil
}

func validOp(op string) bool {
	switch op {
	case "=", "<>", ">", ">=", "<", "<=":
		return true
	}
	return false
}
