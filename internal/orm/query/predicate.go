package query

import (
	"reflect"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Predicate is one filter of a criteria query. A predicate whose value is
// absent (nil, a nil pointer or a blank string) is omitted from the query
// rather than compared with NULL; use IsNull to match NULL.
type Predicate interface {
	toSql(s *scope) (squirrel.Sqlizer, error)
}

type match struct {
	path  string
	value any
}

// Where filters path by value: strings match case-insensitively as a
// substring, everything else by equality.
func Where(path string, value any) Predicate { return match{path, value} }

func (m match) toSql(s *scope) (squirrel.Sqlizer, error) {
	v, ok := present(m.value)
	if !ok {
		return nil, nil
	}
	col, err := s.column(m.path)
	if err != nil {
		return nil, err
	}
	if str, isString := v.(string); isString {
		return likeContains(col, str), nil
	}
	return squirrel.Eq{col: v}, nil
}

type comparison struct {
	path  string
	op    string
	value any
}

// Eq matches path equal to value. A slice value matches any of its elements.
func Eq(path string, value any) Predicate { return comparison{path, "=", value} }

// Ne matches path different from value
func Ne(path string, value any) Predicate { return comparison{path, "<>", value} }

// GE matches path greater than or equal to value
func GE(path string, value any) Predicate { return comparison{path, ">=", value} }

// GT matches path greater than value
func GT(path string, value any) Predicate { return comparison{path, ">", value} }

// LE matches path less than or equal to value
func LE(path string, value any) Predicate { return comparison{path, "<=", value} }

// LT matches path less than value
func LT(path string, value any) Predicate { return comparison{path, "<", value} }

func (c comparison) toSql(s *scope) (squirrel.Sqlizer, error) {
	v, ok := present(c.value)
	if !ok {
		return nil, nil
	}
	col, err := s.column(c.path)
	if err != nil {
		return nil, err
	}
	switch c.op {
	case "=":
		return squirrel.Eq{col: v}, nil
	case "<>":
		return squirrel.NotEq{col: v}, nil
	case ">=":
		return squirrel.GtOrEq{col: v}, nil
	case ">":
		return squirrel.Gt{col: v}, nil
	case "<=":
		return squirrel.LtOrEq{col: v}, nil
	case "<":
		return squirrel.Lt{col: v}, nil
	default:
		return nil, apperrors.NewInvalidArgument("operator", "unsupported operator %q", c.op)
	}
}

type contains struct {
	path  string
	value any
}

// Contains matches a case-insensitive substring
func Contains(path string, value any) Predicate { return contains{path, value} }

func (c contains) toSql(s *scope) (squirrel.Sqlizer, error) {
	v, ok := present(c.value)
	if !ok {
		return nil, nil
	}
	str, isString := v.(string)
	if !isString {
		return nil, apperrors.NewInvalidArgument(c.path, "contains needs a string, got %T", v)
	}
	col, err := s.column(c.path)
	if err != nil {
		return nil, err
	}
	return likeContains(col, str), nil
}

type nullCheck struct {
	path string
	null bool
}

// IsNull matches a NULL column
func IsNull(path string) Predicate { return nullCheck{path, true} }

// NotNull matches a non-NULL column
func NotNull(path string) Predicate { return nullCheck{path, false} }

func (n nullCheck) toSql(s *scope) (squirrel.Sqlizer, error) {
	col, err := s.column(n.path)
	if err != nil {
		return nil, err
	}
	if n.null {
		return squirrel.Eq{col: nil}, nil
	}
	return squirrel.NotEq{col: nil}, nil
}

type junction struct {
	or    bool
	preds []Predicate
}

// And matches when every applied predicate matches
func And(preds ...Predicate) Predicate { return junction{false, preds} }

// Or matches when any applied predicate matches
func Or(preds ...Predicate) Predicate { return junction{true, preds} }

func (j junction) toSql(s *scope) (squirrel.Sqlizer, error) {
	parts, err := compileAll(s, j.preds)
	if err != nil || len(parts) == 0 {
		return nil, err
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	if j.or {
		return squirrel.Or(parts), nil
	}
	return squirrel.And(parts), nil
}

type negation struct {
	pred Predicate
}

// Not negates p. Negating an omitted predicate omits it too.
func Not(p Predicate) Predicate { return negation{p} }

func (n negation) toSql(s *scope) (squirrel.Sqlizer, error) {
	inner, err := n.pred.toSql(s)
	if err != nil || inner == nil {
		return nil, err
	}
	return squirrel.Expr("NOT (?)", inner), nil
}

func compileAll(s *scope, preds []Predicate) ([]squirrel.Sqlizer, error) {
	var parts []squirrel.Sqlizer
	for _, p := range preds {
		if p == nil {
			continue
		}
		sq, err := p.toSql(s)
		if err != nil {
			return nil, err
		}
		if sq != nil {
			parts = append(parts, sq)
		}
	}
	return parts, nil
}

// present dereferences v and reports whether it carries a filter value
func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	out := rv.Interface()
	if str, ok := out.(string); ok && strings.TrimSpace(str) == "" {
		return nil, false
	}
	return out, true
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likeContains(col, value string) squirrel.Sqlizer {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
	return squirrel.Expr("LOWER("+col+") LIKE ? ESCAPE '!'", pattern)
}
