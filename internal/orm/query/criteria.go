package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Direction orders results
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc or desc in any case; blank means Asc
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return "", apperrors.NewInvalidArgument("direction", "must be asc or desc, got %q", s)
	}
}

type ordering struct {
	field string
	dir   Direction
}

// Criteria is a query against one root entity, assembled from optional
// parts. It is compiled only when executed.
type Criteria struct {
	root   string
	where  []Predicate
	fetch  []string
	orders []ordering
	paged  bool
	page   int
	size   int
}

// From starts a query rooted at entity
func From(entity string) *Criteria {
	return &Criteria{root: entity}
}

// Where adds filters; absent values are skipped
func (c *Criteria) Where(preds ...Predicate) *Criteria {
	c.where = append(c.where, preds...)
	return c
}

// Fetch loads the named associations eagerly in the same statement.
// Nested paths such as "courses.students" fetch every hop.
func (c *Criteria) Fetch(paths ...string) *Criteria {
	c.fetch = append(c.fetch, paths...)
	return c
}

// OrderBy orders by a root field. The root id is always appended as a
// tiebreaker.
func (c *Criteria) OrderBy(field string, dir Direction) *Criteria {
	c.orders = append(c.orders, ordering{field, dir})
	return c
}

// Page selects the 1-indexed page n of the given size
func (c *Criteria) Page(n, size int) *Criteria {
	c.paged, c.page, c.size = true, n, size
	return c
}

func (c *Criteria) clone() *Criteria {
	out := *c
	out.where = append([]Predicate(nil), c.where...)
	out.fetch = append([]string(nil), c.fetch...)
	out.orders = append([]ordering(nil), c.orders...)
	return &out
}

// fetchNode is one fetched association. Columns of the node start at
// offset in each result row.
type fetchNode struct {
	rel      *orm.Relation
	meta     *orm.EntityMeta
	alias    string
	parent   *fetchNode
	offset   int
	width    int
	orderCol string
}

type compiled struct {
	meta       *orm.EntityMeta
	scope      *scope
	where      squirrel.Sqlizer
	orders     []string
	orderCols  []string
	nodes      []*fetchNode
	fetchJoins []string
	fanOut     bool
	paged      bool
	limit      uint64
	offset     uint64
}

func (c *Criteria) compile(reg *orm.Registry) (*compiled, error) {
	if c.paged {
		if c.size <= 0 {
			return nil, apperrors.NewInvalidArgument("size", "page size must be positive, got %d", c.size)
		}
		if c.page < 1 {
			return nil, apperrors.NewInvalidArgument("page", "pages start at 1, got %d", c.page)
		}
	}
	meta, err := reg.Entity(c.root)
	if err != nil {
		return nil, apperrors.NewInvalidArgument("entity", "%v", err)
	}

	subs := 0
	sc := newScope(reg, meta, "t", &subs)
	out := &compiled{meta: meta, scope: sc, paged: c.paged}
	if c.paged {
		out.limit = uint64(c.size)
		out.offset = uint64(c.page-1) * uint64(c.size)
	}

	parts, err := compileAll(sc, c.where)
	if err != nil {
		return nil, err
	}
	if len(parts) > 0 {
		out.where = squirrel.And(parts)
	}

	byID := false
	for _, o := range c.orders {
		col, ok := meta.Column(o.field)
		if !ok {
			if strings.Contains(o.field, ".") {
				return nil, apperrors.NewInvalidArgument("sort", "can only order by fields of %s, got %q", meta.Name, o.field)
			}
			return nil, apperrors.NewInvalidArgument("sort", "%s has no field %q", meta.Name, o.field)
		}
		var dir string
		switch o.dir {
		case Asc, "":
			dir = "ASC"
		case Desc:
			dir = "DESC"
		default:
			return nil, apperrors.NewInvalidArgument("direction", "must be asc or desc, got %q", o.dir)
		}
		qualified := sc.alias + "." + col.Name
		out.orders = append(out.orders, qualified+" "+dir)
		out.orderCols = append(out.orderCols, qualified)
		if col.Name == "id" {
			byID = true
		}
	}
	if !byID {
		out.orders = append(out.orders, sc.alias+".id ASC")
	}

	if err := out.planFetch(sc, c.fetch); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *compiled) planFetch(sc *scope, paths []string) error {
	byPath := make(map[string]*fetchNode)
	offset := len(p.meta.Columns) + 2

	for _, path := range paths {
		var parent *fetchNode
		meta := p.meta
		srcAlias := sc.alias
		key := ""
		for _, part := range strings.Split(path, ".") {
			key += "." + part
			if node, ok := byPath[key]; ok {
				parent, meta, srcAlias = node, node.meta, node.alias
				continue
			}
			if meta == nil {
				return apperrors.NewInvalidArgument("fetch", "cannot fetch through value collection in %q", path)
			}
			rel, ok := meta.Relation(part)
			if !ok {
				return apperrors.NewInvalidArgument("fetch", "%s has no relation %q", meta.Name, part)
			}
			if rel.MultiValued() {
				p.fanOut = true
			}

			node := &fetchNode{rel: rel, parent: parent, offset: offset}
			if rel.Kind == orm.ElementCollection {
				node.alias = sc.nextAlias()
				node.width = 1
				node.orderCol = node.alias + "." + rel.ValueColumn
				p.fetchJoins = append(p.fetchJoins, joinClauses("LEFT JOIN", srcAlias, rel, nil, node.alias, "")...)
			} else {
				target, err := sc.reg.Entity(rel.Target)
				if err != nil {
					return err
				}
				node.meta = target
				node.alias = sc.nextAlias()
				jt := ""
				if rel.Link().JoinTable != "" {
					jt = sc.nextAlias()
				}
				node.width = len(target.Columns) + 2
				node.orderCol = node.alias + ".id"
				p.fetchJoins = append(p.fetchJoins, joinClauses("LEFT JOIN", srcAlias, rel, target, jt, node.alias)...)
			}
			offset += node.width
			byPath[key] = node
			p.nodes = append(p.nodes, node)
			parent, meta, srcAlias = node, node.meta, node.alias
		}
	}
	return nil
}

func (p *compiled) selectColumns() []string {
	cols := qualify(p.scope.alias, p.meta.SelectColumns())
	for _, n := range p.nodes {
		if n.meta == nil {
			cols = append(cols, n.alias+"."+n.rel.ValueColumn)
			continue
		}
		cols = append(cols, qualify(n.alias, n.meta.SelectColumns())...)
	}
	return cols
}

func (p *compiled) from() string {
	return p.meta.Table + " " + p.scope.alias
}

// twoPhase reports whether paging must select root ids before fetching,
// so that a page counts roots rather than joined rows
func (p *compiled) twoPhase() bool {
	return p.paged && p.fanOut
}

// entities builds the statement that returns full root rows and fetched
// associations. With ids set, filters are replaced by an id list.
func (p *compiled) entities(b squirrel.StatementBuilderType, ids []int64) squirrel.SelectBuilder {
	sb := b.Select(p.selectColumns()...).From(p.from())
	if ids == nil {
		for _, j := range p.scope.joins {
			sb = sb.JoinClause(j)
		}
		if p.where != nil {
			sb = sb.Where(p.where)
		}
		if p.scope.multi && !p.fanOut {
			sb = sb.Distinct()
		}
		if p.paged && !p.fanOut {
			sb = sb.Limit(p.limit).Offset(p.offset)
		}
	} else {
		sb = sb.Where(squirrel.Eq{p.scope.alias + ".id": ids})
	}
	for _, j := range p.fetchJoins {
		sb = sb.JoinClause(j)
	}
	orders := append([]string(nil), p.orders...)
	for _, n := range p.nodes {
		orders = append(orders, n.orderCol)
	}
	return sb.OrderBy(orders...)
}

// rootIDs builds the first phase of a paged fetch
func (p *compiled) rootIDs(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	cols := []string{p.scope.alias + ".id"}
	for _, c := range p.orderCols {
		if c != cols[0] {
			cols = append(cols, c)
		}
	}
	sb := b.Select(cols...).Distinct().From(p.from())
	for _, j := range p.scope.joins {
		sb = sb.JoinClause(j)
	}
	if p.where != nil {
		sb = sb.Where(p.where)
	}
	return sb.OrderBy(p.orders...).Limit(p.limit).Offset(p.offset)
}

func (p *compiled) count(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	sb := b.Select("COUNT(DISTINCT " + p.scope.alias + ".id)").From(p.from())
	for _, j := range p.scope.joins {
		sb = sb.JoinClause(j)
	}
	if p.where != nil {
		sb = sb.Where(p.where)
	}
	return sb
}

// Build compiles the query for sess and returns the statement it would run
// first: the root-id page for paged collection fetches, the entity select
// otherwise.
func (c *Criteria) Build(sess *orm.Session) (string, []any, error) {
	p, err := c.compile(sess.Registry())
	if err != nil {
		return "", nil, err
	}
	if p.twoPhase() {
		return p.rootIDs(sess.Builder()).ToSql()
	}
	return p.entities(sess.Builder(), nil).ToSql()
}

// List runs c and returns the distinct roots in result order
func List[E orm.Entity](ctx context.Context, sess *orm.Session, c *Criteria) ([]E, error) {
	roots, err := run(ctx, sess, c)
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(roots))
	for _, r := range roots {
		e, ok := r.(E)
		if !ok {
			return nil, fmt.Errorf("query on %s produced %T", c.root, r)
		}
		out = append(out, e)
	}
	return out, nil
}

// First runs c limited to one root
func First[E orm.Entity](ctx context.Context, sess *orm.Session, c *Criteria) (E, bool, error) {
	var zero E
	q := c.clone()
	if !q.paged {
		q.Page(1, 1)
	}
	list, err := List[E](ctx, sess, q)
	if err != nil || len(list) == 0 {
		return zero, false, err
	}
	return list[0], true, nil
}

// Count returns the number of distinct roots matching c's filters
func Count(ctx context.Context, sess *orm.Session, c *Criteria) (int64, error) {
	q := c.clone()
	q.paged, q.fetch, q.orders = false, nil, nil
	p, err := q.compile(sess.Registry())
	if err != nil {
		return 0, err
	}
	rows, err := sess.Select(ctx, p.count(sess.Builder()))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func run(ctx context.Context, sess *orm.Session, c *Criteria) ([]orm.Entity, error) {
	p, err := c.compile(sess.Registry())
	if err != nil {
		return nil, err
	}
	b := sess.Builder()

	if !p.twoPhase() {
		return materialize(ctx, sess, p, p.entities(b, nil))
	}

	ids, err := readIDs(ctx, sess, p.rootIDs(b), 1+len(p.orderCols))
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return materialize(ctx, sess, p, p.entities(b, ids))
}

func readIDs(ctx context.Context, sess *orm.Session, sb squirrel.SelectBuilder, width int) ([]int64, error) {
	rows, err := sess.Select(ctx, sb)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := make([]any, width)
	ptrs := make([]any, width)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	var ids []int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		var id int64
		if err := orm.Assign(&id, raw[0]); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func qualify(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
