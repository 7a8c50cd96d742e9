package orm

import (
	"fmt"
	"sort"
	"strings"
)

// Model carries the identity and optimistic version shared by every entity.
// Embed it in mapped structs.
type Model struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// Base returns the embedded model
func (m *Model) Base() *Model { return m }

// Entity is a mapped domain object with persistent identity
type Entity interface {
	EntityName() string
	Base() *Model
}

// Column maps one entity field to one table column
type Column struct {
	// Field is the name queries use to address the column
	Field string
	Name  string
	Get   func(Entity) any
	Set   func(Entity, any) error
}

// FieldColumn maps a plain struct field. ref returns a pointer to the field.
func FieldColumn[E any, V any](field, column string, ref func(*E) *V) Column {
	return Column{
		Field: field,
		Name:  column,
		Get: func(e Entity) any {
			v := ref(any(e).(*E))
			return deref(*v)
		},
		Set: func(e Entity, raw any) error {
			return Assign(ref(any(e).(*E)), raw)
		},
	}
}

// RelationKind classifies associations
type RelationKind int

const (
	ManyToOne RelationKind = iota
	OneToOne
	OneToMany
	ManyToMany
	ElementCollection
)

func (k RelationKind) String() string {
	switch k {
	case ManyToOne:
		return "many-to-one"
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case ManyToMany:
		return "many-to-many"
	case ElementCollection:
		return "element-collection"
	default:
		return "unknown"
	}
}

// Cascade is a set of operations propagated from owner to target
type Cascade uint8

const (
	CascadePersist Cascade = 1 << iota
	CascadeMerge
	CascadeRemove

	CascadeNone Cascade = 0
	CascadeAll          = CascadePersist | CascadeMerge | CascadeRemove
)

// Has reports whether every operation in op is cascaded
func (c Cascade) Has(op Cascade) bool { return c&op == op }

// Relation describes one association of an entity. Cascade and fetch policy
// live here as data.
type Relation struct {
	Name   string
	Kind   RelationKind
	Target string
	// Owner marks the side that holds the foreign key or join rows
	Owner bool
	// MappedBy names the owning relation on Target, for inverse sides
	MappedBy string

	// ForeignKey is the FK column. For owning to-one sides it is on the
	// source table; for one-to-many and inverse one-to-one it is on Target.
	ForeignKey string

	// Join table of an owning many-to-many or an element collection
	JoinTable         string
	JoinColumn        string
	InverseJoinColumn string
	ValueColumn       string

	Cascade       Cascade
	OrphanRemoval bool

	Many   *CollectionAccess
	One    *RefAccess
	Values *ValueAccess

	link    Link
	inverse *Relation
}

// MultiValued reports whether following the relation fans out rows
func (r *Relation) MultiValued() bool {
	return r.Kind == OneToMany || r.Kind == ManyToMany || r.Kind == ElementCollection
}

// Link returns how target rows are reached from source rows
func (r *Relation) Link() Link { return r.link }

// Inverse returns the other side of a bidirectional relation, if mapped
func (r *Relation) Inverse() *Relation { return r.inverse }

// Link is the resolved join path of a relation. Without a join table the
// target row matches when target.TargetKey = source.SourceKey. With one, the
// join row matches on JoinTable.NearKey = source.SourceKey and the target on
// target.TargetKey = JoinTable.FarKey.
type Link struct {
	JoinTable string
	SourceKey string
	NearKey   string
	FarKey    string
	TargetKey string
}

// CollectionAccess reaches a Collection field without knowing its types
type CollectionAccess struct {
	Loaded       func(owner Entity) bool
	Items        func(owner Entity) []Entity
	Added        func(owner Entity) []Entity
	Removed      func(owner Entity) []Entity
	Reset        func(owner Entity)
	MarkUnloaded func(owner Entity)
	Attach       func(owner, item Entity)
	Flush        func(owner Entity) func()
}

// Many builds the accessor for a Collection field
func Many[E any, T Entity](ref func(*E) *Collection[T]) *CollectionAccess {
	get := func(owner Entity) *Collection[T] { return ref(any(owner).(*E)) }
	return &CollectionAccess{
		Loaded:       func(o Entity) bool { return get(o).Loaded() },
		Items:        func(o Entity) []Entity { return erase(get(o).items) },
		Added:        func(o Entity) []Entity { return erase(get(o).added) },
		Removed:      func(o Entity) []Entity { return erase(get(o).removed) },
		Reset:        func(o Entity) { get(o).reset() },
		MarkUnloaded: func(o Entity) { get(o).markUnloaded() },
		Attach:       func(o, item Entity) { get(o).attach(item.(T)) },
		Flush:        func(o Entity) func() { return get(o).flush() },
	}
}

// RefAccess reaches a Ref field without knowing its types
type RefAccess struct {
	Loaded       func(owner Entity) bool
	Get          func(owner Entity) (Entity, bool)
	Dirty        func(owner Entity) bool
	Reset        func(owner Entity)
	MarkUnloaded func(owner Entity)
	Attach       func(owner, target Entity)
	Flush        func(owner Entity) func()
}

// One builds the accessor for a Ref field
func One[E any, T Entity](ref func(*E) *Ref[T]) *RefAccess {
	get := func(owner Entity) *Ref[T] { return ref(any(owner).(*E)) }
	return &RefAccess{
		Loaded: func(o Entity) bool { return get(o).Loaded() },
		Get: func(o Entity) (Entity, bool) {
			r := get(o)
			if r.unloaded || !r.present {
				return nil, false
			}
			return r.value, true
		},
		Dirty:        func(o Entity) bool { return get(o).dirty },
		Reset:        func(o Entity) { get(o).reset() },
		MarkUnloaded: func(o Entity) { get(o).markUnloaded() },
		Attach: func(o, target Entity) {
			if target == nil {
				get(o).reset()
				return
			}
			get(o).attach(target.(T))
		},
		Flush: func(o Entity) func() { return get(o).flush() },
	}
}

// ValueAccess reaches a ValueSet field without knowing its types
type ValueAccess struct {
	Loaded       func(owner Entity) bool
	Added        func(owner Entity) []any
	Removed      func(owner Entity) []any
	Reset        func(owner Entity)
	MarkUnloaded func(owner Entity)
	Attach       func(owner Entity, raw any) error
	Flush        func(owner Entity) func()
}

// Values builds the accessor for a ValueSet field
func Values[E any, V comparable](ref func(*E) *ValueSet[V]) *ValueAccess {
	get := func(owner Entity) *ValueSet[V] { return ref(any(owner).(*E)) }
	return &ValueAccess{
		Loaded:       func(o Entity) bool { return get(o).Loaded() },
		Added:        func(o Entity) []any { return eraseValues(get(o).added) },
		Removed:      func(o Entity) []any { return eraseValues(get(o).removed) },
		Reset:        func(o Entity) { get(o).reset() },
		MarkUnloaded: func(o Entity) { get(o).markUnloaded() },
		Attach: func(o Entity, raw any) error {
			var v V
			if err := Assign(&v, raw); err != nil {
				return err
			}
			get(o).attach(v)
			return nil
		},
		Flush: func(o Entity) func() { return get(o).flush() },
	}
}

func erase[T Entity](items []T) []Entity {
	out := make([]Entity, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func eraseValues[V comparable](items []V) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// EntityMeta is the mapping of one entity type
type EntityMeta struct {
	Name    string
	Table   string
	New     func() Entity
	Columns []Column

	Relations []*Relation

	columns   map[string]*Column
	relations map[string]*Relation
}

// Column looks up a mapped column by field name. id and version are always
// present.
func (m *EntityMeta) Column(field string) (*Column, bool) {
	c, ok := m.columns[field]
	return c, ok
}

// ColumnNamed looks up a mapped column by column name
func (m *EntityMeta) ColumnNamed(name string) (*Column, bool) {
	for i := range m.Columns {
		if m.Columns[i].Name == name {
			return &m.Columns[i], true
		}
	}
	return nil, false
}

// Relation looks up an association by name
func (m *EntityMeta) Relation(name string) (*Relation, bool) {
	r, ok := m.relations[name]
	return r, ok
}

// SelectColumns returns id, version and every mapped column, in scan order
func (m *EntityMeta) SelectColumns() []string {
	cols := make([]string, 0, len(m.Columns)+2)
	cols = append(cols, "id", "version")
	for _, c := range m.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

// Hydrate fills e from raw values in SelectColumns order
func (m *EntityMeta) Hydrate(e Entity, raw []any) error {
	if len(raw) != len(m.Columns)+2 {
		return fmt.Errorf("%s: expected %d values, got %d", m.Name, len(m.Columns)+2, len(raw))
	}
	base := e.Base()
	if err := Assign(&base.ID, raw[0]); err != nil {
		return fmt.Errorf("%s.id: %w", m.Name, err)
	}
	if err := Assign(&base.Version, raw[1]); err != nil {
		return fmt.Errorf("%s.version: %w", m.Name, err)
	}
	for i, c := range m.Columns {
		if err := c.Set(e, raw[i+2]); err != nil {
			return fmt.Errorf("%s.%s: %w", m.Name, c.Field, err)
		}
	}
	return nil
}

// MarkUnloaded flags every association of e as not loaded
func (m *EntityMeta) MarkUnloaded(e Entity) {
	for _, r := range m.Relations {
		switch {
		case r.Many != nil:
			r.Many.MarkUnloaded(e)
		case r.One != nil:
			r.One.MarkUnloaded(e)
		case r.Values != nil:
			r.Values.MarkUnloaded(e)
		}
	}
}

// NamedQuery is a native statement registered under a stable name and
// prepared once per session. Placeholders are written as ?.
type NamedQuery struct {
	Name string
	SQL  string
}

// Registry holds the mapping of every entity and the named queries
type Registry struct {
	entities map[string]*EntityMeta
	queries  map[string]NamedQuery
	built    bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntityMeta),
		queries:  make(map[string]NamedQuery),
	}
}

// Register adds an entity mapping
func (r *Registry) Register(meta *EntityMeta) *Registry {
	r.entities[meta.Name] = meta
	r.built = false
	return r
}

// Named adds a named native query
func (r *Registry) Named(name, sql string) *Registry {
	r.queries[name] = NamedQuery{Name: name, SQL: strings.TrimSpace(sql)}
	return r
}

// Query returns a named query
func (r *Registry) Query(name string) (NamedQuery, bool) {
	q, ok := r.queries[name]
	return q, ok
}

// Entity returns the mapping for name
func (r *Registry) Entity(name string) (*EntityMeta, error) {
	m, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("entity %q is not mapped", name)
	}
	return m, nil
}

// MetaOf returns the mapping of e
func (r *Registry) MetaOf(e Entity) (*EntityMeta, error) {
	return r.Entity(e.EntityName())
}

// Names returns the mapped entity names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build indexes columns and resolves every relation's link and inverse.
// It must be called once all entities are registered.
func (r *Registry) Build() error {
	for _, meta := range r.entities {
		meta.columns = make(map[string]*Column, len(meta.Columns)+2)
		meta.columns["id"] = &Column{Field: "id", Name: "id"}
		meta.columns["version"] = &Column{Field: "version", Name: "version"}
		for i := range meta.Columns {
			meta.columns[meta.Columns[i].Field] = &meta.Columns[i]
		}
		meta.relations = make(map[string]*Relation, len(meta.Relations))
		for _, rel := range meta.Relations {
			meta.relations[rel.Name] = rel
		}
	}

	for _, meta := range r.entities {
		for _, rel := range meta.Relations {
			if err := r.resolve(meta, rel); err != nil {
				return err
			}
		}
	}
	r.built = true
	return nil
}

func (r *Registry) resolve(meta *EntityMeta, rel *Relation) error {
	where := meta.Name + "." + rel.Name

	switch {
	case rel.Kind == ElementCollection:
		if rel.Values == nil || rel.JoinTable == "" || rel.JoinColumn == "" || rel.ValueColumn == "" {
			return fmt.Errorf("%s: element collection needs a value accessor, join table, join column and value column", where)
		}
		rel.link = Link{JoinTable: rel.JoinTable, SourceKey: "id", NearKey: rel.JoinColumn}
		return nil
	case rel.MultiValued() && rel.Many == nil:
		return fmt.Errorf("%s: collection accessor missing", where)
	case !rel.MultiValued() && rel.One == nil:
		return fmt.Errorf("%s: reference accessor missing", where)
	}

	target, err := r.Entity(rel.Target)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}

	var owning *Relation
	if rel.MappedBy != "" {
		o, ok := target.relations[rel.MappedBy]
		if !ok {
			return fmt.Errorf("%s: mapped by unknown relation %s.%s", where, target.Name, rel.MappedBy)
		}
		owning = o
		rel.inverse, o.inverse = o, rel
	}

	switch rel.Kind {
	case ManyToOne:
		if rel.ForeignKey == "" {
			return fmt.Errorf("%s: foreign key required", where)
		}
		rel.Owner = true
		rel.link = Link{SourceKey: rel.ForeignKey, TargetKey: "id"}
	case OneToOne:
		if rel.Owner {
			if rel.ForeignKey == "" {
				return fmt.Errorf("%s: foreign key required on owning side", where)
			}
			rel.link = Link{SourceKey: rel.ForeignKey, TargetKey: "id"}
		} else {
			if owning == nil {
				return fmt.Errorf("%s: inverse one-to-one needs mappedBy", where)
			}
			rel.ForeignKey = owning.ForeignKey
			rel.link = Link{SourceKey: "id", TargetKey: owning.ForeignKey}
		}
	case OneToMany:
		fk := rel.ForeignKey
		if fk == "" && owning != nil {
			fk = owning.ForeignKey
		}
		if fk == "" {
			return fmt.Errorf("%s: foreign key required", where)
		}
		rel.ForeignKey = fk
		rel.link = Link{SourceKey: "id", TargetKey: fk}
	case ManyToMany:
		if rel.Owner {
			if rel.JoinTable == "" || rel.JoinColumn == "" || rel.InverseJoinColumn == "" {
				return fmt.Errorf("%s: owning many-to-many needs a join table and both join columns", where)
			}
			rel.link = Link{JoinTable: rel.JoinTable, SourceKey: "id", NearKey: rel.JoinColumn, FarKey: rel.InverseJoinColumn, TargetKey: "id"}
		} else {
			if owning == nil || !owning.Owner {
				return fmt.Errorf("%s: inverse many-to-many needs mappedBy an owning relation", where)
			}
			rel.JoinTable = owning.JoinTable
			rel.JoinColumn, rel.InverseJoinColumn = owning.InverseJoinColumn, owning.JoinColumn
			rel.link = Link{JoinTable: owning.JoinTable, SourceKey: "id", NearKey: owning.InverseJoinColumn, FarKey: owning.JoinColumn, TargetKey: "id"}
		}
	}
	return nil
}

// Built reports whether Build succeeded since the last registration
func (r *Registry) Built() bool { return r.built }
