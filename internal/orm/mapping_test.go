package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesLinks(t *testing.T) {
	reg := widgetRegistry(t)

	w, err := reg.Entity("Widget")
	require.NoError(t, err)
	parts, ok := w.Relation("parts")
	require.True(t, ok)
	assert.Equal(t, "widget_id", parts.ForeignKey, "one-to-many takes the owning foreign key")
	assert.Equal(t, Link{SourceKey: "id", TargetKey: "widget_id"}, parts.Link())
	require.NotNil(t, parts.Inverse())
	assert.Equal(t, "widget", parts.Inverse().Name)

	tags, _ := w.Relation("tags")
	assert.Equal(t, Link{JoinTable: "widget_tags", SourceKey: "id", NearKey: "widget_id"}, tags.Link())
	assert.True(t, tags.MultiValued())

	p, _ := reg.Entity("Part")
	owner, _ := p.Relation("widget")
	assert.True(t, owner.Owner)
	assert.Equal(t, Link{SourceKey: "widget_id", TargetKey: "id"}, owner.Link())

	assert.Equal(t, []string{"Part", "Widget"}, reg.Names())
	assert.Equal(t, []string{"id", "version", "name"}, w.SelectColumns())

	_, err = reg.Entity("Gadget")
	assert.Error(t, err)
}

func TestRegistryRejectsIncompleteRelations(t *testing.T) {
	build := func(rel *Relation) error {
		reg := NewRegistry().
			Register(&EntityMeta{Name: "Widget", Table: "widgets", Relations: []*Relation{rel}}).
			Register(&EntityMeta{Name: "Part", Table: "parts"})
		return reg.Build()
	}

	tests := []struct {
		name string
		rel  *Relation
	}{
		{"one-to-many without key", &Relation{Name: "parts", Kind: OneToMany, Target: "Part", Many: &CollectionAccess{}}},
		{"missing accessor", &Relation{Name: "parts", Kind: OneToMany, Target: "Part", ForeignKey: "widget_id"}},
		{"unknown target", &Relation{Name: "gadget", Kind: ManyToOne, Target: "Gadget", ForeignKey: "gadget_id", One: &RefAccess{}}},
		{"many-to-one without key", &Relation{Name: "part", Kind: ManyToOne, Target: "Part", One: &RefAccess{}}},
		{"inverse one-to-one without mappedBy", &Relation{Name: "part", Kind: OneToOne, Target: "Part", One: &RefAccess{}}},
		{"owning many-to-many without join table", &Relation{Name: "parts", Kind: ManyToMany, Target: "Part", Owner: true, Many: &CollectionAccess{}}},
		{"inverse many-to-many without owner", &Relation{Name: "parts", Kind: ManyToMany, Target: "Part", Many: &CollectionAccess{}}},
		{"element collection without table", &Relation{Name: "tags", Kind: ElementCollection, Values: &ValueAccess{}}},
		{"mapped by unknown relation", &Relation{Name: "parts", Kind: OneToMany, Target: "Part", MappedBy: "widget", Many: &CollectionAccess{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, build(tt.rel))
		})
	}
}

func TestInverseOneToOneCopiesForeignKey(t *testing.T) {
	reg := NewRegistry().
		Register(&EntityMeta{Name: "Widget", Table: "widgets", Relations: []*Relation{{
			Name: "label", Kind: OneToOne, Target: "Part", MappedBy: "widget", One: &RefAccess{},
		}}}).
		Register(&EntityMeta{Name: "Part", Table: "parts", Relations: []*Relation{{
			Name: "widget", Kind: OneToOne, Target: "Widget", Owner: true, ForeignKey: "widget_id", One: &RefAccess{},
		}}})
	require.NoError(t, reg.Build())

	w, _ := reg.Entity("Widget")
	label, _ := w.Relation("label")
	assert.Equal(t, "widget_id", label.ForeignKey)
	assert.Equal(t, Link{SourceKey: "id", TargetKey: "widget_id"}, label.Link())
	assert.False(t, label.MultiValued())
}

func TestHydrateAndMarkUnloaded(t *testing.T) {
	reg := widgetRegistry(t)
	meta, _ := reg.Entity("Widget")

	w := &widget{}
	require.NoError(t, meta.Hydrate(w, []any{int64(3), int64(2), []byte("gear")}))
	assert.Equal(t, int64(3), w.ID)
	assert.Equal(t, int64(2), w.Version)
	assert.Equal(t, "gear", w.Name)

	assert.Error(t, meta.Hydrate(w, []any{int64(3)}))

	meta.MarkUnloaded(w)
	assert.False(t, w.parts.Loaded())
	assert.False(t, w.tags.Loaded())

	col, ok := meta.Column("version")
	require.True(t, ok)
	assert.Equal(t, "version", col.Name)
	_, ok = meta.ColumnNamed("version")
	assert.False(t, ok, "synthetic columns are not mapped columns")
}

func TestCascadeHas(t *testing.T) {
	assert.True(t, CascadeAll.Has(CascadeRemove))
	assert.True(t, CascadeAll.Has(CascadePersist|CascadeMerge))
	assert.False(t, (CascadePersist | CascadeMerge).Has(CascadeRemove))
	assert.True(t, CascadeNone.Has(CascadeNone))
	assert.Equal(t, "many-to-many", ManyToMany.String())
}
