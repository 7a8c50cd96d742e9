package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

func TestCollectionDeltas(t *testing.T) {
	var c Collection[*part]
	a, b := &part{Label: "a"}, &part{Label: "b"}

	assert.True(t, c.Loaded())
	assert.True(t, c.Add(a))
	assert.False(t, c.Add(a))
	assert.True(t, c.Add(b))
	assert.False(t, c.Add(nil))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []*part{a, b}, c.added)

	// removing a pending addition cancels it
	assert.True(t, c.Remove(b))
	assert.Equal(t, []*part{a}, c.added)
	assert.Empty(t, c.removed)

	restore := c.flush()
	assert.Empty(t, c.added)
	assert.True(t, c.Remove(a))
	assert.Equal(t, []*part{a}, c.removed)

	// re-adding a removed member cancels the removal
	assert.True(t, c.Add(a))
	assert.Empty(t, c.removed)
	assert.Empty(t, c.added)

	restore()
	assert.Equal(t, []*part{a}, c.added)
}

func TestCollectionUnloaded(t *testing.T) {
	var c Collection[*part]
	c.markUnloaded()

	_, err := c.All("Widget.parts")
	require.ErrorIs(t, err, apperrors.ErrLazyAssociationUnavailable)
	var nle *apperrors.NotLoadedError
	require.ErrorAs(t, err, &nle)
	assert.Equal(t, "Widget.parts", nle.Association)

	p := &part{Model: Model{ID: 4}}
	assert.True(t, c.Add(p))
	assert.Equal(t, 0, c.Len(), "unknown members are not materialized")
	assert.True(t, c.Contains(p))

	q := &part{Model: Model{ID: 5}}
	assert.True(t, c.Remove(q))
	assert.False(t, c.Remove(q))

	c.reset()
	c.attach(&part{Model: Model{ID: 5}})
	c.attach(&part{Model: Model{ID: 6}})
	c.attach(&part{Model: Model{ID: 6}})
	items, err := c.All("Widget.parts")
	require.NoError(t, err)
	require.Len(t, items, 1, "removed and duplicate members are not attached")
	assert.Equal(t, int64(6), items[0].ID)
}

func TestSameEntityByIdentity(t *testing.T) {
	a := &part{Model: Model{ID: 9}}
	b := &part{Model: Model{ID: 9}}
	assert.True(t, sameEntity(a, b))
	assert.False(t, sameEntity(&part{}, &part{}), "transient instances compare by pointer")
	assert.False(t, sameEntity(nil, a))
	assert.False(t, sameEntity(a, &widget{Model: Model{ID: 9}}))
}

func TestRef(t *testing.T) {
	var r Ref[*widget]
	v, ok, err := r.Get("Part.widget")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	w := &widget{Name: "gear"}
	r.Set(w)
	assert.True(t, r.Is(w))
	assert.True(t, r.dirty)

	restore := r.flush()
	assert.False(t, r.dirty)
	restore()
	assert.True(t, r.dirty)

	r.Set(nil)
	_, ok, _ = r.Get("Part.widget")
	assert.False(t, ok)

	r.markUnloaded()
	_, _, err = r.Get("Part.widget")
	assert.ErrorIs(t, err, apperrors.ErrLazyAssociationUnavailable)
	assert.False(t, r.Is(w))

	r.attach(w)
	got, ok, err := r.Get("Part.widget")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestValueSet(t *testing.T) {
	var s ValueSet[string]
	assert.True(t, s.Add("red"))
	assert.False(t, s.Add("red"))
	s.flush()

	assert.True(t, s.Remove("red"))
	assert.False(t, s.Remove("red"))
	assert.Equal(t, []string{"red"}, s.removed)
	assert.True(t, s.Add("red"))
	assert.Empty(t, s.removed)

	s.markUnloaded()
	_, err := s.All("Widget.tags")
	assert.ErrorIs(t, err, apperrors.ErrLazyAssociationUnavailable)
	assert.True(t, s.Remove("blue"), "removal from an unloaded set is recorded")
}
