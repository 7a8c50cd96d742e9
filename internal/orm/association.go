package orm

import (
	"reflect"

	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Collection is a multi-valued association. The zero value is a loaded, empty
// collection, which is what a freshly constructed entity holds. Instances
// produced by a query have every association the query did not fetch marked
// as not loaded, and reading those fails with ErrLazyAssociationUnavailable.
//
// Add and Remove record deltas against the stored state; the persister turns
// the deltas of an owning association into join-row or foreign-key writes.
type Collection[T Entity] struct {
	items    []T
	unloaded bool
	added    []T
	removed  []T
}

// All returns the loaded members
func (c *Collection[T]) All(association string) ([]T, error) {
	if c.unloaded {
		return nil, apperrors.NewNotLoadedError(association)
	}
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out, nil
}

// Loaded reports whether the members are known
func (c *Collection[T]) Loaded() bool { return !c.unloaded }

// Contains reports whether v is a member of a loaded collection. On an
// unloaded collection it only knows about pending additions.
func (c *Collection[T]) Contains(v T) bool {
	return indexOf(c.items, v) >= 0 || indexOf(c.added, v) >= 0
}

// Add makes v a member. Adding an existing member is a no-op.
func (c *Collection[T]) Add(v T) bool {
	if isNil(v) || c.Contains(v) {
		return false
	}
	if i := indexOf(c.removed, v); i >= 0 {
		c.removed = append(c.removed[:i], c.removed[i+1:]...)
	} else {
		c.added = append(c.added, v)
	}
	if !c.unloaded {
		c.items = append(c.items, v)
	}
	return true
}

// Remove drops v. On an unloaded collection the removal is still recorded.
func (c *Collection[T]) Remove(v T) bool {
	if isNil(v) {
		return false
	}
	if i := indexOf(c.added, v); i >= 0 {
		c.added = append(c.added[:i], c.added[i+1:]...)
		if j := indexOf(c.items, v); j >= 0 {
			c.items = append(c.items[:j], c.items[j+1:]...)
		}
		return true
	}
	if c.unloaded {
		if indexOf(c.removed, v) >= 0 {
			return false
		}
		c.removed = append(c.removed, v)
		return true
	}
	j := indexOf(c.items, v)
	if j < 0 {
		return false
	}
	c.items = append(c.items[:j], c.items[j+1:]...)
	c.removed = append(c.removed, v)
	return true
}

// Len returns the number of loaded members
func (c *Collection[T]) Len() int { return len(c.items) }

func (c *Collection[T]) markUnloaded() {
	c.items = nil
	c.unloaded = true
}

// reset marks the collection loaded and empty, ready to be filled by a query.
// Pending deltas are kept.
func (c *Collection[T]) reset() {
	c.items = nil
	c.unloaded = false
}

func (c *Collection[T]) attach(v T) {
	if indexOf(c.items, v) < 0 && indexOf(c.removed, v) < 0 {
		c.items = append(c.items, v)
	}
}

func (c *Collection[T]) flush() (restore func()) {
	added, removed := c.added, c.removed
	c.added, c.removed = nil, nil
	return func() { c.added, c.removed = added, removed }
}

// Ref is a single-valued association with three states: not loaded, loaded
// and absent, loaded and present.
type Ref[T Entity] struct {
	value    T
	present  bool
	unloaded bool
	dirty    bool
}

// Get returns the referenced value. present is false when the association is
// loaded and empty.
func (r *Ref[T]) Get(association string) (value T, present bool, err error) {
	if r.unloaded {
		var zero T
		return zero, false, apperrors.NewNotLoadedError(association)
	}
	return r.value, r.present, nil
}

// Loaded reports whether the reference is known
func (r *Ref[T]) Loaded() bool { return !r.unloaded }

// Is reports whether the reference is loaded and points at v
func (r *Ref[T]) Is(v T) bool {
	return !r.unloaded && r.present && sameEntity(r.value, v)
}

// Set replaces the referenced value; a nil v clears it
func (r *Ref[T]) Set(v T) {
	r.dirty = true
	r.unloaded = false
	if isNil(v) {
		var zero T
		r.value, r.present = zero, false
		return
	}
	r.value, r.present = v, true
}

func (r *Ref[T]) markUnloaded() {
	var zero T
	r.value, r.present, r.unloaded = zero, false, true
}

func (r *Ref[T]) reset() {
	var zero T
	r.value, r.present, r.unloaded = zero, false, false
}

func (r *Ref[T]) attach(v T) {
	r.value, r.present, r.unloaded = v, !isNil(v), false
}

func (r *Ref[T]) flush() (restore func()) {
	dirty := r.dirty
	r.dirty = false
	return func() { r.dirty = dirty }
}

// ValueSet is a collection of plain values owned by an entity, without
// identity of their own.
type ValueSet[V comparable] struct {
	items    []V
	unloaded bool
	added    []V
	removed  []V
}

// All returns the loaded values
func (s *ValueSet[V]) All(association string) ([]V, error) {
	if s.unloaded {
		return nil, apperrors.NewNotLoadedError(association)
	}
	out := make([]V, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Loaded reports whether the values are known
func (s *ValueSet[V]) Loaded() bool { return !s.unloaded }

// Add inserts v unless present
func (s *ValueSet[V]) Add(v V) bool {
	if valueIndex(s.items, v) >= 0 || valueIndex(s.added, v) >= 0 {
		return false
	}
	if i := valueIndex(s.removed, v); i >= 0 {
		s.removed = append(s.removed[:i], s.removed[i+1:]...)
	} else {
		s.added = append(s.added, v)
	}
	if !s.unloaded {
		s.items = append(s.items, v)
	}
	return true
}

// Remove deletes v
func (s *ValueSet[V]) Remove(v V) bool {
	if i := valueIndex(s.added, v); i >= 0 {
		s.added = append(s.added[:i], s.added[i+1:]...)
		if j := valueIndex(s.items, v); j >= 0 {
			s.items = append(s.items[:j], s.items[j+1:]...)
		}
		return true
	}
	if j := valueIndex(s.items, v); j >= 0 {
		s.items = append(s.items[:j], s.items[j+1:]...)
	} else if !s.unloaded || valueIndex(s.removed, v) >= 0 {
		return false
	}
	s.removed = append(s.removed, v)
	return true
}

func (s *ValueSet[V]) markUnloaded() {
	s.items = nil
	s.unloaded = true
}

func (s *ValueSet[V]) reset() {
	s.items = nil
	s.unloaded = false
}

func (s *ValueSet[V]) attach(v V) {
	if valueIndex(s.items, v) < 0 && valueIndex(s.removed, v) < 0 {
		s.items = append(s.items, v)
	}
}

func (s *ValueSet[V]) flush() (restore func()) {
	added, removed := s.added, s.removed
	s.added, s.removed = nil, nil
	return func() { s.added, s.removed = added, removed }
}

func indexOf[T Entity](list []T, v T) int {
	for i, item := range list {
		if sameEntity(item, v) {
			return i
		}
	}
	return -1
}

func valueIndex[V comparable](list []V, v V) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

// sameEntity compares by pointer, then by persistent identity
func sameEntity(a, b Entity) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	if any(a) == any(b) {
		return true
	}
	ida, idb := a.Base().ID, b.Base().ID
	return ida != 0 && ida == idb && a.EntityName() == b.EntityName()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
