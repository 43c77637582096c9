package track

import (
	"iter"

	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
)

// Usage is the state recorded for a stateful resource.
type Usage[U any] interface {
	~uint32
	IsCompatible(U) bool
	IsValid() bool
	String() string
}

// PendingTransition is a usage change that needs a barrier before the
// resource can be used in its new state.
type PendingTransition[T any, U Usage[U]] struct {
	ID  id.ID[T]
	Old U
	New U
}

// Transitions for the two stateful categories.
type (
	BufferTransition  = PendingTransition[resource.Buffer, resource.BufferUse]
	TextureTransition = PendingTransition[resource.Texture, resource.TextureUse]
)

type statefulSlot[T any, U Usage[U]] struct {
	id   id.ID[T]
	use  U
	live bool
}

// StatefulTracker maps resources to their current usage. Entries are kept
// by identity index, so iteration runs in ascending index order.
// The zero value is an empty tracker.
type StatefulTracker[T any, U Usage[U]] struct {
	slots []statefulSlot[T, U]
	count int
}

// Trackers for the two stateful categories.
type (
	BufferTracker  = StatefulTracker[resource.Buffer, resource.BufferUse]
	TextureTracker = StatefulTracker[resource.Texture, resource.TextureUse]
)

func (t *StatefulTracker[T, U]) slot(index uint32) *statefulSlot[T, U] {
	if int(index) >= len(t.slots) {
		return nil
	}
	return &t.slots[index]
}

func (t *StatefulTracker[T, U]) grow(index uint32) *statefulSlot[T, U] {
	if n := int(index) + 1; n > len(t.slots) {
		if n <= cap(t.slots) {
			t.slots = t.slots[:n]
		} else {
			t.slots = append(t.slots, make([]statefulSlot[T, U], n-len(t.slots))...)
		}
	}
	return &t.slots[index]
}

// Use extends the usage of resource i with use. When the combination is not
// a valid state the entry is left as it was and a *UsageConflict is
// returned carrying the combined usage.
func (t *StatefulTracker[T, U]) Use(i id.ID[T], use U) error {
	s := t.grow(i.Index())
	if !s.live {
		s.id, s.use, s.live = i, use, true
		t.count++
		return nil
	}
	Assert(s.id == i, "tracked %v replaced by %v without removal", s.id, i)
	if !s.use.IsCompatible(use) {
		return conflictFor(i, s.use|use)
	}
	s.use |= use
	return nil
}

// Query returns the usage of i.
func (t *StatefulTracker[T, U]) Query(i id.ID[T]) (U, bool) {
	s := t.slot(i.Index())
	if s == nil || !s.live || s.id != i {
		return 0, false
	}
	return s.use, true
}

// Remove stops tracking i and reports whether it was tracked.
func (t *StatefulTracker[T, U]) Remove(i id.ID[T]) bool {
	s := t.slot(i.Index())
	if s == nil || !s.live || s.id != i {
		return false
	}
	*s = statefulSlot[T, U]{}
	t.count--
	return true
}

// Len returns the number of tracked resources.
func (t *StatefulTracker[T, U]) Len() int { return t.count }

// Clear removes every entry, keeping the allocation.
func (t *StatefulTracker[T, U]) Clear() {
	clear(t.slots)
	t.slots = t.slots[:0]
	t.count = 0
}

// All yields every tracked resource with its usage.
func (t *StatefulTracker[T, U]) All() iter.Seq2[id.ID[T], U] {
	return func(yield func(id.ID[T], U) bool) {
		for i := range t.slots {
			s := &t.slots[i]
			if s.live && !yield(s.id, s.use) {
				return
			}
		}
	}
}

// IDs returns the tracked identities in index order.
func (t *StatefulTracker[T, U]) IDs() []id.ID[T] {
	out := make([]id.ID[T], 0, t.count)
	for i := range t.All() {
		out = append(out, i)
	}
	return out
}

// Clone returns an independent copy of t.
func (t *StatefulTracker[T, U]) Clone() *StatefulTracker[T, U] {
	return &StatefulTracker[T, U]{
		slots: append([]statefulSlot[T, U](nil), t.slots...),
		count: t.count,
	}
}

// MergeExtend folds every entry of other into t as if by Use. Either all
// entries merge or none do; the first conflict in index order is returned.
func (t *StatefulTracker[T, U]) MergeExtend(other *StatefulTracker[T, U]) error {
	for i := range other.slots {
		o := &other.slots[i]
		if !o.live {
			continue
		}
		s := t.slot(uint32(i))
		if s == nil || !s.live {
			continue
		}
		Assert(s.id == o.id, "merging %v over tracked %v", o.id, s.id)
		if !s.use.IsCompatible(o.use) {
			return conflictFor(o.id, s.use|o.use)
		}
	}
	for i := range other.slots {
		o := &other.slots[i]
		if o.live {
			_ = t.Use(o.id, o.use)
		}
	}
	return nil
}

// MergeReplace folds head into t, replacing the usage of every entry head
// tracks. The returned sequence performs the merge as it is consumed and
// yields a transition for each entry whose usage differs from the one t
// held; an entry t did not track starts from the zero usage. Stopping
// early leaves the remaining entries of head unmerged.
func (t *StatefulTracker[T, U]) MergeReplace(head *StatefulTracker[T, U]) iter.Seq[PendingTransition[T, U]] {
	return func(yield func(PendingTransition[T, U]) bool) {
		for i := range head.slots {
			h := head.slots[i]
			if !h.live {
				continue
			}
			s := t.grow(uint32(i))
			var old U
			if s.live {
				Assert(s.id == h.id, "replacing tracked %v with %v", s.id, h.id)
				old = s.use
			} else {
				s.id, s.live = h.id, true
				t.count++
			}
			s.use = h.use
			if old == h.use {
				continue
			}
			if !yield(PendingTransition[T, U]{ID: h.id, Old: old, New: h.use}) {
				return
			}
		}
	}
}

// validate returns a conflict for the first entry holding an invalid state.
func (t *StatefulTracker[T, U]) validate() error {
	for i, u := range t.All() {
		if !u.IsValid() {
			return conflictFor(i, u)
		}
	}
	return nil
}
