package track

import (
	"fmt"
	"iter"

	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
)

type statelessSlot[T any] struct {
	id   id.ID[T]
	live bool
}

// StatelessTracker records which resources of one category are referenced.
// The zero value is an empty tracker.
type StatelessTracker[T any] struct {
	slots []statelessSlot[T]
	count int
}

// Trackers for the stateless categories.
type (
	ViewTracker            = StatelessTracker[resource.TextureView]
	BindGroupTracker       = StatelessTracker[resource.BindGroup]
	SamplerTracker         = StatelessTracker[resource.Sampler]
	ComputePipelineTracker = StatelessTracker[resource.ComputePipeline]
	RenderPipelineTracker  = StatelessTracker[resource.RenderPipeline]
	BundleTracker          = StatelessTracker[resource.RenderBundle]
)

// Add records i and reports whether it was not tracked before.
func (t *StatelessTracker[T]) Add(i id.ID[T]) bool {
	idx := int(i.Index())
	if idx >= len(t.slots) {
		t.slots = append(t.slots, make([]statelessSlot[T], idx+1-len(t.slots))...)
	}
	s := &t.slots[idx]
	if s.live {
		Assert(s.id == i, "tracked %v replaced by %v without removal", s.id, i)
		return false
	}
	s.id, s.live = i, true
	t.count++
	return true
}

// Contains reports whether i is tracked.
func (t *StatelessTracker[T]) Contains(i id.ID[T]) bool {
	idx := int(i.Index())
	return idx < len(t.slots) && t.slots[idx].live && t.slots[idx].id == i
}

// Remove stops tracking i and reports whether it was tracked.
func (t *StatelessTracker[T]) Remove(i id.ID[T]) bool {
	if !t.Contains(i) {
		return false
	}
	t.slots[i.Index()] = statelessSlot[T]{}
	t.count--
	return true
}

// Len returns the number of tracked resources.
func (t *StatelessTracker[T]) Len() int { return t.count }

// Clear removes every entry.
func (t *StatelessTracker[T]) Clear() {
	clear(t.slots)
	t.slots = t.slots[:0]
	t.count = 0
}

// All yields the tracked identities in index order.
func (t *StatelessTracker[T]) All() iter.Seq[id.ID[T]] {
	return func(yield func(id.ID[T]) bool) {
		for i := range t.slots {
			if t.slots[i].live && !yield(t.slots[i].id) {
				return
			}
		}
	}
}

// Clone returns an independent copy of t.
func (t *StatelessTracker[T]) Clone() *StatelessTracker[T] {
	return &StatelessTracker[T]{
		slots: append([]statelessSlot[T](nil), t.slots...),
		count: t.count,
	}
}

// MergeExtend adds every entry of other to t. The same index tracked with
// two different epochs means one of them outlived its resource; nothing is
// merged in that case and an error is returned.
func (t *StatelessTracker[T]) MergeExtend(other *StatelessTracker[T]) error {
	for i := range other.slots {
		o := other.slots[i]
		if !o.live || i >= len(t.slots) || !t.slots[i].live {
			continue
		}
		if t.slots[i].id != o.id {
			return fmt.Errorf("track: index %d tracked as %v and %v", i, t.slots[i].id, o.id)
		}
	}
	for i := range other.All() {
		t.Add(i)
	}
	return nil
}
