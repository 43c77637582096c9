package hub

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/fhn666/wgpu/id"
	"github.com/gogpu/gputypes"
)

// ErrInvalidID is returned when an identity is unknown to a table or its
// epoch is stale.
var ErrInvalidID = errors.New("hub: invalid identity")

// element is one slot of a Storage.
type element[T any] struct {
	epoch    id.Epoch
	value    *T
	occupied bool
}

// Storage is a concurrent identity→object table.
//
// Slots are reused through a free list; every reuse bumps the slot epoch
// so identities handed out for the previous occupant stop resolving.
// A retired slot stays off the free list until Reclaim finds its last
// identity no longer held.
type Storage[T any] struct {
	mu       sync.RWMutex
	name     string
	rank     Rank
	backend  gputypes.Backend
	elements []element[T]
	free     []id.Index
	withheld []id.Index
}

// NewStorage creates an empty table. Identities issued by the table carry
// the given backend tag.
func NewStorage[T any](rank Rank, backend gputypes.Backend) *Storage[T] {
	return &Storage[T]{
		name:    rank.String(),
		rank:    rank,
		backend: backend,
	}
}

// Rank returns the lock rank of the table.
func (s *Storage[T]) Rank() Rank { return s.rank }

// Register stores value under a fresh identity.
func (s *Storage[T]) Register(tok Token, value *T) id.ID[T] {
	g := s.Write(tok)
	defer g.Release()
	return g.Insert(value)
}

// Len returns the number of occupied slots.
func (s *Storage[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.elements {
		if s.elements[i].occupied {
			n++
		}
	}
	return n
}

// Withheld returns the number of retired slots not yet reclaimed.
func (s *Storage[T]) Withheld() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.withheld)
}

// Read acquires the table for reading.
func (s *Storage[T]) Read(tok Token) *ReadGuard[T] {
	tok.check(s.rank)
	s.mu.RLock()
	return &ReadGuard[T]{s: s}
}

// Write acquires the table for writing.
func (s *Storage[T]) Write(tok Token) *WriteGuard[T] {
	tok.check(s.rank)
	s.mu.Lock()
	return &WriteGuard[T]{s: s}
}

// lookup resolves i. The caller must hold s.mu.
func (s *Storage[T]) lookup(i id.ID[T]) (*T, error) {
	index, epoch, _ := i.Unzip()
	if int(index) >= len(s.elements) {
		return nil, fmt.Errorf("%w: %s %v", ErrInvalidID, s.name, i)
	}
	e := &s.elements[index]
	if !e.occupied || e.epoch != epoch {
		return nil, fmt.Errorf("%w: %s %v", ErrInvalidID, s.name, i)
	}
	return e.value, nil
}

// all iterates occupied slots. The caller must hold s.mu.
func (s *Storage[T]) all() iter.Seq2[id.ID[T], *T] {
	return func(yield func(id.ID[T], *T) bool) {
		for index := range s.elements {
			e := &s.elements[index]
			if !e.occupied {
				continue
			}
			if !yield(id.Zip[T](id.Index(index), e.epoch, s.backend), e.value) {
				return
			}
		}
	}
}

// ReadGuard is shared access to a Storage. Objects returned by Get must not
// be modified.
type ReadGuard[T any] struct {
	s        *Storage[T]
	released bool
}

// Token returns the token proving this table is held.
func (g *ReadGuard[T]) Token() Token { return Token{rank: g.s.rank} }

// Get resolves i.
func (g *ReadGuard[T]) Get(i id.ID[T]) (*T, error) { return g.s.lookup(i) }

// Contains reports whether i resolves.
func (g *ReadGuard[T]) Contains(i id.ID[T]) bool {
	_, err := g.s.lookup(i)
	return err == nil
}

// All iterates every live object.
func (g *ReadGuard[T]) All() iter.Seq2[id.ID[T], *T] { return g.s.all() }

// Release gives up the shared access. Releasing twice is a no-op.
func (g *ReadGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.s.mu.RUnlock()
}

// WriteGuard is exclusive access to a Storage.
type WriteGuard[T any] struct {
	s        *Storage[T]
	released bool
}

// Token returns the token proving this table is held.
func (g *WriteGuard[T]) Token() Token { return Token{rank: g.s.rank} }

// Get resolves i.
func (g *WriteGuard[T]) Get(i id.ID[T]) (*T, error) { return g.s.lookup(i) }

// GetMut resolves i for mutation.
func (g *WriteGuard[T]) GetMut(i id.ID[T]) (*T, error) { return g.s.lookup(i) }

// All iterates every live object.
func (g *WriteGuard[T]) All() iter.Seq2[id.ID[T], *T] { return g.s.all() }

// Insert stores value under a fresh identity.
func (g *WriteGuard[T]) Insert(value *T) id.ID[T] {
	s := g.s
	var index id.Index
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = id.Index(len(s.elements))
		s.elements = append(s.elements, element[T]{})
	}
	e := &s.elements[index]
	e.epoch++
	if e.epoch > id.MaxEpoch {
		e.epoch = 1
	}
	e.value = value
	e.occupied = true
	return id.Zip[T](index, e.epoch, s.backend)
}

// Remove deletes i from the table and returns the removed object.
func (g *WriteGuard[T]) Remove(i id.ID[T]) (*T, error) {
	value, err := g.s.lookup(i)
	if err != nil {
		return nil, err
	}
	e := &g.s.elements[i.Index()]
	e.value = nil
	e.occupied = false
	g.s.free = append(g.s.free, i.Index())
	return value, nil
}

// Retire deletes i from the table like Remove, but keeps its slot off the
// free list so the index is not reissued. The slot returns to the free
// list through Reclaim.
func (g *WriteGuard[T]) Retire(i id.ID[T]) (*T, error) {
	value, err := g.s.lookup(i)
	if err != nil {
		return nil, err
	}
	e := &g.s.elements[i.Index()]
	e.value = nil
	e.occupied = false
	g.s.withheld = append(g.s.withheld, i.Index())
	return value, nil
}

// Reclaim frees every retired slot whose last identity is not reported by
// held, and returns the number of slots freed.
func (g *WriteGuard[T]) Reclaim(held func(id.ID[T]) bool) int {
	s := g.s
	kept := s.withheld[:0]
	n := 0
	for _, index := range s.withheld {
		if held(id.Zip[T](index, s.elements[index].epoch, s.backend)) {
			kept = append(kept, index)
			continue
		}
		s.free = append(s.free, index)
		n++
	}
	clear(s.withheld[len(kept):])
	s.withheld = kept
	return n
}

// Release gives up the exclusive access. Releasing twice is a no-op.
func (g *WriteGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.s.mu.Unlock()
}
