package ecs

import (
	"iter"

	"github.com/rotisserie/eris"

	"github.com/l1jgo/entitycore/internal/core/event"
)

// View is the read-only collection contract shared by a plain Store and a
// filter's materialized view, so consumers need not know which one they hold.
type View[E comparable] interface {
	Count() int
	Contains(e E) bool
	// CopyTo copies up to len(dst) members into dst and returns how many were copied.
	CopyTo(dst []E) int
	// All is restartable; the collection must not be mutated while it runs.
	All() iter.Seq[E]

	Added() event.Source[E]
	Removed() event.Source[E]
	StateChanged() event.Source[struct{}]
}

// Store is an unordered membership set with change notification. Members are
// kept densely with an index map, so removal is a swap with the last member.
type Store[E comparable] struct {
	dense []E
	index map[E]int

	added   event.Signal[E]
	removed event.Signal[E]
	changed event.Signal[struct{}]
}

var _ View[int] = (*Store[int])(nil)

func NewStore[E comparable](capacity int) *Store[E] {
	return &Store[E]{
		dense: make([]E, 0, capacity),
		index: make(map[E]int, capacity),
	}
}

// Add inserts e and reports whether it was absent. Added and StateChanged
// fire only on a real insertion.
func (s *Store[E]) Add(e E) bool {
	s.guard("add")
	if _, ok := s.index[e]; ok {
		return false
	}
	s.index[e] = len(s.dense)
	s.dense = append(s.dense, e)
	s.added.Emit(e)
	s.changed.Emit(struct{}{})
	return true
}

// Remove deletes e and reports whether it was present.
func (s *Store[E]) Remove(e E) bool {
	s.guard("remove")
	idx, ok := s.index[e]
	if !ok {
		return false
	}
	last := len(s.dense) - 1
	moved := s.dense[last]
	s.dense[idx] = moved
	s.index[moved] = idx
	var zero E
	s.dense[last] = zero
	s.dense = s.dense[:last]
	delete(s.index, e)

	s.removed.Emit(e)
	s.changed.Emit(struct{}{})
	return true
}

// Clear removes every member, firing Removed for each and a single
// StateChanged at the end. Members are removed from the back so the order of
// the remaining ones is stable while listeners run.
func (s *Store[E]) Clear() int {
	s.guard("clear")
	n := len(s.dense)
	if n == 0 {
		return 0
	}
	var zero E
	for i := n - 1; i >= 0; i-- {
		e := s.dense[i]
		s.dense[i] = zero
		s.dense = s.dense[:i]
		delete(s.index, e)
		s.removed.Emit(e)
	}
	s.changed.Emit(struct{}{})
	return n
}

func (s *Store[E]) Contains(e E) bool {
	_, ok := s.index[e]
	return ok
}

func (s *Store[E]) Count() int { return len(s.dense) }

func (s *Store[E]) CopyTo(dst []E) int {
	return copy(dst, s.dense)
}

func (s *Store[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range s.dense {
			if !yield(e) {
				return
			}
		}
	}
}

// Each calls fn for every member.
func (s *Store[E]) Each(fn func(E)) {
	for _, e := range s.dense {
		fn(e)
	}
}

func (s *Store[E]) Added() event.Source[E]               { return &s.added }
func (s *Store[E]) Removed() event.Source[E]             { return &s.removed }
func (s *Store[E]) StateChanged() event.Source[struct{}] { return &s.changed }

// guard rejects structural changes made by a listener of this same store.
func (s *Store[E]) guard(op string) {
	if s.added.Dispatching() || s.removed.Dispatching() || s.changed.Dispatching() {
		panic(eris.Wrapf(ErrReentrantMutation, "store %s", op))
	}
}
