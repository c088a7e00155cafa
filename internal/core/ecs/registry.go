package ecs

import (
	"iter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/l1jgo/entitycore/internal/core/event"
)

// slot is one record of the registry's backing array. next links the slot
// into its bucket chain while occupied and into the free list while free.
// id == 0 marks a free slot.
type slot[E any] struct {
	id    ID
	owner E
	next  int
}

// Registry assigns and recycles stable integer ids for entities.
//
// Slots live in a dense array whose length always equals the bucket count, a
// prime from the growth table. Buckets hold the head of an open chain of slots
// keyed by id mod capacity. Freed slots go onto a free list and freed ids onto
// a LIFO stack, both consumed before growing.
//
// A Registry is not safe for concurrent use.
type Registry[E Identifiable] struct {
	slots    []slot[E]
	buckets  []int
	used     int // slots handed out from the tail of the array
	freeHead int
	count    int
	maxID    ID
	recycled []ID
	resizes  int
	checked  bool

	added   event.Signal[E]
	removed event.Signal[E]

	log *zap.Logger
}

// NewRegistry creates a registry whose initial capacity is the smallest
// table prime >= capacity.
func NewRegistry[E Identifiable](capacity int, log *zap.Logger) *Registry[E] {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry[E]{
		freeHead: -1,
		recycled: make([]ID, 0, 16),
		log:      log,
	}
	r.allocate(primeAtLeast(capacity))
	return r
}

// SetChecked toggles contract assertions. In checked mode Register panics
// with ErrContractViolation when the entity already holds a live id.
func (r *Registry[E]) SetChecked(on bool) { r.checked = on }

// Added fires after an entity has been registered and carries its new id.
func (r *Registry[E]) Added() event.Source[E] { return &r.added }

// Removed fires after an entity has been unregistered; its id is already cleared.
func (r *Registry[E]) Removed() event.Source[E] { return &r.removed }

// Count returns the number of registered entities.
func (r *Registry[E]) Count() int { return r.count }

// Capacity returns the current slot/bucket count.
func (r *Registry[E]) Capacity() int { return len(r.slots) }

// Resizes returns how many times the table has grown.
func (r *Registry[E]) Resizes() int { return r.resizes }

// Register issues an id for e, stores it on e and fires Added.
func (r *Registry[E]) Register(e E) ID {
	if r.checked && r.Contains(e) {
		panic(eris.Wrapf(ErrContractViolation, "entity already registered as %d", e.ID()))
	}

	var id ID
	if n := len(r.recycled); n > 0 {
		id = r.recycled[n-1]
		r.recycled = r.recycled[:n-1]
	} else {
		r.maxID++
		id = r.maxID
	}

	idx := r.takeSlot()
	b := r.bucket(id)
	r.slots[idx] = slot[E]{id: id, owner: e, next: r.buckets[b]}
	r.buckets[b] = idx
	r.count++

	e.SetID(id)
	r.added.Emit(e)
	return id
}

// Unregister releases the id held by e. It is a no-op returning false when e
// holds no id or its id belongs to a different entity, so unregistering twice
// is harmless.
func (r *Registry[E]) Unregister(e E) bool {
	owner, ok := r.unlink(e.ID(), &e)
	if !ok {
		return false
	}
	owner.SetID(0)
	r.removed.Emit(owner)
	return true
}

// UnregisterID releases id regardless of which entity holds it. Unknown ids
// are a no-op returning false.
func (r *Registry[E]) UnregisterID(id ID) bool {
	owner, ok := r.unlink(id, nil)
	if !ok {
		return false
	}
	owner.SetID(0)
	r.removed.Emit(owner)
	return true
}

// Get returns the entity registered under id, or an error wrapping ErrNotFound.
func (r *Registry[E]) Get(id ID) (E, error) {
	if idx := r.find(id); idx >= 0 {
		return r.slots[idx].owner, nil
	}
	var zero E
	return zero, eris.Wrapf(ErrNotFound, "entity id %d", id)
}

// TryGet is Get without the error allocation.
func (r *Registry[E]) TryGet(id ID) (E, bool) {
	if idx := r.find(id); idx >= 0 {
		return r.slots[idx].owner, true
	}
	var zero E
	return zero, false
}

// Contains reports whether e is the current holder of its id.
func (r *Registry[E]) Contains(e E) bool {
	idx := r.find(e.ID())
	return idx >= 0 && r.slots[idx].owner == e
}

// ContainsID reports whether id is currently issued.
func (r *Registry[E]) ContainsID(id ID) bool {
	return r.find(id) >= 0
}

// All yields every registered entity. Order is unspecified and may change
// across resizes; the registry must not be mutated during iteration.
func (r *Registry[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for i := 0; i < r.used; i++ {
			if r.slots[i].id == 0 {
				continue
			}
			if !yield(r.slots[i].owner) {
				return
			}
		}
	}
}

func (r *Registry[E]) bucket(id ID) int {
	return int(id) % len(r.buckets)
}

func (r *Registry[E]) find(id ID) int {
	if id <= 0 {
		return -1
	}
	for i := r.buckets[r.bucket(id)]; i >= 0; i = r.slots[i].next {
		if r.slots[i].id == id {
			return i
		}
	}
	return -1
}

// takeSlot pops the free list, else appends, growing the table first when
// the array is exhausted.
func (r *Registry[E]) takeSlot() int {
	if r.freeHead >= 0 {
		idx := r.freeHead
		r.freeHead = r.slots[idx].next
		return idx
	}
	if r.used == len(r.slots) {
		r.resize()
	}
	idx := r.used
	r.used++
	return idx
}

// unlink removes the slot holding id from its chain and recycles both the
// slot and the id. When owner is non-nil the slot must belong to it.
func (r *Registry[E]) unlink(id ID, owner *E) (E, bool) {
	var zero E
	if id <= 0 {
		return zero, false
	}
	b := r.bucket(id)
	prev := -1
	for i := r.buckets[b]; i >= 0; prev, i = i, r.slots[i].next {
		s := &r.slots[i]
		if s.id != id {
			continue
		}
		if owner != nil && s.owner != *owner {
			return zero, false
		}
		if prev < 0 {
			r.buckets[b] = s.next
		} else {
			r.slots[prev].next = s.next
		}
		e := s.owner
		s.id = 0
		s.owner = zero
		s.next = r.freeHead
		r.freeHead = i
		r.recycled = append(r.recycled, id)
		r.count--
		return e, true
	}
	return zero, false
}

func (r *Registry[E]) allocate(size int) {
	slots := make([]slot[E], size)
	copy(slots, r.slots)
	r.slots = slots
	r.buckets = make([]int, size)
	for i := range r.buckets {
		r.buckets[i] = -1
	}
}

// resize grows to the next table prime and rehashes every occupied slot.
// Only called when no free slot exists, so slots[:used] are all occupied.
func (r *Registry[E]) resize() {
	old := len(r.slots)
	r.allocate(nextPrime(old))
	for i := 0; i < r.used; i++ {
		s := &r.slots[i]
		if s.id == 0 {
			continue
		}
		b := r.bucket(s.id)
		s.next = r.buckets[b]
		r.buckets[b] = i
	}
	r.resizes++
	r.log.Debug("registry resized",
		zap.Int("from", old),
		zap.Int("to", len(r.slots)),
		zap.Int("count", r.count),
	)
}
