package event

// Handle identifies one connection on a Signal. The zero Handle is never issued.
type Handle uint64

// Source is the subscriber-facing half of a Signal. Collections hand this out
// so observers can connect without being able to emit.
type Source[T any] interface {
	Connect(fn func(T)) Handle
	Disconnect(h Handle) bool
}

type listener[T any] struct {
	handle Handle
	fn     func(T)
}

// Signal is an ordered, synchronous observer list.
//
// Listeners run in connection order. A listener connected while an Emit is in
// flight does not see that event. A listener disconnected while an Emit is in
// flight is skipped for the rest of that dispatch and compacted out once the
// outermost Emit returns, so steady-state dispatch does not allocate.
type Signal[T any] struct {
	listeners []listener[T]
	next      Handle
	depth     int
	removed   int
}

var _ Source[int] = (*Signal[int])(nil)

// Connect appends fn and returns the handle needed to disconnect it.
func (s *Signal[T]) Connect(fn func(T)) Handle {
	s.next++
	s.listeners = append(s.listeners, listener[T]{handle: s.next, fn: fn})
	return s.next
}

// Disconnect removes the listener registered under h. It reports false if h is
// unknown or already disconnected.
func (s *Signal[T]) Disconnect(h Handle) bool {
	for i := range s.listeners {
		if s.listeners[i].handle != h || s.listeners[i].fn == nil {
			continue
		}
		if s.depth > 0 {
			s.listeners[i].fn = nil
			s.removed++
			return true
		}
		s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
		return true
	}
	return false
}

// Emit delivers v to every listener connected before the call.
func (s *Signal[T]) Emit(v T) {
	n := len(s.listeners)
	if n == 0 {
		return
	}
	s.depth++
	for i := 0; i < n; i++ {
		if fn := s.listeners[i].fn; fn != nil {
			fn(v)
		}
	}
	s.depth--
	if s.depth == 0 && s.removed > 0 {
		s.compact()
	}
}

// Len returns the number of live listeners.
func (s *Signal[T]) Len() int {
	return len(s.listeners) - s.removed
}

// Dispatching reports whether an Emit is currently in flight.
func (s *Signal[T]) Dispatching() bool {
	return s.depth > 0
}

func (s *Signal[T]) compact() {
	live := s.listeners[:0]
	for _, l := range s.listeners {
		if l.fn != nil {
			live = append(live, l)
		}
	}
	for i := len(live); i < len(s.listeners); i++ {
		s.listeners[i] = listener[T]{}
	}
	s.listeners = live
	s.removed = 0
}
