package ecs

// Subscription identifies a handler registered on a Signal.
type Subscription uint32

type signalHandler[T any] struct {
	id      Subscription
	fn      func(T)
	removed bool
}

// Signal is a synchronous observer list. Handlers run in subscription order on the
// world's goroutine. Handlers may subscribe or unsubscribe while an Emit runs: a
// handler removed mid-emit is not called again, one added mid-emit waits for the
// next Emit.
type Signal[T any] struct {
	handlers []*signalHandler[T]
	nextID   Subscription
}

// Subscribe registers fn and returns a handle for Unsubscribe.
func (s *Signal[T]) Subscribe(fn func(T)) Subscription {
	s.nextID++
	s.handlers = append(s.handlers, &signalHandler[T]{id: s.nextID, fn: fn})
	return s.nextID
}

// Unsubscribe removes the handler registered under id. Unknown ids are ignored.
func (s *Signal[T]) Unsubscribe(id Subscription) {
	for i, h := range s.handlers {
		if h.id == id {
			h.removed = true
			s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers.
func (s *Signal[T]) Len() int {
	return len(s.handlers)
}

// Emit calls every handler with v.
func (s *Signal[T]) Emit(v T) {
	if len(s.handlers) == 0 {
		return
	}
	for _, h := range s.handlers {
		if !h.removed {
			h.fn(v)
		}
	}
}
