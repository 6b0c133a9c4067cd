package application

import (
	"slices"
	"sync"
)

// Subscription is the handle returned by every On* registration.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes exactly the registration that produced s. Calling it
// more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Topic is a typed fan-out channel. Publish calls subscribers synchronously
// on the caller's goroutine, outside the topic lock.
type Topic[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

func (t *Topic[T]) Subscribe(fn func(T)) *Subscription {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	// copy on write so a Publish in progress keeps its own slice
	subs := slices.Clone(t.subs)
	t.subs = append(subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	return &Subscription{cancel: func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.subs = slices.DeleteFunc(slices.Clone(t.subs), func(s subscriber[T]) bool {
			return s.id == id
		})
	}}
}

func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := t.subs
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}
