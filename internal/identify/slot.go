package identify

import (
	"context"
	"sync"
)

// slot holds one lazily constructed collaborator. The factory runs at most
// once; its value and error are memoized.
type slot[T any] struct {
	once    sync.Once
	factory func(ctx context.Context) (T, error)
	value   T
	err     error
}

func newSlot[T any](factory func(ctx context.Context) (T, error)) *slot[T] {
	return &slot[T]{factory: factory}
}

func fixedSlot[T any](value T) *slot[T] {
	return newSlot(func(context.Context) (T, error) { return value, nil })
}

func (s *slot[T]) get(ctx context.Context) (T, error) {
	s.once.Do(func() {
		s.value, s.err = s.factory(ctx)
	})
	return s.value, s.err
}
