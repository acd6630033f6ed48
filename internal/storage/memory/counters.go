package memory

import (
	"context"
	"sync"
)

type CounterStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{values: make(map[string]int64)}
}

func (s *CounterStore) Increment(ctx context.Context, namespace string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[namespace]++
	return s.values[namespace], nil
}
