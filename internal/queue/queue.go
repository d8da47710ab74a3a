// Package queue provides the write buffers used by the database backends.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// PopBatch removes and returns up to n items from the front.
// n <= 0 takes everything.
func (q *Queue[T]) PopBatch(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n >= len(q.items) {
		result := q.items
		q.items = make([]T, 0, cap(q.items))
		return result
	}
	result := make([]T, n)
	copy(result, q.items[:n])
	q.items = q.items[n:]
	return result
}

// Drain calls fn with consecutive batches of at most size items until the
// queue is empty or fn fails. Items of a failed batch are put back in front.
func (q *Queue[T]) Drain(size int, fn func([]T) error) error {
	for {
		batch := q.PopBatch(size)
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			q.mu.Lock()
			q.items = append(batch, q.items...)
			q.mu.Unlock()
			return err
		}
	}
}
