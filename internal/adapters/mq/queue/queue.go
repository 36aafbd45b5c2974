// Package queue defines the contract for feeding discovered forms to the
// parse workers.
//
// Implementations may use channels or more advanced structures; the batch
// pipeline uses an in-memory bounded queue.
package queue

import (
	"context"
	"sync"

	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Form represents the payload type flowing through the queue.
// Using the model.FormFile type for type safety.
type Form = model.FormFile

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a form to the queue, blocking until there is space.
	// Returns false if the queue is closed or the context is cancelled.
	Enqueue(ctx context.Context, f Form) bool

	// Dequeue returns a channel that will receive forms as they become
	// available. The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Form

	// Len returns the current number of queued forms.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new forms can be
	// enqueued; queued forms are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	forms    chan Form
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.forms = make(chan Form, q.capacity)

	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a form to the queue, blocking until there is space. The read
// lock is held across the send so Close cannot close the channel while a
// producer is parked on it.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Form) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.forms <- f:
		metrics.UpdateQueueSize(len(q.forms))
		return true
	case <-ctx.Done():
		return false
	}
}

// Dequeue returns a channel that will receive forms as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Form {
	out := make(chan Form)
	go func() {
		defer close(out)
		for f := range q.forms {
			select {
			case out <- f:
				metrics.UpdateQueueSize(len(q.forms))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued forms.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.forms)
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	close(q.forms)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
