// Package queue buffers accepted matches between the HTTP handlers and the
// rating workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
// Matches come out in the order they went in.
type Queue interface {
	// Enqueue adds m to the queue. It returns ErrFull when the queue is at
	// capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, m model.Match) error

	// Dequeue returns a channel that receives matches until the queue is
	// closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan model.Match

	// Len returns the current number of queued matches.
	Len(ctx context.Context) int

	// Close stops accepting matches. Queued matches can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	matches  chan model.Match
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.matches = make(chan model.Match, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a match to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam: sent by value over the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.matches <- m:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive matches as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Match {
	out := make(chan model.Match)
	go func() {
		defer close(out)
		for {
			select {
			case m, ok := <-q.matches:
				if !ok {
					return
				}
				select {
				case out <- m:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued matches.
func (q *InMemoryQueue) Len(context.Context) int {
	q.observe()
	return len(q.matches)
}

func (q *InMemoryQueue) observe() {
	size := len(q.matches)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.matches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
