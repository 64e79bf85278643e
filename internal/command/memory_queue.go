package command

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue hands commands to consumers in the same process. Nothing is
// encoded; commands survive only as long as the process.
type MemoryQueue struct {
	pending chan Delivery

	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a queue holding up to size pending commands.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{pending: make(chan Delivery, size)}
}

// Publish blocks while the queue is full.
func (q *MemoryQueue) Publish(ctx context.Context, cmd *Command) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.pending <- Delivery{Command: *cmd, QueuedAt: time.Now().UTC()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers until ctx is done or the queue is closed and drained.
func (q *MemoryQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	return consume(ctx, workers, handler, func(ctx context.Context) (Delivery, error) {
		select {
		case d, ok := <-q.pending:
			if !ok {
				return Delivery{}, errDrained
			}
			return d, nil
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		}
	})
}

// Len returns the number of pending commands.
func (q *MemoryQueue) Len() int {
	return len(q.pending)
}

// Close stops accepting commands. Pending ones are still delivered.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.pending)
	}
	return nil
}
