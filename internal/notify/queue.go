// Package notify runs best-effort side notifications off the request path.
//
// Delivery is at-most-once: a task that fails, panics or finds the queue
// full is logged and dropped. The Queue interface is the seam for a
// durable, retrying implementation; the controller only ever calls
// Dispatch.
package notify

import (
	"context"
	"sync"
)

// Task is one unit of side-effect work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue buffers tasks between Dispatch and the workers.
type Queue interface {
	// Offer enqueues task without blocking. It reports false when the
	// task was not accepted.
	Offer(task Task) bool

	// Take blocks until a task is available, the queue is closed and
	// drained, or ctx is done. ok is false in the last two cases.
	Take(ctx context.Context) (task Task, ok bool)

	// Close stops accepting tasks. Tasks already queued can still be taken.
	Close()
}

// MemoryQueue is a bounded in-process Queue.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan Task
	closed bool
}

// NewMemoryQueue returns a queue holding at most size tasks.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan Task, size)}
}

func (q *MemoryQueue) Offer(task Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- task:
		return true
	default:
		return false
	}
}

func (q *MemoryQueue) Take(ctx context.Context) (Task, bool) {
	select {
	case task, ok := <-q.ch:
		return task, ok
	case <-ctx.Done():
		return Task{}, false
	}
}

func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
