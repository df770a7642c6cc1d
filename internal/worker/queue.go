package worker

import (
	"context"
	"errors"
	"sync"

	"feed_poster/internal/domain"
)

// ErrQueueClosed is returned by Enqueue after shutdown began.
var ErrQueueClosed = errors.New("queue closed")

// Queue is a bounded multi-producer/multi-consumer FIFO of delivery batches.
// Join blocks until every batch that ever entered the queue has been fully
// processed, which is what gates the end-of-cycle watermark advance.
type Queue struct {
	ch chan *domain.DeliveryBatch
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan *domain.DeliveryBatch, size)}
}

// Enqueue blocks while the queue is full. It fails once the queue is closed
// or the context is cancelled.
func (q *Queue) Enqueue(ctx context.Context, batch *domain.DeliveryBatch) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()

	select {
	case q.ch <- batch:
		return nil
	case <-ctx.Done():
		q.wg.Done()
		return ctx.Err()
	}
}

// Join waits until all enqueued batches have been processed.
func (q *Queue) Join() {
	q.wg.Wait()
}

// Close stops intake. Workers drain whatever is already queued and then exit.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

func (q *Queue) batches() <-chan *domain.DeliveryBatch {
	return q.ch
}

func (q *Queue) done() {
	q.wg.Done()
}
