package crawler

import (
	"context"
	"sync"
	"time"
)

// FrontierQueue is an unbounded FIFO of pending WorkItems shared by all
// workers of a crawl session.
//
// Besides the queue itself it tracks how many popped items are still being
// processed. A consumer must call Done once for every item it obtained from
// Pop or TryPop, after it has pushed all the work that item produced. The
// channel returned by Drained is closed the first time the queue is empty
// while no item is in flight.
type FrontierQueue struct {
	mu       sync.Mutex
	items    []WorkItem
	inFlight int

	// wake is closed and replaced on every push to release waiting consumers.
	wake chan struct{}

	drained     chan struct{}
	drainedOnce sync.Once
}

// NewFrontierQueue returns an empty queue.
func NewFrontierQueue() *FrontierQueue {
	return &FrontierQueue{
		items:   make([]WorkItem, 0),
		wake:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Push appends item to the queue. It never blocks.
func (q *FrontierQueue) Push(item WorkItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	wake := q.wake
	q.wake = make(chan struct{})
	q.mu.Unlock()

	close(wake)
}

// TryPop removes the oldest item without blocking.
// The second result is false when the queue is empty.
func (q *FrontierQueue) TryPop() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop removes the oldest item, waiting up to timeout for one to arrive.
// A non-positive timeout waits until an item arrives or ctx is done.
// It returns ErrPopTimeout when the timeout elapses and ctx.Err() when the
// context is cancelled first.
func (q *FrontierQueue) Pop(ctx context.Context, timeout time.Duration) (WorkItem, error) {
	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	for {
		if err := ctx.Err(); err != nil {
			return WorkItem{}, err
		}

		q.mu.Lock()
		item, ok := q.popLocked()
		wake := q.wake
		q.mu.Unlock()

		if ok {
			return item, nil
		}

		select {
		case <-wake:
		case <-timeoutC:
			return WorkItem{}, ErrPopTimeout
		case <-ctx.Done():
			return WorkItem{}, ctx.Err()
		}
	}
}

// popLocked takes the head of the queue and marks it in flight.
func (q *FrontierQueue) popLocked() (WorkItem, bool) {
	if len(q.items) == 0 {
		return WorkItem{}, false
	}
	item := q.items[0]
	q.items[0] = WorkItem{}
	q.items = q.items[1:]
	q.inFlight++
	return item, true
}

// Done acknowledges that a popped item has been fully processed.
func (q *FrontierQueue) Done() {
	q.mu.Lock()
	if q.inFlight > 0 {
		q.inFlight--
	}
	quiet := q.inFlight == 0 && len(q.items) == 0
	q.mu.Unlock()

	if quiet {
		q.drainedOnce.Do(func() { close(q.drained) })
	}
}

// Drained returns a channel that is closed once the queue is empty and no
// popped item is waiting for Done.
func (q *FrontierQueue) Drained() <-chan struct{} {
	return q.drained
}

// Len returns the number of queued items.
func (q *FrontierQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight returns the number of popped items not yet acknowledged.
func (q *FrontierQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}
