package notify

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity is the number of pending items a queue holds when New is
// called with a non-positive capacity.
const DefaultCapacity = 1024

// ErrQueueFull is returned when an item cannot be enqueued because the buffer
// already holds Cap() pending items.
var ErrQueueFull = errors.New("notification queue is full")

// Queue is a fixed-capacity FIFO ring buffer guarded by a mutex and paired with
// a coalescing wakeup channel.
//
// Producers never block on the consumer: Put either stores the item and posts a
// wakeup, or fails with ErrQueueFull. A consumer waits on Ready, then drains the
// buffer with Get or Drain until it is empty. Because wakeups coalesce, one
// signal may stand for many items.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	num   int

	ready chan struct{}

	// space is closed (and cleared) whenever items leave a full queue; PutWait
	// callers block on it.
	space chan struct{}
}

// New creates a queue holding at most capacity pending items.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{
		items: make([]T, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Put appends item to the tail of the queue and wakes the consumer.
func (q *Queue[T]) Put(item T) error {
	q.mu.Lock()
	if q.num == len(q.items) {
		q.mu.Unlock()
		return ErrQueueFull
	}
	tail := (q.head + q.num) % len(q.items)
	q.items[tail] = item
	q.num++
	q.mu.Unlock()

	q.wake()
	return nil
}

// PutWait is like Put but, when the queue is full, waits for the consumer to
// make room until ctx is done. It returns ErrQueueFull if no room appeared.
func (q *Queue[T]) PutWait(ctx context.Context, item T) error {
	for {
		err := q.Put(item)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}

		if err := q.WaitSpace(ctx); err != nil {
			return err
		}
	}
}

// WaitSpace blocks until the queue has room for at least one more item or ctx
// is done, in which case it returns ErrQueueFull. Room may be taken by another
// producer before the caller gets to use it.
func (q *Queue[T]) WaitSpace(ctx context.Context) error {
	select {
	case <-q.waitSpace():
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}

// Get removes and returns the head item. The boolean is false when the queue
// is empty.
func (q *Queue[T]) Get() (T, bool) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.num == 0 {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.num--
	q.signalSpace()

	return item, true
}

// Drain removes and returns every pending item in FIFO order.
func (q *Queue[T]) Drain() []T {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.num == 0 {
		return nil
	}
	out := make([]T, 0, q.num)
	for q.num > 0 {
		out = append(out, q.items[q.head])
		q.items[q.head] = zero
		q.head = (q.head + 1) % len(q.items)
		q.num--
	}
	q.signalSpace()

	return out
}

// Ready returns the wakeup channel. A receive means at least one Put happened
// since the previous receive.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.num
}

// Cap returns the maximum number of pending items.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

func (q *Queue[T]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) waitSpace() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.num < len(q.items) {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	if q.space == nil {
		q.space = make(chan struct{})
	}
	return q.space
}

// signalSpace must be called with mu held.
func (q *Queue[T]) signalSpace() {
	if q.space != nil {
		close(q.space)
		q.space = nil
	}
}
