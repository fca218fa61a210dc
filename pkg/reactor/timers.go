package reactor

import (
	"container/heap"
	"time"
)

// Timer is a handle to a callback scheduled with ScheduleAt. It can be passed
// to Cancel until it fires.
type Timer struct {
	when  time.Time
	seq   uint64
	fn    func()
	index int // position in the heap, -1 once fired or cancelled
}

// When returns the time the timer is due.
func (t *Timer) When() time.Time {
	return t.when
}

// timerHeap is a min-heap of timers ordered by due time, then by scheduling
// order so that timers due at the same instant fire FIFO.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// ScheduleAt arranges for fn to run on the loop goroutine at or after when.
// A time in the past fires on the next loop iteration.
func (r *Reactor) ScheduleAt(when time.Time, fn func()) *Timer {
	r.seq++
	t := &Timer{when: when, seq: r.seq, fn: fn}
	heap.Push(&r.timers, t)
	return t
}

// Cancel removes a pending timer. It reports false if the timer already fired
// or was cancelled before.
func (r *Reactor) Cancel(t *Timer) bool {
	if t == nil || t.index < 0 || t.index >= len(r.timers) || r.timers[t.index] != t {
		return false
	}
	heap.Remove(&r.timers, t.index)
	return true
}

// runTimers fires every timer due at or before now.
func (r *Reactor) runTimers(now time.Time) {
	for len(r.timers) > 0 {
		if r.timers[0].when.After(now) {
			return
		}
		t := heap.Pop(&r.timers).(*Timer)
		r.safeExecute("timer", t.fn)
	}
}

// nextDeadline returns the due time of the earliest timer.
func (r *Reactor) nextDeadline() (time.Time, bool) {
	if len(r.timers) == 0 {
		return time.Time{}, false
	}
	return r.timers[0].when, true
}
