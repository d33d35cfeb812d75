package main

import "container/heap"

// TimerID identifies a scheduled callback. The zero value is never issued.
type TimerID uint64

type timerEntry struct {
	at    float64
	seq   uint64
	id    TimerID
	fn    func()
	index int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// TimerQueue runs deferred callbacks against the simulation clock.
// Callbacks run synchronously inside Advance, in expiry order.
type TimerQueue struct {
	now     float64
	seq     uint64
	nextID  TimerID
	heap    timerHeap
	pending map[TimerID]*timerEntry
}

// NewTimerQueue creates an empty queue at time 0
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{pending: make(map[TimerID]*timerEntry)}
}

// Now is the queue's clock in seconds
func (q *TimerQueue) Now() float64 {
	return q.now
}

// After schedules fn to run once d seconds from now
func (q *TimerQueue) After(d float64, fn func()) TimerID {
	if d < 0 {
		d = 0
	}
	q.nextID++
	q.seq++
	e := &timerEntry{at: q.now + d, seq: q.seq, id: q.nextID, fn: fn}
	heap.Push(&q.heap, e)
	q.pending[e.id] = e
	return e.id
}

// Cancel removes a pending timer. It reports whether the timer was pending.
func (q *TimerQueue) Cancel(id TimerID) bool {
	e, ok := q.pending[id]
	if !ok {
		return false
	}
	delete(q.pending, id)
	heap.Remove(&q.heap, e.index)
	return true
}

// CancelAll drops every pending timer
func (q *TimerQueue) CancelAll() {
	q.heap = q.heap[:0]
	q.pending = make(map[TimerID]*timerEntry)
}

// Pending reports whether id is still scheduled
func (q *TimerQueue) Pending(id TimerID) bool {
	_, ok := q.pending[id]
	return ok
}

// Len is the number of outstanding timers
func (q *TimerQueue) Len() int {
	return len(q.pending)
}

// Advance moves the clock forward and fires every timer that is due,
// including ones scheduled by callbacks that are already due.
func (q *TimerQueue) Advance(dt float64) {
	if dt > 0 {
		q.now += dt
	}
	for len(q.heap) > 0 {
		e := q.heap[0]
		if e.at > q.now {
			return
		}
		heap.Pop(&q.heap)
		delete(q.pending, e.id)
		e.fn()
	}
}
