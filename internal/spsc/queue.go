// Package spsc implements the bounded index queues carried inside a
// zero-copy connection: the safely-overflowing submission queue and the
// non-overflowing completion queue. Both queues carry nothing but 64-bit
// pointer-offsets.
package spsc

import "sync/atomic"

type slot struct {
	seq   atomic.Uint64
	value uint64
}

// Queue is a bounded lock-free ring buffer of uint64 payloads. Ordinary
// enqueue/dequeue only ever has one producer and one consumer, but the
// safe-overflow path (PushOverflow) has the producer perform a dequeue of
// its own to evict the oldest entry, which can race the real consumer's
// dequeue. Vyukov's bounded-queue algorithm resolves that race with a
// compare-and-swap per slot instead of a lock, so the queue stays
// lock-free end to end.
type Queue struct {
	slots []slot
	cap   uint64
	head  atomic.Uint64 // next slot to dequeue
	tail  atomic.Uint64 // next slot to enqueue
}

// New creates a queue with the given capacity, which must be positive.
func New(capacity int) *Queue {
	if capacity <= 0 {
		panic("spsc: capacity must be positive")
	}
	q := &Queue{slots: make([]slot, capacity), cap: uint64(capacity)}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int { return int(q.cap) }

// Len returns a point-in-time estimate of the number of queued entries.
func (q *Queue) Len() int {
	diff := int64(q.tail.Load()) - int64(q.head.Load())
	if diff < 0 {
		return 0
	}
	return int(diff)
}

// TryPush enqueues v, returning false without blocking if the queue is
// full. Used by the completion queue, and by the submission queue when
// safe overflow is disabled.
func (q *Queue) TryPush(v uint64) bool {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos%q.cap]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				s.value = v
				s.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		default:
			pos = q.tail.Load()
		}
	}
}

// PushOverflow enqueues v unconditionally. If the queue was full it first
// evicts the oldest entry and reports it — the caller (publisher send
// path) uses the evicted offset to clear the corresponding used-chunk bit.
func (q *Queue) PushOverflow(v uint64) (evicted uint64, didEvict bool) {
	for !q.TryPush(v) {
		if ev, ok := q.dequeue(); ok {
			evicted, didEvict = ev, true
		}
		// Either we evicted the oldest entry or the real consumer raced us
		// and drained it; retry the push, which now has room.
	}
	return evicted, didEvict
}

// TryPop dequeues the oldest entry, returning false if the queue is empty.
func (q *Queue) TryPop() (uint64, bool) {
	return q.dequeue()
}

func (q *Queue) dequeue() (uint64, bool) {
	pos := q.head.Load()
	for {
		s := &q.slots[pos%q.cap]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(pos+1); {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				v := s.value
				s.seq.Store(pos + q.cap)
				return v, true
			}
		case diff < 0:
			return 0, false
		default:
			pos = q.head.Load()
		}
	}
}
