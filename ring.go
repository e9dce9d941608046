package swarm

import (
	"unsafe"

	"code.hybscloud.com/lfq"
)

// ring is a typed, zero-copy adapter over an lfq.QueuePtr of *T, shared by
// Mailbox (T = Envelope) and the scheduler's local/global/high-priority
// queues (T = Actor) (spec.md §4.1: "the mailbox... uses the MPMC ring").
// Wrapping rather than exposing lfq.QueuePtr directly keeps the
// unsafe.Pointer casts in one place.
type ring[T any] struct {
	q lfq.QueuePtr
}

// newRing builds a ring with the given capacity, rounded up to the next
// power of two as lfq's ring-based queues require.
func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{q: lfq.NewMPMCPtr(nextPowerOfTwo(capacity))}
}

// cap returns the ring's backing capacity.
func (r *ring[T]) cap() int { return r.q.Cap() }

// tryPush enqueues e without blocking. It returns ErrMailboxFull if the
// ring is at capacity; callers addressing a non-mailbox ring translate that
// sentinel as appropriate.
func (r *ring[T]) tryPush(e *T) error {
	if err := r.q.Enqueue(unsafe.Pointer(e)); err != nil {
		return ErrMailboxFull
	}
	return nil
}

// tryPop dequeues the oldest enqueued element without blocking. It returns
// (nil, false) if the ring is currently empty.
func (r *ring[T]) tryPop() (*T, bool) {
	p, err := r.q.Dequeue()
	if err != nil {
		return nil, false
	}
	return (*T)(p), true
}
