package swarm

import (
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/lfq"
)

// Pool is a fixed-size preallocated array of Envelope slots backed by a
// lock-free free list, per spec.md §4.2. Acquire and Release never allocate
// once the pool is constructed; PoolExhausted on Acquire is a normal,
// expected outcome rather than an error condition callers must avoid
// (SPEC_FULL.md §9, Open Question 2).
type Pool struct {
	slots []Envelope
	free  lfq.QueueIndirect

	// seq is a monotonic counter assigned to a slot's sequence field on
	// every Acquire. It starts at 1 and skips 0, since 0 means "free" on
	// the Envelope itself.
	seq atomic.Uint64

	acquired atomic.Int64
	released atomic.Int64
	exhausted atomic.Int64
}

// NewPool preallocates capacity envelope slots and seeds the free list with
// every slot index. capacity is rounded up to the next power of two because
// lfq's ring-based queues require a power-of-two capacity.
func NewPool(capacity int) *Pool {
	capacity = nextPowerOfTwo(capacity)

	p := &Pool{
		slots: make([]Envelope, capacity),
		free:  lfq.NewMPMCIndirect(capacity),
	}
	p.seq.Store(1)

	for i := range p.slots {
		// Enqueue of a free-list index can only fail if the queue is
		// full, which cannot happen here: we push exactly `capacity`
		// items into a capacity-sized queue.
		_ = p.free.Enqueue(uintptr(i))
	}

	return p
}

// Cap returns the total number of slots the pool was constructed with.
func (p *Pool) Cap() int { return len(p.slots) }

// Acquire claims a free slot and returns a pointer to it, stamped with a
// fresh non-zero sequence number. It returns ErrPoolExhausted immediately
// if no slot is free; it never blocks or spins (SPEC_FULL.md §9).
func (p *Pool) Acquire() (*Envelope, error) {
	idx, err := p.free.Dequeue()
	if err != nil {
		p.exhausted.Add(1)
		return nil, ErrPoolExhausted
	}

	e := &p.slots[idx]
	e.sequence = p.nextSeq()
	p.acquired.Add(1)
	return e, nil
}

// nextSeq returns the next sequence number, skipping 0.
func (p *Pool) nextSeq() uint64 {
	for {
		v := p.seq.Add(1)
		if v != 0 {
			return v
		}
	}
}

// Release returns e's slot to the free list. e must have been obtained from
// this pool's Acquire and must not be referenced by any mailbox or queue at
// the time of the call; the caller (the dispatch loop, per spec.md §4.4)
// owns that invariant. A second Release of the same slot is detected via
// e.sequence already reading 0 and is a no-op, per spec.md §4.2 "double-
// release is detected by sequence == 0 on the released slot."
func (p *Pool) Release(e *Envelope) {
	if e.sequence == 0 {
		return
	}
	idx := p.indexOf(e)
	e.reset()
	e.sequence = 0
	p.released.Add(1)
	_ = p.free.Enqueue(idx)
}

func (p *Pool) indexOf(e *Envelope) uintptr {
	base := unsafe.Pointer(&p.slots[0])
	off := uintptr(unsafe.Pointer(e)) - uintptr(base)
	return off / unsafe.Sizeof(p.slots[0])
}

// PoolStats reports the pool's lifetime counters, exposed via
// ActorSystem.Stats (spec.md §6's observability surface).
type PoolStats struct {
	Capacity  int
	Acquired  int64
	Released  int64
	Exhausted int64
}

// Stats returns a snapshot of the pool's lifetime counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Capacity:  len(p.slots),
		Acquired:  p.acquired.Load(),
		Released:  p.released.Load(),
		Exhausted: p.exhausted.Load(),
	}
}
