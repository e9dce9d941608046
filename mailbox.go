package swarm

import "sync/atomic"

// ctrlQueueCapacity sizes the control lane every mailbox carries alongside
// its bounded user-message ring. System/control kinds (Start, Stop,
// Restart, Ping, Pong, Suspend, Resume) are routed here instead of
// competing with user traffic for the capacity-limited ring: a Suspended
// actor must still be reachable by a Resume even if its user ring is
// completely full, and lifecycle control must never be starved by
// back-pressure the way spec.md §5 requires sends to "never block."
const ctrlQueueCapacity = 32

// Mailbox is a bounded, multi-producer single-consumer-in-practice queue of
// pending envelopes for one actor. Multiple senders may enqueue
// concurrently; only the worker currently running the owning actor ever
// dequeues, but the ring itself is MPMC so stealing an actor to a different
// worker never requires draining and re-homing the queue (spec.md §4.1,
// §4.3 "the ring is part of what moves with the actor on steal").
//
// The Close naming mirrors the teacher's bollywood.Mailbox/Address,
// generalized from an unbounded Go channel to the fixed-capacity ring shared
// with the scheduler. A closed mailbox cannot be reopened.
type Mailbox struct {
	r    *ring[Envelope] // user messages, bounded per Config.MailboxCapacity
	ctrl *ring[Envelope] // system/control messages

	closed atomic.Bool

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64

	// userPending/ctrlPending track live occupancy per lane so IsEmpty and
	// ControlPending can answer without disturbing the ring's FIFO order
	// (popping to peek and pushing back moves the peeked element behind
	// anything enqueued in between, which breaks per-sender ordering).
	userPending atomic.Int64
	ctrlPending atomic.Int64
}

// NewMailbox builds a mailbox with the given user-message capacity (rounded
// up to the next power of two).
func NewMailbox(capacity int) *Mailbox {
	return &Mailbox{
		r:    newRing[Envelope](capacity),
		ctrl: newRing[Envelope](ctrlQueueCapacity),
	}
}

// Cap returns the mailbox's user-ring capacity.
func (m *Mailbox) Cap() int { return m.r.cap() }

// Send enqueues e without blocking, routing system/control kinds to the
// control lane and everything else to the user ring. It returns
// ErrMailboxFull if the destination lane is at capacity and
// ErrActorTerminated if the mailbox has been closed; in both cases e is not
// accepted and remains the caller's responsibility to release.
func (m *Mailbox) Send(e *Envelope) error {
	if m.closed.Load() {
		m.dropped.Add(1)
		return ErrActorTerminated
	}

	lane, pending := m.r, &m.userPending
	if e.Kind.IsSystem() {
		lane, pending = m.ctrl, &m.ctrlPending
	}

	if err := lane.tryPush(e); err != nil {
		m.dropped.Add(1)
		return err
	}
	pending.Add(1)
	m.sent.Add(1)
	return nil
}

// Receive dequeues the oldest pending envelope, preferring the control lane
// so lifecycle messages are never stuck behind a full user ring.
func (m *Mailbox) Receive() (*Envelope, bool) {
	if e, ok := m.ctrl.tryPop(); ok {
		m.ctrlPending.Add(-1)
		m.received.Add(1)
		return e, true
	}
	e, ok := m.r.tryPop()
	if ok {
		m.userPending.Add(-1)
		m.received.Add(1)
	}
	return e, ok
}

// ReceiveControl dequeues only from the control lane, ignoring any pending
// user messages. A Suspended actor's run quantum uses this so it keeps
// answering Stop/Restart/Resume/Ping without dispatching user messages
// (spec.md §4.4: "Suspended blocks dispatch but not enqueue").
func (m *Mailbox) ReceiveControl() (*Envelope, bool) {
	e, ok := m.ctrl.tryPop()
	if ok {
		m.ctrlPending.Add(-1)
		m.received.Add(1)
	}
	return e, ok
}

// RecvBatch dequeues up to max pending envelopes into a freshly allocated
// slice, stopping early if both lanes empty. It is the batched counterpart
// of Receive; the run-quantum dispatch loop does not use it and pops one
// envelope at a time via Receive/ReceiveControl.
func (m *Mailbox) RecvBatch(max int) []*Envelope {
	out := make([]*Envelope, 0, max)
	for len(out) < max {
		e, ok := m.Receive()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

// ControlPending reports whether the control lane alone currently holds a
// pending envelope, ignoring the user ring. A Suspended actor uses this to
// decide whether it is still worth rescheduling: with nothing pending but
// ordinary user traffic, rescheduling it would just spin a worker through
// an empty ReceiveControl call every quantum.
func (m *Mailbox) ControlPending() bool {
	return m.ctrlPending.Load() > 0
}

// IsEmpty reports whether the mailbox currently holds no pending envelopes
// in either lane. The result is advisory: a concurrent Send can invalidate
// it immediately after it is observed.
func (m *Mailbox) IsEmpty() bool {
	return m.userPending.Load() == 0 && m.ctrlPending.Load() == 0
}

// Close marks the mailbox closed, rejecting further Sends. Already-queued
// envelopes remain receivable via Receive/RecvBatch/Drain.
func (m *Mailbox) Close() { m.closed.Store(true) }

// IsClosed reports whether Close has been called.
func (m *Mailbox) IsClosed() bool { return m.closed.Load() }

// Drain removes and returns every currently pending envelope from both
// lanes. It is used during actor teardown to release pooled envelopes that
// would otherwise leak (spec.md §4.5, "Stopped actors must not hold pool
// slots").
func (m *Mailbox) Drain() []*Envelope {
	var out []*Envelope
	for {
		e, ok := m.Receive()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

// MailboxStats reports a mailbox's lifetime counters.
type MailboxStats struct {
	Sent     uint64
	Received uint64
	Dropped  uint64
}

// Stats returns a snapshot of the mailbox's lifetime counters.
func (m *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Sent:     m.sent.Load(),
		Received: m.received.Load(),
		Dropped:  m.dropped.Load(),
	}
}
