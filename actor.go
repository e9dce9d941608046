package swarm

import (
	"context"
	"sync/atomic"
	"time"
)

// ActorState is the actor lifecycle state machine described in spec.md
// §4.4. Transitions happen via atomic swap on Actor.state; Stopped and
// Failed are terminal unless a Supervisor restarts the actor.
type ActorState int32

const (
	StateCreated ActorState = iota
	StateRunning
	StateSuspended
	StateStopping
	StateStopped
	StateFailed
	StateRestarting
)

func (s ActorState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	case StateRestarting:
		return "Restarting"
	default:
		return "Unknown"
	}
}

// Actor is the runtime record for one spawned behavior: identity, state,
// mailbox, and the scheduling bookkeeping the worker pool needs. User code
// never constructs one directly; ActorSystem.Spawn does.
type Actor struct {
	id       uint64
	name     string
	state    atomic.Int32
	mailbox  *Mailbox
	behavior Behavior
	system   *ActorSystem

	// scheduled is true while the actor is present in exactly one of the
	// scheduler's queues or is being drained by a worker, preventing the
	// double-drain defect spec.md §3 calls out.
	scheduled atomic.Bool

	ref *ActorRef

	lifecycleCtx    context.Context
	lifecycleCancel context.CancelFunc

	// reusable per-actor dispatch context, repopulated before every hook
	// call to avoid a per-message allocation.
	dctx actorContext

	failed atomic.Uint64
}

// ActorRef is a stable handle to an actor: safe to copy, safe to retain
// past the actor's lifetime, and the only thing external callers and
// sibling actors hold (spec.md §6, "ActorRef — handle").
type ActorRef struct {
	id     uint64
	name   string
	system *ActorSystem
	actor  *Actor
}

// ID returns the actor's identifier, stable for its entire lifetime.
func (r *ActorRef) ID() uint64 { return r.id }

// Name returns the actor's registered name.
func (r *ActorRef) Name() string { return r.name }

// State returns the actor's current lifecycle state.
func (r *ActorRef) State() ActorState {
	return ActorState(r.actor.state.Load())
}

// Alive reports whether the actor can still accept messages, i.e. it has
// not reached Stopped or Failed.
func (r *ActorRef) Alive() bool {
	switch r.State() {
	case StateStopped, StateFailed:
		return false
	default:
		return true
	}
}

// Tell sends a fire-and-forget string user message.
func (r *ActorRef) Tell(s string) error {
	return r.system.tell(r.actor, 0, func(e *Envelope) { e.setUserString(s) })
}

// TellInt sends a fire-and-forget integer user message.
func (r *ActorRef) TellInt(v int64) error {
	return r.system.tell(r.actor, 0, func(e *Envelope) { e.setUserInt(v) })
}

// TellFloat sends a fire-and-forget float user message.
func (r *ActorRef) TellFloat(v float64) error {
	return r.system.tell(r.actor, 0, func(e *Envelope) { e.setUserFloat(v) })
}

// TellBlob sends a fire-and-forget heap-backed payload too large for the
// inline string slot. data's ownership transfers to the runtime.
func (r *ActorRef) TellBlob(data []byte, typeTag uint64) error {
	return r.system.tell(r.actor, 0, func(e *Envelope) { e.setUserBlob(data, typeTag) })
}

// Ask sends a string request and returns a Future completed by the
// receiving behavior's ctx.Reply call. ctx is merged with the target
// actor's own lifecycle context (mergeContexts) so the behavior's
// Context().Context() cancels on whichever fires first, matching
// baselib/actor's Ask semantics (SPEC_FULL.md §5).
func (r *ActorRef) Ask(ctx context.Context, payload string) (Future[string], error) {
	return r.system.ask(r.actor, ctx, payload)
}

// Stop requests a graceful shutdown: the actor finishes its current
// quantum, runs PostStop, and transitions to Stopped.
func (r *ActorRef) Stop() error {
	return r.system.tellSystem(r.actor, KindSystemStop)
}

// Restart requests PreRestart/PostRestart without leaving Running overall.
func (r *ActorRef) Restart() error {
	return r.system.tellSystem(r.actor, KindSystemRestart)
}

// Suspend blocks dispatch without blocking enqueue.
func (r *ActorRef) Suspend() error {
	return r.system.tellSystem(r.actor, KindControlSuspend)
}

// Resume reverses Suspend.
func (r *ActorRef) Resume() error {
	return r.system.tellSystem(r.actor, KindControlResume)
}

// Ping sends a SystemPing and returns immediately; the runtime answers with
// a SystemPong back to the caller automatically if the caller is itself an
// actor (SPEC_FULL.md §9, Open Question 1). There is no reply path for a
// non-actor caller since Pong delivery requires a resolvable sender.
func (r *ActorRef) Ping(from *ActorRef) error {
	var senderID uint64
	if from != nil {
		senderID = from.id
	}
	return r.system.tellSystemFrom(r.actor, KindSystemPing, senderID)
}

// setState atomically transitions the actor to s, returning the prior
// state.
func (a *Actor) setState(s ActorState) ActorState {
	prev := ActorState(a.state.Swap(int32(s)))
	return prev
}

func (a *Actor) currentState() ActorState {
	return ActorState(a.state.Load())
}

// dispatchOne handles exactly one envelope: system/control kinds are
// intercepted inline per spec.md §4.4 step 1; user kinds are handed to the
// behavior's Receive. It returns a non-nil error only for a user-message
// failure, which the caller (runQuantum) converts into a BehaviorFailure
// and forwards to the Supervisor.
func (a *Actor) dispatchOne(e *Envelope) error {
	if e.Kind.IsSystem() {
		a.dispatchSystem(e)
		return nil
	}
	return a.dispatchUser(e)
}

func (a *Actor) dispatchSystem(e *Envelope) {
	ctx, cancel := a.contextFor(e)
	defer cancel()

	switch e.Kind {
	case KindSystemStart:
		a.setState(StateRunning)
		if err := callPreStart(a.behavior, ctx); err != nil {
			a.setState(StateFailed)
			a.system.reportFailure(a, &BehaviorFailure{ActorID: a.id, Cause: err})
		}

	case KindSystemStop, KindControlShutdown:
		a.setState(StateStopping)
		_ = callPostStop(a.behavior, ctx)
		a.setState(StateStopped)
		a.lifecycleCancel()

	case KindSystemRestart:
		a.setState(StateRestarting)
		cause := error(nil)
		_ = callPreRestart(a.behavior, ctx, cause)
		_ = callPostRestart(a.behavior, ctx)
		a.setState(StateRunning)

	case KindSystemPing:
		if e.SenderID != 0 {
			_ = a.system.tellSystemByID(e.SenderID, KindSystemPong, a.id)
		}

	case KindSystemPong:
		// inert

	case KindControlSuspend:
		a.setState(StateSuspended)

	case KindControlResume:
		if a.currentState() == StateSuspended {
			a.setState(StateRunning)
		}
	}
}

func (a *Actor) dispatchUser(e *Envelope) error {
	ctx, cancel := a.contextFor(e)
	defer cancel()
	return a.behavior.Receive(ctx)
}

// contextFor populates the actor's reusable dispatch context and returns the
// cancel func for the dispatch context it built. For an Ask-originated
// envelope (callerCtx != nil) the dispatch context is mergeContexts(actor
// lifecycle, caller ctx); otherwise it is just the actor's lifecycle
// context and the returned cancel is a no-op.
func (a *Actor) contextFor(e *Envelope) (*actorContext, context.CancelFunc) {
	a.dctx.self = a.ref
	a.dctx.system = a.system
	a.dctx.env = e

	var cancel context.CancelFunc = func() {}
	if e.callerCtx != nil {
		a.dctx.ctx, cancel = mergeContexts(a.lifecycleCtx, e.callerCtx)
	} else {
		a.dctx.ctx = a.lifecycleCtx
	}

	if e.SenderID != 0 {
		if ref, ok := a.system.find(e.SenderID); ok {
			a.dctx.sender = ref
		} else {
			a.dctx.sender = nil
		}
	} else {
		a.dctx.sender = nil
	}

	return &a.dctx, cancel
}

// runQuantum drains and dispatches up to maxMsgs envelopes, or until budget
// elapses, whichever comes first (spec.md §4.4 "Run quantum"). It returns
// whether the actor still has pending work and should be rescheduled.
func (a *Actor) runQuantum(maxMsgs int, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	processed := 0

	for processed < maxMsgs {
		if time.Now().After(deadline) {
			break
		}

		var e *Envelope
		var ok bool
		if a.currentState() == StateSuspended {
			// Only the control lane is drained while suspended, so
			// a Resume/Stop/Restart/Ping sitting behind full user
			// traffic is still reachable (spec.md §4.4: "Suspended
			// blocks dispatch but not enqueue").
			e, ok = a.mailbox.ReceiveControl()
		} else {
			e, ok = a.mailbox.Receive()
		}
		if !ok {
			break
		}

		err := a.dispatchOne(e)
		kind := e.Kind
		a.system.pool.Release(e)
		processed++

		if err != nil {
			a.failed.Add(1)
			a.setState(StateFailed)
			a.system.reportFailure(a, &BehaviorFailure{ActorID: a.id, Cause: err})
			break
		}

		if kind == KindSystemStop || kind == KindControlShutdown {
			break
		}
	}

	switch a.currentState() {
	case StateRunning:
		return !a.mailbox.IsEmpty()
	case StateSuspended:
		return a.mailbox.ControlPending()
	default:
		return false
	}
}
