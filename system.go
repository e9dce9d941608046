package swarm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// askIDBit marks synthetic sender ids used to correlate an Ask's reply,
// keeping that id space disjoint from real actor ids (which start at 1 and
// count up from there, never setting the high bit in practice).
const askIDBit = uint64(1) << 63

// ActorSystem owns the message pool, scheduler, supervisor, and actor
// registry, and is the entry point client code uses to spawn actors and
// send them messages (spec.md §4.7). It is grounded on
// bollywood/engine.go's Engine (atomic stopping flag, mutex-guarded actor
// map, deadline-polling Shutdown loop), generalized to hand actors off to a
// fixed worker pool instead of running one goroutine per actor.
type ActorSystem struct {
	name string
	id   uuid.UUID
	cfg  Config

	pool       *Pool
	sched      *scheduler
	supervisor *Supervisor

	mu          sync.RWMutex
	actors      map[uint64]*ActorRef
	nextActorID atomic.Uint64

	asksMu    sync.Mutex
	asks      map[uint64]func(fn.Result[string])
	nextAskID atomic.Uint64

	stopping atomic.Bool

	messagesSent     atomic.Uint64
	messagesDropped  atomic.Uint64
	messagesFailed   atomic.Uint64
}

// NewActorSystem constructs and starts an ActorSystem: the message pool is
// preallocated and the scheduler's workers are already running by the time
// this returns.
func NewActorSystem(name string, cfg Config) *ActorSystem {
	sys := &ActorSystem{
		name:       name,
		id:         uuid.New(),
		cfg:        cfg,
		pool:       NewPool(cfg.MessagePoolCapacity),
		supervisor: NewSupervisor(cfg.Supervisor),
		actors:     make(map[uint64]*ActorRef),
		asks:       make(map[uint64]func(fn.Result[string])),
	}
	sys.sched = newScheduler(cfg)
	sys.sched.Start()

	InfoS(context.Background(), "actor system started",
		"system", name, "id", sys.id.String(),
		"workers", sys.sched.numWorkers())

	return sys
}

// Name returns the system's configured name.
func (sys *ActorSystem) Name() string { return sys.name }

// ID returns the system's unique instance id.
func (sys *ActorSystem) ID() uuid.UUID { return sys.id }

// Spawn allocates an actor running behavior, registers it, and schedules
// its Start system message (spec.md §4.7). The returned ActorRef is valid
// immediately; PreStart runs asynchronously on a worker before any user
// message is dispatched, since Start is itself just the first envelope in
// the actor's own mailbox.
func (sys *ActorSystem) Spawn(name string, behavior Behavior) (*ActorRef, error) {
	if sys.stopping.Load() {
		return nil, ErrSystemShutdown
	}

	sys.mu.Lock()
	if len(sys.actors) >= sys.cfg.MaxActors {
		sys.mu.Unlock()
		return nil, ErrTooManyActors
	}
	sys.mu.Unlock()

	id := sys.nextActorID.Add(1)
	lifecycleCtx, cancel := context.WithCancel(context.Background())

	actor := &Actor{
		id:              id,
		name:            name,
		mailbox:         NewMailbox(sys.cfg.MailboxCapacity),
		behavior:        behavior,
		system:          sys,
		lifecycleCtx:    lifecycleCtx,
		lifecycleCancel: cancel,
	}
	actor.state.Store(int32(StateCreated))

	ref := &ActorRef{id: id, name: name, system: sys, actor: actor}
	actor.ref = ref

	sys.mu.Lock()
	sys.actors[id] = ref
	sys.mu.Unlock()

	sys.supervisor.register(actor)

	DebugS(lifecycleCtx, "actor spawned", "actor_id", id, "name", name)

	if err := sys.tellSystem(actor, KindSystemStart); err != nil {
		return nil, err
	}
	return ref, nil
}

// Find looks up an actor by id.
func (sys *ActorSystem) Find(id uint64) (*ActorRef, bool) {
	return sys.find(id)
}

func (sys *ActorSystem) find(id uint64) (*ActorRef, bool) {
	sys.mu.RLock()
	defer sys.mu.RUnlock()
	ref, ok := sys.actors[id]
	return ref, ok
}

// Broadcast sends a string user message to every currently registered
// actor, skipping ones that are no longer alive.
func (sys *ActorSystem) Broadcast(s string) {
	sys.mu.RLock()
	refs := make([]*ActorRef, 0, len(sys.actors))
	for _, ref := range sys.actors {
		refs = append(refs, ref)
	}
	sys.mu.RUnlock()

	for _, ref := range refs {
		if ref.Alive() {
			_ = ref.Tell(s)
		}
	}
}

// tell delivers a user message to actor from senderID, checking that the
// actor is currently alive (spec.md §7: ActorNotFound covers "send to
// stopped/failed actor").
func (sys *ActorSystem) tell(actor *Actor, senderID uint64, set func(*Envelope)) error {
	return sys.tellWithContext(actor, senderID, nil, set)
}

// tellWithContext is tell plus an optional caller context, stashed on the
// envelope so the dispatching actor can merge it with its own lifecycle
// context (mergeContexts) for the duration of the hook call. Only Ask uses
// a non-nil callerCtx.
func (sys *ActorSystem) tellWithContext(actor *Actor, senderID uint64, callerCtx context.Context, set func(*Envelope)) error {
	ref := actor.ref
	if !ref.Alive() {
		return ErrActorNotFound
	}

	e, err := sys.pool.Acquire()
	if err != nil {
		return err
	}
	set(e)
	e.ActorID = actor.id
	e.SenderID = senderID
	e.callerCtx = callerCtx

	if err := actor.mailbox.Send(e); err != nil {
		sys.pool.Release(e)
		sys.messagesDropped.Add(1)
		return err
	}

	sys.messagesSent.Add(1)
	sys.sched.schedule(actor, false)
	return nil
}

// tellByID looks target up by id and forwards to tell.
func (sys *ActorSystem) tellByID(targetID, senderID uint64, set func(*Envelope)) error {
	ref, ok := sys.find(targetID)
	if !ok {
		return ErrActorNotFound
	}
	return sys.tell(ref.actor, senderID, set)
}

// tellSystem enqueues a system/control kind with no sender, bypassing the
// Alive check: system messages must be able to reach a Failed actor (to
// restart it) or a Suspended one (to resume it).
func (sys *ActorSystem) tellSystem(actor *Actor, kind Kind) error {
	return sys.tellSystemFrom(actor, kind, 0)
}

func (sys *ActorSystem) tellSystemFrom(actor *Actor, kind Kind, senderID uint64) error {
	e, err := sys.pool.Acquire()
	if err != nil {
		return err
	}
	e.setSystem(kind)
	e.ActorID = actor.id
	e.SenderID = senderID

	if err := actor.mailbox.Send(e); err != nil {
		sys.pool.Release(e)
		sys.messagesDropped.Add(1)
		return err
	}

	sys.messagesSent.Add(1)
	sys.sched.schedule(actor, true)
	return nil
}

// tellSystemByID looks target up by id and forwards to tellSystemFrom,
// used by an actor's Ping handler to deliver the automatic Pong reply.
func (sys *ActorSystem) tellSystemByID(targetID uint64, kind Kind, senderID uint64) error {
	ref, ok := sys.find(targetID)
	if !ok {
		return ErrActorNotFound
	}
	return sys.tellSystemFrom(ref.actor, kind, senderID)
}

// ask registers a promise under a synthetic sender id and sends msg to
// actor as if msg's sender were that id; Context.Reply resolves the
// promise instead of enqueueing a reply message when it sees the ask bit
// set on SenderID.
func (sys *ActorSystem) ask(actor *Actor, ctx context.Context, payload string) (Future[string], error) {
	if ctx == nil {
		ctx = context.Background()
	}

	p := NewPromise[string]()

	id := askIDBit | sys.nextAskID.Add(1)
	sys.asksMu.Lock()
	sys.asks[id] = func(r fn.Result[string]) { p.Complete(r) }
	sys.asksMu.Unlock()

	if err := sys.tellWithContext(actor, id, ctx, func(e *Envelope) { e.setUserString(payload) }); err != nil {
		sys.asksMu.Lock()
		delete(sys.asks, id)
		sys.asksMu.Unlock()
		return nil, err
	}
	return p.Future(), nil
}

// reply delivers a Reply call from a Behavior back to whoever sent the
// message currently being processed. A senderID with the ask bit set
// completes the matching Ask's Future directly; any other id is treated as
// an ordinary actor id and receives an additional Tell.
func (sys *ActorSystem) reply(senderID uint64, payload string) error {
	if senderID == 0 {
		return ErrActorNotFound
	}

	if senderID&askIDBit != 0 {
		sys.asksMu.Lock()
		complete, ok := sys.asks[senderID]
		if ok {
			delete(sys.asks, senderID)
		}
		sys.asksMu.Unlock()

		if !ok {
			return ErrActorNotFound
		}
		complete(fn.Ok(payload))
		return nil
	}

	return sys.tellByID(senderID, 0, func(e *Envelope) { e.setUserString(payload) })
}

// reportFailure hands a dispatch-time failure to the supervisor.
func (sys *ActorSystem) reportFailure(actor *Actor, failure *BehaviorFailure) {
	sys.messagesFailed.Add(1)
	sys.supervisor.onFailure(actor, failure)
}

// Shutdown stops accepting new spawns, asks every actor to stop, and waits
// up to timeout for every actor to reach Stopped or Failed before forcing
// worker shutdown and returning. The shutdown message travels on the
// control lane, which an actor reads before its user messages, so user
// messages still queued when an actor stops are not dispatched; they are
// released back to the pool after the workers have exited. It mirrors
// bollywood/engine.go's Shutdown: flip a stopping
// flag, signal everyone, then poll for quiescence instead of blocking on a
// single join point.
func (sys *ActorSystem) Shutdown(timeout time.Duration) {
	if !sys.stopping.CompareAndSwap(false, true) {
		return
	}

	InfoS(context.Background(), "actor system shutdown initiated", "system", sys.name)

	sys.mu.RLock()
	refs := make([]*ActorRef, 0, len(sys.actors))
	for _, ref := range sys.actors {
		refs = append(refs, ref)
	}
	sys.mu.RUnlock()

	for _, ref := range refs {
		_ = sys.tellSystem(ref.actor, KindControlShutdown)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if sys.allStopped(refs) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	sys.sched.Stop()
	sys.sched.Wait()

	for _, ref := range refs {
		for _, e := range ref.actor.mailbox.Drain() {
			sys.pool.Release(e)
		}
	}

	InfoS(context.Background(), "actor system shutdown complete", "system", sys.name)
}

func (sys *ActorSystem) allStopped(refs []*ActorRef) bool {
	for _, ref := range refs {
		switch ref.State() {
		case StateStopped, StateFailed:
		default:
			return false
		}
	}
	return true
}

// Stats is a read-only snapshot of system-wide counters (spec.md §6).
type Stats struct {
	Pool       PoolStats
	Scheduler  SchedulerStats
	Supervisor SupervisorStats

	ActorCount int

	MessagesSent    uint64
	MessagesDropped uint64
	MessagesFailed  uint64
}

// Stats returns a point-in-time snapshot of the system's counters.
func (sys *ActorSystem) Stats() Stats {
	sys.mu.RLock()
	count := len(sys.actors)
	sys.mu.RUnlock()

	return Stats{
		Pool:            sys.pool.Stats(),
		Scheduler:       sys.sched.Stats(),
		Supervisor:      sys.supervisor.Stats(),
		ActorCount:      count,
		MessagesSent:    sys.messagesSent.Load(),
		MessagesDropped: sys.messagesDropped.Load(),
		MessagesFailed:  sys.messagesFailed.Load(),
	}
}
