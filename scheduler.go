package swarm

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// localQueueCapacity is the per-worker local queue size. spec.md §4.5
// recommends "a few hundred"; this sits in that range without being
// configurable, since it is an implementation detail of the scheduler
// rather than a tuning knob exposed in Config.
const localQueueCapacity = 512

// globalQueueCapacity sizes both the overflow global queue and the
// high-priority system-task queue.
const globalQueueCapacity = 4096

// stealAttempts is K from spec.md §4.5: "up to K (recommended 3) attempts
// at stealing a single actor from a random other worker's local queue."
const stealAttempts = 3

// scheduler is the fixed worker pool described in spec.md §4.5: W workers,
// each with a bounded local queue, a shared global queue for overflow, and
// a shared high-priority global queue for system tasks. It is grounded on
// bollywood/engine.go's atomic running flag and actor-map orchestration,
// generalized from "one goroutine per actor forever" to "a fixed pool
// draining runnable actors in bounded quanta."
type scheduler struct {
	cfg Config

	locals   []*ring[Actor]
	globalHi *ring[Actor]
	global   *ring[Actor]

	running atomic.Bool
	wg      sync.WaitGroup

	idleCycles      atomic.Uint64
	stealSuccesses  atomic.Uint64
	stealAttemptsCt atomic.Uint64
}

// newScheduler builds a scheduler with cfg.resolvedWorkerThreads() workers.
// It does not start the worker goroutines; call Start for that.
func newScheduler(cfg Config) *scheduler {
	n := cfg.resolvedWorkerThreads()
	if n < 1 {
		n = 1
	}

	s := &scheduler{
		cfg:      cfg,
		locals:   make([]*ring[Actor], n),
		globalHi: newRing[Actor](globalQueueCapacity),
		global:   newRing[Actor](globalQueueCapacity),
	}
	for i := range s.locals {
		s.locals[i] = newRing[Actor](localQueueCapacity)
	}
	return s
}

// numWorkers returns the configured worker count.
func (s *scheduler) numWorkers() int { return len(s.locals) }

// Start launches one goroutine per worker. Calling Start after a prior Stop
// is not supported, matching the teacher's single-lifecycle engine.
func (s *scheduler) Start() {
	s.running.Store(true)
	for i := range s.locals {
		s.wg.Add(1)
		go s.workerLoop(i)
	}
}

// Stop flips the running flag; workers observe it at the top of their next
// loop iteration and exit after finishing whatever quantum they are
// mid-drain on. It does
// not wait for workers to exit — callers needing that join s.wg directly
// (ActorSystem.Shutdown does).
func (s *scheduler) Stop() {
	s.running.Store(false)
}

// Wait blocks until every worker goroutine has exited.
func (s *scheduler) Wait() {
	s.wg.Wait()
}

// schedule submits actor for execution, suppressing duplicate submission
// via the actor's scheduled flag (spec.md §4.5, "if it fires true while
// already true the call is dropped"). Call this for the false→true
// transition: a fresh send to an idle actor, or a worker re-enqueueing an
// actor whose mailbox emptied and then received a message before the flag
// was cleared.
func (s *scheduler) schedule(actor *Actor, highPriority bool) {
	if !actor.scheduled.CompareAndSwap(false, true) {
		return
	}
	s.enqueueActor(actor, highPriority)
}

// resubmit re-queues actor after a quantum that left it with pending work.
// The scheduled flag is already true from the prior schedule() call and
// stays true across this hand-off, so no CAS is needed here.
func (s *scheduler) resubmit(actor *Actor) {
	s.enqueueActor(actor, false)
}

// enqueueActor picks a destination queue and pushes actor into it. System
// tasks (highPriority) go to the high-priority global queue; everything
// else is sampled onto a local queue first, falling back to the ordinary
// global queue on contention, per spec.md §4.5's "picks the least-loaded
// local queue (sampling a small random subset suffices); on failure falls
// back to the global queue." lfq's queues deliberately expose no length
// (cross-core counts are expensive), so "least loaded" here means
// "happened to have room" rather than a true occupancy comparison.
func (s *scheduler) enqueueActor(actor *Actor, highPriority bool) {
	if highPriority {
		if err := s.globalHi.tryPush(actor); err == nil {
			return
		}
	}

	n := len(s.locals)
	start := rand.IntN(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if err := s.locals[idx].tryPush(actor); err == nil {
			return
		}
	}

	_ = s.global.tryPush(actor)
}

// steal attempts up to stealAttempts random peers' local queues, skipping
// the calling worker's own queue.
func (s *scheduler) steal(selfIdx int) (*Actor, bool) {
	n := len(s.locals)
	if n <= 1 {
		return nil, false
	}

	for i := 0; i < stealAttempts; i++ {
		victim := rand.IntN(n)
		if victim == selfIdx {
			continue
		}
		s.stealAttemptsCt.Add(1)
		if actor, ok := s.locals[victim].tryPop(); ok {
			s.stealSuccesses.Add(1)
			return actor, true
		}
	}
	return nil, false
}

// SchedulerStats reports scheduler-level counters exposed via
// ActorSystem.Stats.
type SchedulerStats struct {
	Workers        int
	IdleCycles     uint64
	StealAttempts  uint64
	StealSuccesses uint64
}

func (s *scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Workers:        len(s.locals),
		IdleCycles:     s.idleCycles.Load(),
		StealAttempts:  s.stealAttemptsCt.Load(),
		StealSuccesses: s.stealSuccesses.Load(),
	}
}
