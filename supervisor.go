package swarm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// childRecord tracks one supervised actor's restart bookkeeping, per
// spec.md §3's "Supervisor child record": `{ actor_handle, restart_count,
// last_restart_at, next_backoff }`.
type childRecord struct {
	mu sync.Mutex

	actor  *Actor
	policy SupervisorConfig

	restartCount  int
	lastRestartAt time.Time
	nextBackoff   time.Duration
}

// Supervisor implements the restart policy of spec.md §4.6: per-child
// restart-count/window/backoff bookkeeping, plus a system-wide circuit
// breaker that downgrades any strategy to StopOne once failures are
// arriving too fast for per-child accounting to be meaningful — the
// idiomatic Go shape for "give up after too many failures," since bollywood
// itself never implements a supervision strategy (its process.go carries a
// bare TODO where this logic would go).
type Supervisor struct {
	defaultPolicy SupervisorConfig

	mu       sync.Mutex
	children map[uint64]*childRecord

	breaker *gobreaker.CircuitBreaker

	restarts atomic.Uint64
}

// NewSupervisor builds a Supervisor applying policy to every child it is
// given unless a future per-child override is introduced.
func NewSupervisor(policy SupervisorConfig) *Supervisor {
	s := &Supervisor{
		defaultPolicy: policy,
		children:      make(map[uint64]*childRecord),
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "swarm-supervisor",
		MaxRequests: 1,
		Interval:    policy.RestartWindow,
		Timeout:     policy.BackoffMax,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(policy.MaxRestarts+1)
		},
	})

	return s
}

// register starts tracking actor under this supervisor's default policy.
func (s *Supervisor) register(actor *Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[actor.id] = &childRecord{actor: actor, policy: s.defaultPolicy}
}

// unregister stops tracking actor, e.g. once it has been permanently
// removed from the system.
func (s *Supervisor) unregister(actorID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.children, actorID)
}

func (s *Supervisor) snapshot() []*childRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*childRecord, 0, len(s.children))
	for _, rec := range s.children {
		out = append(out, rec)
	}
	return out
}

// onFailure runs the decision in spec.md §4.6 "On child failure" for one
// failed actor and applies the resulting strategy.
func (s *Supervisor) onFailure(actor *Actor, failure *BehaviorFailure) {
	s.mu.Lock()
	rec, ok := s.children[actor.id]
	s.mu.Unlock()
	if !ok {
		return
	}

	rec.mu.Lock()
	now := time.Now()
	if !rec.lastRestartAt.IsZero() && now.Sub(rec.lastRestartAt) > rec.policy.RestartWindow {
		rec.restartCount = 0
		rec.nextBackoff = 0
	}

	strategy := rec.policy.Strategy
	if rec.restartCount >= rec.policy.MaxRestarts {
		strategy = StopOne
	}

	// A child still inside its own restart budget on its first failure of
	// the window has not contributed to a systemic failure pattern yet; the
	// breaker's system-wide trip must not downgrade it before its own
	// per-child accounting would.
	withinOwnBudget := rec.restartCount == 0 && rec.policy.MaxRestarts > 0

	var backoff time.Duration
	if rec.restartCount == 0 {
		backoff = rec.policy.BackoffInitial
	} else {
		backoff = time.Duration(float64(rec.nextBackoff) * rec.policy.BackoffMultiplier)
	}
	if backoff > rec.policy.BackoffMax {
		backoff = rec.policy.BackoffMax
	}

	rec.nextBackoff = backoff
	rec.restartCount++
	rec.lastRestartAt = now
	rec.mu.Unlock()

	_, breakerErr := s.breaker.Execute(func() (interface{}, error) {
		return nil, failure.Cause
	})
	breakerTripped := breakerErr == gobreaker.ErrOpenState || breakerErr == gobreaker.ErrTooManyRequests
	if breakerTripped && !withinOwnBudget {
		strategy = StopOne
	}

	WarnS(actor.lifecycleCtx, "actor failed", failure.Cause,
		"actor_id", actor.id, "strategy", strategy.String(), "backoff", backoff)

	switch strategy {
	case RestartOne:
		time.AfterFunc(backoff, func() {
			s.restarts.Add(1)
			_ = actor.ref.Restart()
		})
	case RestartAll:
		time.AfterFunc(backoff, func() {
			for _, r := range s.snapshot() {
				s.restarts.Add(1)
				_ = r.actor.ref.Restart()
			}
		})
	case StopOne, Escalate:
		// This supervisor is always the system's root: there is no
		// parent to escalate to, so Escalate degrades to Stop per
		// spec.md §4.6.
		_ = actor.ref.Stop()
		s.unregister(actor.id)
	case StopAll:
		for _, r := range s.snapshot() {
			_ = r.actor.ref.Stop()
			s.unregister(r.actor.id)
		}
	}
}

// SupervisorStats reports supervisor-level counters exposed via
// ActorSystem.Stats.
type SupervisorStats struct {
	Children     int
	Restarts     uint64
	BreakerState string
}

func (s *Supervisor) Stats() SupervisorStats {
	return SupervisorStats{
		Children:     len(s.snapshot()),
		Restarts:     s.restarts.Load(),
		BreakerState: s.breaker.State().String(),
	}
}
