package swarm

import (
	"errors"
	"fmt"
)

// ErrMailboxFull is returned by an enqueue attempt against a mailbox that has
// reached its configured capacity. The sender is expected to retry, drop the
// message, or apply its own back-pressure policy; the runtime never blocks on
// a full mailbox.
var ErrMailboxFull = errors.New("swarm: mailbox full")

// ErrPoolExhausted is returned when Acquire finds no free envelope slots. Per
// the decision recorded in SPEC_FULL.md §9, the pool never spin-waits; the
// caller decides whether to retry or apply back-pressure.
var ErrPoolExhausted = errors.New("swarm: message pool exhausted")

// ErrActorNotFound is returned when a send targets an actor id that is
// unknown to the system, or that has already transitioned to Stopped/Failed.
var ErrActorNotFound = errors.New("swarm: actor not found")

// ErrSystemShutdown is returned when an operation is rejected because the
// owning ActorSystem is in the process of shutting down.
var ErrSystemShutdown = errors.New("swarm: system is shutting down")

// ErrInvalidTransition indicates a state-machine protocol violation, such as
// attempting to start an already-Stopped actor. It signals a defect in the
// runtime or in code driving it directly rather than through ActorSystem.
var ErrInvalidTransition = errors.New("swarm: invalid actor state transition")

// ErrActorTerminated indicates an operation failed because its target actor
// was terminated, mirroring the sentinel shape of baselib/actor's
// ErrActorTerminated.
var ErrActorTerminated = errors.New("swarm: actor terminated")

// ErrTooManyActors is returned by Spawn when the registry is already at
// Config.MaxActors.
var ErrTooManyActors = errors.New("swarm: actor registry at capacity")

// BehaviorFailure wraps an error returned by a user behavior's Receive or
// lifecycle hook. It is never surfaced to a message's sender; the dispatch
// loop hands it to the owning Supervisor instead (spec.md §7).
type BehaviorFailure struct {
	ActorID uint64
	Cause   error
}

func (e *BehaviorFailure) Error() string {
	return fmt.Sprintf("swarm: actor %d behavior failed: %v", e.ActorID, e.Cause)
}

// Unwrap allows errors.Is/errors.As to see through to the original cause.
func (e *BehaviorFailure) Unwrap() error {
	return e.Cause
}
