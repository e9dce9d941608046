package swarm

import "context"

// Context is passed to every Behavior hook invocation. It exposes the
// dispatching actor's own handle, the envelope currently being processed,
// the owning system, and a cancellation context honoring both the actor's
// lifecycle and (for Ask-originated messages) the caller's deadline — the
// merged-context pattern baselib/actor's mergeContexts establishes for Ask.
//
// Context is only valid for the duration of the hook call it was passed to;
// a Behavior must not retain one past that call.
type Context interface {
	// Self returns a ref to the actor processing the current message.
	Self() *ActorRef

	// Sender returns a ref to the actor that sent the current message, or
	// nil if the message had no resolvable sender (e.g. an external
	// caller, or a system message with SenderID == 0).
	Sender() *ActorRef

	// System returns the owning ActorSystem.
	System() *ActorSystem

	// Envelope returns the raw envelope currently being dispatched. Its
	// contents must not be mutated; it is returned to the pool the
	// instant the current hook returns.
	Envelope() *Envelope

	// Context returns a context.Context cancelled when the actor processes
	// a Stop or Shutdown, merged with any deadline the originating Ask
	// carried. Suspend, failure and restart do not cancel it.
	Context() context.Context

	// Reply sends a string-payload message back to Sender, if resolvable.
	// It is a convenience wrapper used by Ask-style request/response
	// behaviors.
	Reply(s string) error
}

// actorContext is the concrete Context implementation, reused across
// dispatches for one actor to avoid a per-message allocation; actor.go
// repopulates its fields before each hook call.
type actorContext struct {
	self   *ActorRef
	sender *ActorRef
	system *ActorSystem
	env    *Envelope
	ctx    context.Context
}

func (c *actorContext) Self() *ActorRef         { return c.self }
func (c *actorContext) Sender() *ActorRef       { return c.sender }
func (c *actorContext) System() *ActorSystem    { return c.system }
func (c *actorContext) Envelope() *Envelope     { return c.env }
func (c *actorContext) Context() context.Context { return c.ctx }

func (c *actorContext) Reply(s string) error {
	return c.system.reply(c.env.SenderID, s)
}

// mergeContexts returns a context cancelled when either ctx1 or ctx2 is
// done, preserving whichever has the earlier deadline. Adopted from
// baselib/actor's mergeContexts so an Ask honors both the target actor's
// lifecycle and the caller's own deadline (SPEC_FULL.md §5).
func mergeContexts(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	deadline1, hasDeadline1 := ctx1.Deadline()
	deadline2, hasDeadline2 := ctx2.Deadline()

	base := ctx1
	if hasDeadline2 && (!hasDeadline1 || deadline2.Before(deadline1)) {
		base = ctx2
	}

	merged, cancel := context.WithCancel(base)

	go func() {
		select {
		case <-ctx1.Done():
			cancel()
		case <-ctx2.Done():
			cancel()
		case <-merged.Done():
		}
	}()

	return merged, cancel
}
