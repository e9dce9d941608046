package swarm

// Behavior is the user-supplied message handler for an actor. Receive is
// the only required method; the lifecycle hooks below are optional and
// detected via interface type assertion rather than forcing every
// implementation to carry empty stubs (the pattern baselib/actor's
// Stoppable follows for its own optional capability).
type Behavior interface {
	// Receive handles one user message. Returning a non-nil error fails
	// the actor: the dispatch loop wraps it in a BehaviorFailure and
	// hands it to the owning Supervisor (spec.md §4.6).
	Receive(ctx Context) error
}

// PreStarter is implemented by behaviors that need to run setup logic
// before the first message is dispatched.
type PreStarter interface {
	PreStart(ctx Context) error
}

// PostStopper is implemented by behaviors that need to release resources
// once an actor has fully stopped.
type PostStopper interface {
	PostStop(ctx Context) error
}

// PreRestarter is implemented by behaviors that need to save state or
// release resources before a restart. A restart does not replace or reset
// the behavior instance: the same value keeps handling messages afterwards.
type PreRestarter interface {
	PreRestart(ctx Context, cause error) error
}

// PostRestarter is implemented by behaviors that need to reinitialize state
// immediately after a restart, before messages resume.
type PostRestarter interface {
	PostRestart(ctx Context) error
}

// callPreStart invokes b's PreStart hook if present, otherwise it is a
// no-op success.
func callPreStart(b Behavior, ctx Context) error {
	if h, ok := b.(PreStarter); ok {
		return h.PreStart(ctx)
	}
	return nil
}

func callPostStop(b Behavior, ctx Context) error {
	if h, ok := b.(PostStopper); ok {
		return h.PostStop(ctx)
	}
	return nil
}

func callPreRestart(b Behavior, ctx Context, cause error) error {
	if h, ok := b.(PreRestarter); ok {
		return h.PreRestart(ctx, cause)
	}
	return nil
}

func callPostRestart(b Behavior, ctx Context) error {
	if h, ok := b.(PostRestarter); ok {
		return h.PostRestart(ctx)
	}
	return nil
}
