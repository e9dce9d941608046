package swarm

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Future represents the result of an Ask, adapted directly from
// baselib/actor's Future[T]/Promise[T] pair since that shape already
// expresses results in terms of fn.Result[T].
type Future[T any] interface {
	// Await blocks until the result is available or ctx is cancelled.
	Await(ctx context.Context) fn.Result[T]

	// OnComplete registers fn to run when the result becomes available,
	// or immediately with ctx's error if ctx is cancelled first.
	OnComplete(ctx context.Context, fn func(fn.Result[T]))
}

// Promise is the write side of a Future: exactly one Complete call sets the
// result every later Await/OnComplete observes.
type Promise[T any] interface {
	Future() Future[T]

	// Complete sets the result. It returns true if this call was the
	// first to do so.
	Complete(result fn.Result[T]) bool
}

type promise[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	result   fn.Result[T]
	complete bool
}

// NewPromise creates an incomplete Promise/Future pair.
func NewPromise[T any]() Promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

func (p *promise[T]) Future() Future[T] { return p }

func (p *promise[T]) Complete(result fn.Result[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.complete {
		return false
	}
	p.result = result
	p.complete = true
	close(p.done)
	return true
}

func (p *promise[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result
	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

func (p *promise[T]) OnComplete(ctx context.Context, f func(fn.Result[T])) {
	go func() {
		f(p.Await(ctx))
	}()
}
