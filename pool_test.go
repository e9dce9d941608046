package swarm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestPoolAcquireReleaseConservation verifies spec.md §8 property 1: pool
// conservation. free_slots + in_use == capacity at quiescence.
func TestPoolAcquireReleaseConservation(t *testing.T) {
	t.Parallel()

	p := NewPool(64)
	require.Equal(t, 64, p.Cap())

	var acquired []*Envelope
	for i := 0; i < p.Cap(); i++ {
		e, err := p.Acquire()
		require.NoError(t, err)
		acquired = append(acquired, e)
	}

	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrPoolExhausted)

	for _, e := range acquired {
		p.Release(e)
	}

	stats := p.Stats()
	assert.Equal(t, int64(64), stats.Acquired)
	assert.Equal(t, int64(64), stats.Released)

	// Every slot must be re-acquirable now that all were released.
	for i := 0; i < p.Cap(); i++ {
		_, err := p.Acquire()
		require.NoError(t, err)
	}
}

// TestPoolSequenceSkipsZero verifies spec.md §3: "sequence is assigned from
// a monotonic counter that skips 0."
func TestPoolSequenceSkipsZero(t *testing.T) {
	t.Parallel()

	p := NewPool(4)
	for i := 0; i < 1000; i++ {
		e, err := p.Acquire()
		require.NoError(t, err)
		assert.NotZero(t, e.Sequence())
		p.Release(e)
	}
}

// TestPoolDoubleReleaseIsNoOp verifies spec.md §4.2: "double-release is
// detected by sequence == 0 on the released slot and is a no-op."
func TestPoolDoubleReleaseIsNoOp(t *testing.T) {
	t.Parallel()

	p := NewPool(2)
	e, err := p.Acquire()
	require.NoError(t, err)

	p.Release(e)
	before := p.Stats().Released

	p.Release(e)
	after := p.Stats().Released

	assert.Equal(t, before, after, "second release must not double-count")
}

// TestPoolConcurrentAcquireRelease hammers the pool from many goroutines and
// checks conservation holds at quiescence, per spec.md §8 property 1's "for
// all interleavings."
func TestPoolConcurrentAcquireRelease(t *testing.T) {
	t.Parallel()

	p := NewPool(128)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				e, err := p.Acquire()
				if err != nil {
					continue
				}
				p.Release(e)
			}
		}()
	}
	wg.Wait()

	var drained []*Envelope
	for {
		e, err := p.Acquire()
		if err != nil {
			break
		}
		drained = append(drained, e)
	}
	assert.Len(t, drained, p.Cap())
	for _, e := range drained {
		p.Release(e)
	}
}

// TestPoolConservationProperty is a rapid-driven property test generating
// random acquire/release interleavings and asserting conservation holds
// whenever the pool returns to quiescence (spec.md §8 property 1,
// SPEC_FULL.md §8's rapid-based supplement).
func TestPoolConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 32).Draw(rt, "capacity")
		p := NewPool(capacity)

		var held []*Envelope
		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "acquire") || len(held) == 0 {
				e, err := p.Acquire()
				if err == nil {
					held = append(held, e)
				}
			} else {
				idx := rapid.IntRange(0, len(held)-1).Draw(rt, "idx")
				p.Release(held[idx])
				held = append(held[:idx], held[idx+1:]...)
			}
		}

		for _, e := range held {
			p.Release(e)
		}

		stats := p.Stats()
		if stats.Acquired-stats.Released != 0 {
			rt.Fatalf("pool not conserved: acquired=%d released=%d cap=%d",
				stats.Acquired, stats.Released, p.Cap())
		}
	})
}
