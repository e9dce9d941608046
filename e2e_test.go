package swarm

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appenderBehavior appends every UserString payload it receives, backing
// spec.md's S1 scenario.
type appenderBehavior struct {
	mu  sync.Mutex
	log []string
}

func (a *appenderBehavior) Receive(ctx Context) error {
	env := ctx.Envelope()
	if env.Kind != KindUserString {
		return nil
	}
	a.mu.Lock()
	a.log = append(a.log, env.String())
	a.mu.Unlock()
	return nil
}

func (a *appenderBehavior) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.log))
	copy(out, a.log)
	return out
}

// TestS1Echo is spec.md §8's S1 scenario verbatim.
func TestS1Echo(t *testing.T) {
	t.Parallel()

	sys := NewActorSystem("s1", TestConfig())
	defer sys.Shutdown(time.Second)

	behavior := &appenderBehavior{}
	ref, err := sys.Spawn("echo", behavior)
	require.NoError(t, err)

	require.NoError(t, ref.Tell("a"))
	require.NoError(t, ref.Tell("b"))
	require.NoError(t, ref.Tell("c"))

	require.Eventually(t, func() bool {
		return len(behavior.snapshot()) == 3
	}, time.Second, time.Millisecond)

	assert.Equal(t, []string{"a", "b", "c"}, behavior.snapshot())
}

// counterBehavior records every UserInt payload it receives, in order.
type counterBehavior struct {
	mu     sync.Mutex
	values []int64
}

func (c *counterBehavior) Receive(ctx Context) error {
	env := ctx.Envelope()
	if env.Kind != KindUserInt {
		return nil
	}
	c.mu.Lock()
	c.values = append(c.values, env.Int())
	c.mu.Unlock()
	return nil
}

func (c *counterBehavior) snapshot() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.values))
	copy(out, c.values)
	return out
}

// TestS2MailboxFull is spec.md §8's S2 scenario verbatim: mailbox_capacity=4,
// suspended actor, 5 sends (4 succeed, 5th MailboxFull), then Resume
// delivers exactly 1,2,3,4 in order.
func TestS2MailboxFull(t *testing.T) {
	t.Parallel()

	cfg := TestConfig()
	cfg.MailboxCapacity = 4
	sys := NewActorSystem("s2", cfg)
	defer sys.Shutdown(time.Second)

	behavior := &counterBehavior{}
	ref, err := sys.Spawn("counter", behavior)
	require.NoError(t, err)

	require.NoError(t, ref.Suspend())
	require.Eventually(t, func() bool {
		return ref.State() == StateSuspended
	}, time.Second, time.Millisecond)

	for i := int64(1); i <= 4; i++ {
		require.NoError(t, ref.TellInt(i))
	}
	err = ref.TellInt(5)
	assert.ErrorIs(t, err, ErrMailboxFull)

	require.NoError(t, ref.Resume())

	require.Eventually(t, func() bool {
		return len(behavior.snapshot()) == 4
	}, time.Second, time.Millisecond)

	assert.Equal(t, []int64{1, 2, 3, 4}, behavior.snapshot())
}

// flakyBehavior fails exactly once, on its Nth received UserInt.
type flakyBehavior struct {
	mu sync.Mutex

	failOn       int
	seen         int
	received     []int64
	postRestarts int
}

var errFlaky = errors.New("flaky: scheduled failure")

func (f *flakyBehavior) Receive(ctx Context) error {
	env := ctx.Envelope()
	if env.Kind != KindUserInt {
		return nil
	}

	f.mu.Lock()
	f.seen++
	seen := f.seen
	f.mu.Unlock()

	if seen == f.failOn {
		return errFlaky
	}

	f.mu.Lock()
	f.received = append(f.received, env.Int())
	f.mu.Unlock()
	return nil
}

func (f *flakyBehavior) PostRestart(ctx Context) error {
	f.mu.Lock()
	f.postRestarts++
	f.mu.Unlock()
	return nil
}

func (f *flakyBehavior) snapshot() ([]int64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.received))
	copy(out, f.received)
	return out, f.postRestarts
}

// TestS3RestartOnFailure is spec.md §8's S3 scenario: Receive fails on
// message 2, strategy=Restart with max_restarts=1/window=60s; message 1
// succeeds, message 2 triggers a restart, message 3 succeeds post-restart.
func TestS3RestartOnFailure(t *testing.T) {
	t.Parallel()

	cfg := TestConfig()
	cfg.Supervisor = SupervisorConfig{
		Strategy:          RestartOne,
		MaxRestarts:       1,
		RestartWindow:     60 * time.Second,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	sys := NewActorSystem("s3", cfg)
	defer sys.Shutdown(time.Second)

	behavior := &flakyBehavior{failOn: 2}
	ref, err := sys.Spawn("flaky", behavior)
	require.NoError(t, err)

	require.NoError(t, ref.TellInt(1))
	require.NoError(t, ref.TellInt(2))
	require.NoError(t, ref.TellInt(3))

	require.Eventually(t, func() bool {
		received, restarts := behavior.snapshot()
		return len(received) == 2 && restarts == 1
	}, time.Second, time.Millisecond)

	received, restarts := behavior.snapshot()
	assert.Equal(t, []int64{1, 3}, received)
	assert.Equal(t, 1, restarts)
	assert.Equal(t, uint64(1), sys.supervisor.Stats().Restarts)
}

// TestS4RestartExceededStops is spec.md §8's S4 scenario: same as S3 but
// max_restarts=0, so the actor stops after the error on message 2 and
// message 3 fails with ActorNotFound (or is dropped).
func TestS4RestartExceededStops(t *testing.T) {
	t.Parallel()

	cfg := TestConfig()
	cfg.Supervisor = SupervisorConfig{
		Strategy:          RestartOne,
		MaxRestarts:       0,
		RestartWindow:     60 * time.Second,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	sys := NewActorSystem("s4", cfg)
	defer sys.Shutdown(time.Second)

	behavior := &flakyBehavior{failOn: 2}
	ref, err := sys.Spawn("flaky", behavior)
	require.NoError(t, err)

	require.NoError(t, ref.TellInt(1))
	require.NoError(t, ref.TellInt(2))

	require.Eventually(t, func() bool {
		return ref.State() == StateStopped
	}, time.Second, time.Millisecond)

	err = ref.TellInt(3)
	assert.ErrorIs(t, err, ErrActorNotFound)

	received, _ := behavior.snapshot()
	assert.Equal(t, []int64{1}, received)
}

// TestS5PingPong is spec.md §8's S5 scenario: A pings B (sender=A); B's
// automatic Pong reply lands in A's mailbox within the next quantum.
func TestS5PingPong(t *testing.T) {
	t.Parallel()

	sys := NewActorSystem("s5", TestConfig())
	defer sys.Shutdown(time.Second)

	a, err := sys.Spawn("a", &nopBehavior{})
	require.NoError(t, err)
	b, err := sys.Spawn("b", &nopBehavior{})
	require.NoError(t, err)

	// Let both actors finish processing their own Start message before
	// taking the baseline, so the only delta left to observe is the Pong.
	require.Eventually(t, func() bool {
		return a.State() == StateRunning && b.State() == StateRunning
	}, time.Second, time.Millisecond)
	baseline := a.actor.mailbox.Stats().Received

	require.NoError(t, b.Ping(a))

	require.Eventually(t, func() bool {
		return a.actor.mailbox.Stats().Received > baseline
	}, time.Second, time.Millisecond, "expected a Pong to land in a's mailbox")
}

// shutdownCountingBehavior counts Receive invocations across all its
// instances, for spec.md's S6 scenario.
type shutdownCountingBehavior struct {
	count *atomic.Int64
}

func (b *shutdownCountingBehavior) Receive(ctx Context) error {
	b.count.Add(1)
	return nil
}

// TestS6ShutdownDrains is spec.md §8's S6 scenario: spawn N actors, send M
// messages each, shutdown; sum of Receive invocations <= N*M, pool
// conservation holds, every actor ends Stopped, no leaked envelopes.
func TestS6ShutdownDrains(t *testing.T) {
	t.Parallel()

	const n, m = 10, 20

	cfg := TestConfig()
	cfg.MessagePoolCapacity = 256
	sys := NewActorSystem("s6", cfg)

	var count atomic.Int64
	refs := make([]*ActorRef, n)
	for i := 0; i < n; i++ {
		ref, err := sys.Spawn("worker", &shutdownCountingBehavior{count: &count})
		require.NoError(t, err)
		refs[i] = ref
	}

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			_ = refs[i].TellInt(int64(j))
		}
	}

	sys.Shutdown(5 * time.Second)

	assert.LessOrEqual(t, count.Load(), int64(n*m))
	for _, ref := range refs {
		state := ref.State()
		assert.Equal(t, StateStopped, state, "actor ended in %s", state)
	}

	stats := sys.Stats()
	assert.Equal(t, stats.Pool.Acquired, stats.Pool.Released, "every acquired envelope must be released")
}

// TestSingleOwnerDrain verifies spec.md §8 property 4: no two workers
// execute Receive on the same actor concurrently. A misbehaving scheduler
// would trip the reentrancy guard below under load.
func TestSingleOwnerDrain(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.WorkerThreads = 8
	cfg.MailboxCapacity = 1024
	sys := NewActorSystem("single-owner", cfg)
	defer sys.Shutdown(time.Second)

	behavior := &reentrancyGuardBehavior{}
	ref, err := sys.Spawn("guarded", behavior)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = ref.TellInt(int64(i))
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return behavior.count.Load() >= 1
	}, 2*time.Second, time.Millisecond)

	assert.False(t, behavior.violated.Load(), "two workers dispatched to the same actor concurrently")
}

type reentrancyGuardBehavior struct {
	inside   atomic.Bool
	violated atomic.Bool
	count    atomic.Int64
}

func (b *reentrancyGuardBehavior) Receive(ctx Context) error {
	if !b.inside.CompareAndSwap(false, true) {
		b.violated.Store(true)
		return nil
	}
	b.count.Add(1)
	b.inside.Store(false)
	return nil
}

// TestStateMachineSafety verifies spec.md §8 property 5: once Stopped, no
// further Receive fires.
func TestStateMachineSafety(t *testing.T) {
	t.Parallel()

	sys := NewActorSystem("state-safety", TestConfig())
	defer sys.Shutdown(time.Second)

	behavior := &counterBehavior{}
	ref, err := sys.Spawn("counted", behavior)
	require.NoError(t, err)

	require.NoError(t, ref.TellInt(1))
	require.NoError(t, ref.Stop())

	require.Eventually(t, func() bool {
		return ref.State() == StateStopped
	}, time.Second, time.Millisecond)

	stoppedCount := len(behavior.snapshot())

	// Further sends to a Stopped actor must not reach Receive.
	err = ref.TellInt(2)
	assert.ErrorIs(t, err, ErrActorNotFound)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stoppedCount, len(behavior.snapshot()))
}

// TestShutdownBounded verifies spec.md §8 property 8: after Shutdown(timeout)
// returns, all worker threads have joined and elapsed time <= timeout + eps.
func TestShutdownBounded(t *testing.T) {
	t.Parallel()

	sys := NewActorSystem("shutdown-bounded", TestConfig())
	_, err := sys.Spawn("a", &nopBehavior{})
	require.NoError(t, err)

	timeout := 200 * time.Millisecond
	start := time.Now()
	sys.Shutdown(timeout)
	elapsed := time.Since(start)

	assert.LessOrEqual(t, elapsed, timeout+500*time.Millisecond)
}
