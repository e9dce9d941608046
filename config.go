package swarm

import (
	"runtime"
	"time"
)

// RestartStrategy selects what a Supervisor does when a child actor fails.
// See spec.md §4.6.
type RestartStrategy int

const (
	// RestartOne sends a system Restart to only the failed child.
	RestartOne RestartStrategy = iota

	// StopOne sends a system Stop to only the failed child and
	// unregisters it.
	StopOne

	// RestartAll restarts every child of the supervisor.
	RestartAll

	// StopAll stops every child of the supervisor.
	StopAll

	// Escalate hands the failure to the parent supervisor's handler; if
	// there is none, it behaves like StopOne.
	Escalate
)

func (s RestartStrategy) String() string {
	switch s {
	case RestartOne:
		return "restart"
	case StopOne:
		return "stop"
	case RestartAll:
		return "restart_all"
	case StopAll:
		return "stop_all"
	case Escalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// SupervisorConfig holds the restart policy applied to a supervisor's
// children, per spec.md §4.6 and the configuration table in §6.
type SupervisorConfig struct {
	// Strategy is applied when a child fails.
	Strategy RestartStrategy

	// MaxRestarts is the number of restarts tolerated within
	// RestartWindow before the strategy downgrades to StopOne.
	MaxRestarts int

	// RestartWindow is the rolling window over which MaxRestarts is
	// counted. A restart occurring after this window has elapsed since
	// the previous one resets the count.
	RestartWindow time.Duration

	// BackoffInitial is the delay before the first restart attempt.
	BackoffInitial time.Duration

	// BackoffMax caps the exponential backoff delay.
	BackoffMax time.Duration

	// BackoffMultiplier scales the backoff delay after each successive
	// restart within the same window.
	BackoffMultiplier float64
}

// Config holds every recognized configuration option for an ActorSystem, per
// spec.md §6. Construct one with DefaultConfig and override fields as
// needed, or use the swarmcfg package to load one from a file or the
// environment.
type Config struct {
	// WorkerThreads is the number of scheduler worker goroutines. Zero
	// means "auto": runtime.GOMAXPROCS(0), treating spec.md's "NUMA
	// topology hint" as simply the logical CPU count.
	WorkerThreads int

	// MailboxCapacity is the default per-actor mailbox size. Must be a
	// power of two; non-power-of-two values are rounded up.
	MailboxCapacity int

	// MessagePoolCapacity is the number of envelopes preallocated by the
	// message pool, rounded up to the next power of two.
	MessagePoolCapacity int

	// MaxMessagesPerQuantum bounds how many messages a single run
	// quantum drains from one actor's mailbox.
	MaxMessagesPerQuantum int

	// QuantumBudget bounds the wall-clock time a single run quantum may
	// spend draining one actor's mailbox.
	QuantumBudget time.Duration

	// EnableWorkStealing toggles whether idle workers attempt to steal
	// actors from a peer's local queue.
	EnableWorkStealing bool

	// MaxActors is a hard cap on the number of actors the system's
	// registry will hold at once.
	MaxActors int

	// ShutdownTimeout is the configured shutdown deadline. ActorSystem.Shutdown
	// does not read it; it waits for the timeout passed to it instead.
	ShutdownTimeout time.Duration

	// Supervisor holds the default restart policy for the system's root
	// supervisor.
	Supervisor SupervisorConfig
}

// DefaultConfig returns the production-default configuration described in
// spec.md §6, mirroring the teacher's utils.DefaultConfig() in shape: one
// struct, one constructor, sane values for every field.
func DefaultConfig() Config {
	return Config{
		WorkerThreads:         0,
		MailboxCapacity:       1024,
		MessagePoolCapacity:   65535,
		MaxMessagesPerQuantum: 256,
		QuantumBudget:         100 * time.Microsecond,
		EnableWorkStealing:    true,
		MaxActors:             100_000,
		ShutdownTimeout:       30 * time.Second,
		Supervisor: SupervisorConfig{
			Strategy:          RestartOne,
			MaxRestarts:       3,
			RestartWindow:     60 * time.Second,
			BackoffInitial:    100 * time.Millisecond,
			BackoffMax:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
	}
}

// TestConfig returns a configuration tuned for fast, deterministic tests:
// small pools, short timers, two workers. This is the direct analogue
// of the teacher's utils.FastGameConfig().
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.WorkerThreads = 2
	cfg.MailboxCapacity = 16
	cfg.MessagePoolCapacity = 256
	cfg.MaxMessagesPerQuantum = 16
	cfg.QuantumBudget = 10 * time.Millisecond
	cfg.MaxActors = 1000
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Supervisor.RestartWindow = 2 * time.Second
	cfg.Supervisor.BackoffInitial = time.Millisecond
	cfg.Supervisor.BackoffMax = 20 * time.Millisecond

	return cfg
}

// resolvedWorkerThreads returns cfg.WorkerThreads, substituting
// runtime.GOMAXPROCS(0) when it is zero or negative.
func (cfg Config) resolvedWorkerThreads() int {
	if cfg.WorkerThreads > 0 {
		return cfg.WorkerThreads
	}
	return runtime.GOMAXPROCS(0)
}

// nextPowerOfTwo rounds n up to the next power of two, with a floor of 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
