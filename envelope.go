package swarm

import "context"

// Kind tags the payload carried by an Envelope. The set is closed: every
// Kind has exactly one valid payload shape, enforced by the constructors in
// this file rather than by a class hierarchy (spec.md §9, "variants of
// message payload are a closed tagged union, not a class hierarchy").
type Kind uint8

const (
	// KindUserString carries an inline string payload (up to
	// maxInlineString bytes).
	KindUserString Kind = iota + 1

	// KindUserInt carries a signed 64-bit integer payload.
	KindUserInt

	// KindUserFloat carries a 64-bit float payload.
	KindUserFloat

	// KindUserBlob carries an owned, heap-backed byte slice for payloads
	// too large for the inline slot.
	KindUserBlob

	// KindSystemStart is delivered once, before any other message, to
	// transition an actor from Created to Running.
	KindSystemStart

	// KindSystemStop requests a graceful transition to Stopping then
	// Stopped.
	KindSystemStop

	// KindSystemRestart requests pre_restart/post_restart be invoked
	// without changing the actor's Running state.
	KindSystemRestart

	// KindSystemPing requests a KindSystemPong reply to SenderID.
	KindSystemPing

	// KindSystemPong is the (inert) reply to a KindSystemPing.
	KindSystemPong

	// KindControlShutdown behaves like KindSystemStop but originates
	// from the system's shutdown path rather than user code.
	KindControlShutdown

	// KindControlSuspend transitions an actor to Suspended: dispatch is
	// blocked but enqueue still succeeds.
	KindControlSuspend

	// KindControlResume transitions a Suspended actor back to Running.
	KindControlResume
)

// IsSystem reports whether k is one of the system/control kinds that the
// actor core intercepts before user dispatch (spec.md §4.4 step 1), as
// opposed to a user kind handed to Behavior.Receive.
func (k Kind) IsSystem() bool {
	return k >= KindSystemStart
}

func (k Kind) String() string {
	switch k {
	case KindUserString:
		return "UserString"
	case KindUserInt:
		return "UserInt"
	case KindUserFloat:
		return "UserFloat"
	case KindUserBlob:
		return "UserBlob"
	case KindSystemStart:
		return "SystemStart"
	case KindSystemStop:
		return "SystemStop"
	case KindSystemRestart:
		return "SystemRestart"
	case KindSystemPing:
		return "SystemPing"
	case KindSystemPong:
		return "SystemPong"
	case KindControlShutdown:
		return "ControlShutdown"
	case KindControlSuspend:
		return "ControlSuspend"
	case KindControlResume:
		return "ControlResume"
	default:
		return "Unknown"
	}
}

// maxInlineString is the largest inline string payload an Envelope can
// carry before a KindUserBlob (heap-backed) envelope must be used instead.
const maxInlineString = 32

// Envelope is a fixed-layout message record. Every field is plain data; no
// envelope ever outlives the pool slot backing it except via explicit
// ownership transfer into a mailbox (spec.md §3, §9 "Message ownership").
//
// sequence is the pool's free/in-use discriminator: zero means the slot is
// free, non-zero means it holds a live message. Pool.Acquire assigns the
// sequence; Pool.Release zeroes it.
type Envelope struct {
	Kind Kind

	// ActorID is the recipient; SenderID is the originator (0 = none).
	ActorID  uint64
	SenderID uint64

	sequence uint64

	// traceID is an ambient log-correlation id (SPEC_FULL.md §3); it is
	// never interpreted by dispatch logic.
	traceID string

	// callerCtx is the Ask caller's context, non-nil only for envelopes
	// originated by ActorSystem.ask. The dispatch loop merges it with
	// the actor's own lifecycle context so a behavior sees whichever
	// cancels first (SPEC_FULL.md §5).
	callerCtx context.Context

	// inline payload storage, tagged by Kind.
	strLen  uint8
	strBuf  [maxInlineString]byte
	intVal  int64
	fltVal  float64
	blob    []byte
	blobTag uint64
}

// Sequence returns the pool-assigned sequence number. A zero value means
// the envelope does not currently hold a live message.
func (e *Envelope) Sequence() uint64 { return e.sequence }

// TraceID returns the ambient correlation id. Pool.Acquire does not assign
// one and no code path in this package sets it, so it reads as "".
func (e *Envelope) TraceID() string { return e.traceID }

// String returns the inline string payload. Valid only when Kind ==
// KindUserString.
func (e *Envelope) String() string {
	return string(e.strBuf[:e.strLen])
}

// Int returns the integer payload. Valid only when Kind == KindUserInt.
func (e *Envelope) Int() int64 { return e.intVal }

// Float returns the float payload. Valid only when Kind == KindUserFloat.
func (e *Envelope) Float() float64 { return e.fltVal }

// Blob returns the heap-backed byte payload and its type-tag hash. Valid
// only when Kind == KindUserBlob.
func (e *Envelope) Blob() ([]byte, uint64) { return e.blob, e.blobTag }

// setUserString installs a string payload, truncating to maxInlineString
// bytes. Truncation rather than failure keeps Acquire+publish a two-step,
// always-succeeding sequence once a slot has been acquired.
func (e *Envelope) setUserString(s string) {
	e.Kind = KindUserString
	if len(s) > maxInlineString {
		s = s[:maxInlineString]
	}
	e.strLen = uint8(copy(e.strBuf[:], s))
}

func (e *Envelope) setUserInt(v int64) {
	e.Kind = KindUserInt
	e.intVal = v
}

func (e *Envelope) setUserFloat(v float64) {
	e.Kind = KindUserFloat
	e.fltVal = v
}

// setUserBlob installs an owned byte slice payload plus a type-tag hash
// identifying the original Go type, for heap-backed messages too large for
// the inline slot. Ownership of data transfers to the envelope; callers
// must not mutate it afterward.
func (e *Envelope) setUserBlob(data []byte, typeTag uint64) {
	e.Kind = KindUserBlob
	e.blob = data
	e.blobTag = typeTag
}

func (e *Envelope) setSystem(kind Kind) {
	e.Kind = kind
}

// reset clears every field back to its zero value, releasing the blob slice
// for GC. Called by Pool.Release; sequence is zeroed by the caller right
// after reset and before the slot goes back on the free list, so a slot
// another goroutine re-acquires is never zeroed behind its back.
func (e *Envelope) reset() {
	e.Kind = 0
	e.ActorID = 0
	e.SenderID = 0
	e.traceID = ""
	e.callerCtx = nil
	e.strLen = 0
	e.intVal = 0
	e.fltVal = 0
	e.blob = nil
	e.blobTag = 0
}
