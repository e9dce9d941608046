package swarm

import (
	"context"

	"github.com/btcsuite/btclog/v2"
)

// log is the package-wide subsystem logger. It defaults to a disabled
// logger so embedding applications pay no logging cost until they opt in by
// calling UseLogger, matching the btcsuite/lnd convention baselib/actor
// itself follows.
var log btclog.Logger = btclog.Disabled

// UseLogger configures swarm to use the given logger for all structured log
// output. Pass btclog.Disabled to silence logging entirely.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// traceIDFromContext extracts a correlation id stored in ctx under
// traceIDKey, if any, for inclusion in log lines. Nothing in this package
// stores one, so it returns "" for the contexts the runtime itself builds.
func traceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

type traceIDKey struct{}

func withTraceID(ctx context.Context, kv []any) []any {
	if tid := traceIDFromContext(ctx); tid != "" {
		kv = append(kv, "trace_id", tid)
	}
	return kv
}

// TraceS logs a trace-level structured message. Trace is the most verbose
// level and is expected to be compiled out or disabled in production.
func TraceS(ctx context.Context, msg string, kv ...any) {
	log.TraceS(ctx, msg, withTraceID(ctx, kv)...)
}

// DebugS logs a debug-level structured message.
func DebugS(ctx context.Context, msg string, kv ...any) {
	log.DebugS(ctx, msg, withTraceID(ctx, kv)...)
}

// InfoS logs an info-level structured message.
func InfoS(ctx context.Context, msg string, kv ...any) {
	log.InfoS(ctx, msg, withTraceID(ctx, kv)...)
}

// WarnS logs a warning-level structured message with an explicit error
// cause, matching baselib/actor's log.WarnS(ctx, msg, err, "k", v) shape.
func WarnS(ctx context.Context, msg string, err error, kv ...any) {
	log.WarnS(ctx, msg, err, withTraceID(ctx, kv)...)
}

// ErrorS logs an error-level structured message with an explicit error
// cause.
func ErrorS(ctx context.Context, msg string, err error, kv ...any) {
	log.ErrorS(ctx, msg, err, withTraceID(ctx, kv)...)
}
