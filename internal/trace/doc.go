// Package trace records what the code generator is doing and how long it
// takes.
//
// Tracing is off unless a tracer is attached to the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeModule, "module:kernels", parentID)
//	defer span.End("")
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: nothing is streamed; the ring keeps events for failure dumps
//   - LevelPhase: CLI command and pipeline stages
//   - LevelDetail: plus one span per IR module
//   - LevelDebug: plus one span per emitted function
//
// # Tracers
//
//   - Nop: zero-overhead default
//   - StreamTracer: writes each event as it happens (text or NDJSON)
//   - RingTracer: keeps the last N events in memory
//   - MultiTracer: fans out to several tracers
package trace
