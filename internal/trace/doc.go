// Package trace records what the JIT does while it compiles and runs code.
//
// Events are spans (begin/end pairs) or points, tagged with a scope:
//
//   - ScopeSession: one compiler or CLI invocation
//   - ScopeUnit: finalizing, releasing or reifying a compilation unit
//   - ScopeFunction: per-function and per-global work
//
// The level picks how deep events go; LevelPhase keeps session and unit
// events, LevelDetail adds functions. A tracer travels through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeUnit, "finalize", 0)
//	defer span.End("")
//
// StreamTracer writes events as they happen (text, NDJSON or Chrome trace
// JSON); RingTracer keeps the last events for post-mortem dumps.
package trace
