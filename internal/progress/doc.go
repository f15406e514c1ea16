// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces used to report monitored-task milestones. Events are
// batched on a background goroutine and fanned out to pluggable sinks such as
// Prometheus metrics, structured logs, or an in-memory status store.
package progress
