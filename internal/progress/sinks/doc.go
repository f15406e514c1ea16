// Package sinks contains progress.Sink implementations: structured logging,
// Prometheus metrics, and an in-memory status store backing the control API.
package sinks
