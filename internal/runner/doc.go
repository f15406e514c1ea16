// Package runner executes tasks under progress monitoring. Two executors are
// provided: ProcessRunner supervises a child process and scans its standard
// output for protocol lines, while RunFunc drives an in-process task function
// through the same listener plumbing over an in-memory pipe.
package runner
