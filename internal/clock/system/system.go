// Package system provides a real clock implementation.
package system

import (
	"context"
	"time"
)

// Clock implements the Sleep clock interface using the time package.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Sleep blocks for d or until ctx finishes, returning the context error in
// the latter case.
func (Clock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
