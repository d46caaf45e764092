// Package button is the control-input collaborator: one physical button
// polled by the control loop for hold/press decisions, doubling as the wake
// source out of a hardware sleep.
package button

import "context"

// Input is polled once per tick. Implementations must make Held safe to
// call from the loop goroutine while edge events arrive on another.
type Input interface {
	// Held reports the current level of the control input.
	Held() bool
	// WaitForPress blocks until the next press edge or context cancel;
	// this is the armed wake source while the loop is suspended.
	WaitForPress(ctx context.Context) error
	Close() error
}
