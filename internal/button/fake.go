package button

import (
	"context"
	"sync/atomic"
)

// Fake is an Input driven directly by tests and the simulator mode.
type Fake struct {
	held  atomic.Bool
	press chan struct{}
}

func NewFake() *Fake {
	return &Fake{press: make(chan struct{}, 1)}
}

// Set drives the level; a false→true transition counts as a press edge.
func (f *Fake) Set(held bool) {
	was := f.held.Swap(held)
	if held && !was {
		select {
		case f.press <- struct{}{}:
		default:
		}
	}
}

func (f *Fake) Held() bool { return f.held.Load() }

func (f *Fake) WaitForPress(ctx context.Context) error {
	select {
	case <-f.press:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fake) Close() error { return nil }
