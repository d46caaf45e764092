//go:build linux

package button

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// gpioInput reads an active-low momentary button on a GPIO character-device
// line. Edge events maintain the held level and feed the wake channel, so
// Held is a lock-free read from the loop.
type gpioInput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	held  atomic.Bool
	press chan struct{}
}

// OpenGPIO requests lineName (e.g. "GPIO41") with both edges and an internal
// pull-up. If chipPath is empty, every /dev/gpiochip* is probed, the way the
// Pi kernels shuffle header GPIOs between chips.
func OpenGPIO(chipPath, lineName string) (Input, error) {
	if lineName == "" {
		return nil, fmt.Errorf("button: line name is required")
	}

	candidates := []string{chipPath}
	if chipPath == "" {
		entries, _ := os.ReadDir("/dev")
		candidates = candidates[:0]
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", e.Name()))
			}
		}
	}

	g := &gpioInput{press: make(chan struct{}, 1)}
	for _, path := range candidates {
		chip, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithConsumer("spintrackd-button"),
			gpiocdev.WithEventHandler(g.onEvent),
		)
		if err != nil {
			_ = chip.Close()
			continue
		}
		g.chip = chip
		g.line = line
		return g, nil
	}
	return nil, fmt.Errorf("button: gpio line %q not found (or busy)", lineName)
}

func (g *gpioInput) onEvent(evt gpiocdev.LineEvent) {
	switch evt.Type {
	case gpiocdev.LineEventFallingEdge: // active low: pressed
		g.held.Store(true)
		select {
		case g.press <- struct{}{}:
		default:
		}
	case gpiocdev.LineEventRisingEdge:
		g.held.Store(false)
	}
}

func (g *gpioInput) Held() bool { return g.held.Load() }

func (g *gpioInput) WaitForPress(ctx context.Context) error {
	// Drain a stale edge so we wait for a fresh press.
	select {
	case <-g.press:
	default:
	}
	select {
	case <-g.press:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gpioInput) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
