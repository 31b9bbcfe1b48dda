package server

import (
	"context"
	"errors"
	"time"

	"github.com/chazu/ledseq/pkg/sequencer"
)

// TickHook runs on the worker goroutine after every tick, so it may touch
// the strip safely.
type TickHook func(sequencer.TickReport)

// Ticker drives playback by calling Tick through the worker at a fixed
// cadence.
type Ticker struct {
	worker   *Worker
	interval time.Duration
	hook     TickHook
}

// NewTicker creates a ticker. hook may be nil.
func NewTicker(w *Worker, interval time.Duration, hook TickHook) *Ticker {
	return &Ticker{worker: w, interval: interval, hook: hook}
}

// Run ticks until ctx is cancelled or the worker stops. It returns nil on
// cancellation.
func (t *Ticker) Run(ctx context.Context) error {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			if err := t.Step(); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				return err
			}
		}
	}
}

// Step performs a single tick.
func (t *Ticker) Step() error {
	_, err := t.worker.Do(func(s *sequencer.Sequencer) interface{} {
		report := s.Tick()
		if t.hook != nil {
			t.hook(report)
		}
		return nil
	})
	return err
}
