package sync

import (
	"context"
	"log/slog"
	"time"
)

// Poller periodically asks for a wiki scan. It backstops the websocket
// stream: edits made while disconnected, and documents the push events never
// cover, surface on the next tick.
type Poller struct {
	interval time.Duration
	tick     func()
}

func NewPoller(interval time.Duration, tick func()) *Poller {
	return &Poller{interval: interval, tick: tick}
}

// Run ticks until ctx is cancelled. A non-positive interval disables
// polling entirely.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		slog.Info("polling disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	slog.Info("polling wiki space", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick()
		}
	}
}
