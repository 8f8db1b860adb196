package crawl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// gate spaces successive dispatches at least interval apart, system-wide.
//
// It runs its own serial goroutine draining a FIFO request queue, so
// passage order follows acquisition order and is independent of how long
// workers hold their slot afterwards. Spacing comes from a rate.Limiter
// with burst 1: each opening is at least interval after the previous
// opening, not after the call. With interval 0 the gate is ordering-only.
type gate struct {
	reqs chan gateReq
}

type gateReq struct {
	ready chan struct{}
}

func newGate(ctx context.Context, interval time.Duration) *gate {
	g := &gate{reqs: make(chan gateReq)}
	var lim *rate.Limiter
	if interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	go g.serve(ctx, lim)
	return g
}

func (g *gate) serve(ctx context.Context, lim *rate.Limiter) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-g.reqs:
			if lim != nil {
				if err := lim.Wait(ctx); err != nil {
					return
				}
			}
			close(req.ready)
		}
	}
}

// acquire blocks until it is the caller's turn and the minimum interval
// since the previous opening has elapsed.
func (g *gate) acquire(ctx context.Context) error {
	req := gateReq{ready: make(chan struct{})}
	select {
	case g.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
