package broker

import (
	"context"
	"time"
)

// runTicker is the heartbeat ticker thread: it never touches sockets.
// Each tick mutates the HB table directly (liveness, next poll, inactive
// flag) and enqueues at most one Reconnect control request. It wakes at cfg.TickerResolution, which the spec calls the
// minimum resolution a tick may be scheduled at.
func runTicker(ctx context.Context, cfg *Config, hb *heartbeatTable, control chan<- controlRequest) {
	ticker := time.NewTicker(cfg.TickerResolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			reconnecting := hb.tick(cfg, now)
			if len(reconnecting) > 0 {
				select {
				case control <- controlRequest{reconnect: &reconnectCtl{peers: reconnecting}}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
