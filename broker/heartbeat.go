package broker

import "time"

// HeartbeatState tracks liveness for one connected peer. Fields are
// mutated by the broker goroutine (traffic, reconnect, peer updates) and
// by the ticker goroutine (tick), always under heartbeatTable's lock;
// callers outside both read copies via heartbeatTable.health/listHealth.
type HeartbeatState struct {
	Interval time.Duration
	Liveness int
	NextPoll time.Time
	Inactive bool
}

// newHeartbeatState seeds a fresh entry for a peer that was just added,
// giving it NewPeerGrace before the ticker starts pressuring it.
func newHeartbeatState(cfg *Config, now time.Time) HeartbeatState {
	return HeartbeatState{
		Interval: cfg.HeartbeatIntervalMin,
		Liveness: cfg.HeartbeatLivenessMax,
		NextPoll: now.Add(cfg.NewPeerGrace),
		Inactive: false,
	}
}

// onTraffic is the transition fired whenever any frame (ROUTER or SUB,
// including the reserved heartbeat topic) arrives from this peer.
func (h *HeartbeatState) onTraffic(cfg *Config) {
	h.Liveness = cfg.HeartbeatLivenessMax
	h.Interval = cfg.HeartbeatIntervalMin
}

// tick applies one ticker pass to a peer that is not already
// reconnecting. It returns true if this tick pushed the peer into
// Reconnecting, in which case the caller must emit a Reconnect request.
func (h *HeartbeatState) tick(cfg *Config, now time.Time) bool {
	if h.Inactive || now.Before(h.NextPoll) {
		return false
	}
	if h.Liveness > 1 {
		h.Liveness--
		h.NextPoll = now.Add(h.Interval)
		return false
	}
	h.Inactive = true
	return true
}

// onReconnect applies the broker-side effect of a Reconnect control
// request: exponential backoff of the interval, clearing Inactive, and
// rearming NextPoll.
func (h *HeartbeatState) onReconnect(cfg *Config, now time.Time) {
	h.Interval *= 2
	if h.Interval > cfg.HeartbeatIntervalMax {
		h.Interval = cfg.HeartbeatIntervalMax
	}
	h.Inactive = false
	h.NextPoll = now.Add(h.Interval)
}
