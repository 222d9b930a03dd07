package broker

import (
	"sort"
	"sync"
	"time"
)

// PeerHealth is the read-only view of one peer's liveness state exposed
// to callers outside the broker for introspection.
type PeerHealth struct {
	Peer     PeerId
	Liveness int
	Interval time.Duration
	Inactive bool
}

// heartbeatTable is the one structure mutated from more than one
// goroutine (broker and ticker), guarded by a plain RWMutex. Its keyset
// is always exactly the broker's peer set; there is no separate peers
// map.
type heartbeatTable struct {
	mu      sync.RWMutex
	entries map[PeerId]*HeartbeatState
}

func newHeartbeatTable() *heartbeatTable {
	return &heartbeatTable{entries: make(map[PeerId]*HeartbeatState)}
}

// applyUpdate normalizes add/del against the current keyset and
// applies it, returning the peers actually added/removed so the caller
// (broker loop) can connect/disconnect the corresponding sockets.
func (t *heartbeatTable) applyUpdate(cfg *Config, add, del map[PeerId]struct{}, now time.Time) (added, removed []PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := make(map[PeerId]struct{}, len(t.entries))
	for p := range t.entries {
		current[p] = struct{}{}
	}
	addP, delP := applyUpdate(current, add, del)

	for p := range delP {
		delete(t.entries, p)
		removed = append(removed, p)
	}
	for p := range addP {
		hb := newHeartbeatState(cfg, now)
		t.entries[p] = &hb
		added = append(added, p)
	}
	return added, removed
}

// onTraffic resets liveness/interval for peer after any frame arrives
// from it (ROUTER or SUB, including "_hb"). A peer not in the table is
// traffic from something outside the current peer set and is ignored.
func (t *heartbeatTable) onTraffic(cfg *Config, peer PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if hb, ok := t.entries[peer]; ok {
		hb.onTraffic(cfg)
	}
}

// tick scans every entry once, applying each peer's liveness transition,
// and returns the set of peers that just became Reconnecting this pass.
func (t *heartbeatTable) tick(cfg *Config, now time.Time) map[PeerId]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	var reconnecting map[PeerId]struct{}
	for peer, hb := range t.entries {
		if hb.tick(cfg, now) {
			if reconnecting == nil {
				reconnecting = make(map[PeerId]struct{})
			}
			reconnecting[peer] = struct{}{}
		}
	}
	return reconnecting
}

// onReconnect applies the broker-side effect of a Reconnect control
// request to each named peer still present in the table.
func (t *heartbeatTable) onReconnect(cfg *Config, peers map[PeerId]struct{}, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p := range peers {
		if hb, ok := t.entries[p]; ok {
			hb.onReconnect(cfg, now)
		}
	}
}

// snapshotPeers returns the current peer set, ordered deterministically.
func (t *heartbeatTable) snapshotPeers() []PeerId {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PeerId, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// health returns a snapshot of one peer's HB state.
func (t *heartbeatTable) health(peer PeerId) (PeerHealth, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	hb, ok := t.entries[peer]
	if !ok {
		return PeerHealth{}, false
	}
	return PeerHealth{Peer: peer, Liveness: hb.Liveness, Interval: hb.Interval, Inactive: hb.Inactive}, true
}

// listHealth snapshots every peer's HB state, ordered deterministically.
func (t *heartbeatTable) listHealth() []PeerHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PeerHealth, 0, len(t.entries))
	for p, hb := range t.entries {
		out = append(out, PeerHealth{Peer: p, Liveness: hb.Liveness, Interval: hb.Interval, Inactive: hb.Inactive})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Peer.Less(out[j].Peer) })
	return out
}
