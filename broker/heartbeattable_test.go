package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatTablePeerSetEqualsKeyset(t *testing.T) {
	cfg := testConfig()
	table := newHeartbeatTable()
	now := time.Now()

	a := peer("a", 1, 2)
	b := peer("b", 1, 2)
	c := peer("c", 1, 2)

	added, removed := table.applyUpdate(cfg, map[PeerId]struct{}{a: {}, b: {}}, nil, now)
	assert.ElementsMatch(t, []PeerId{a, b}, added)
	assert.Empty(t, removed)
	assert.ElementsMatch(t, []PeerId{a, b}, table.snapshotPeers())

	added, removed = table.applyUpdate(cfg, map[PeerId]struct{}{c: {}}, map[PeerId]struct{}{a: {}}, now)
	assert.Equal(t, []PeerId{c}, added)
	assert.Equal(t, []PeerId{a}, removed)
	assert.ElementsMatch(t, []PeerId{b, c}, table.snapshotPeers())

	_, ok := table.health(a)
	assert.False(t, ok, "removed peer must not retain HB state")
}

func TestHeartbeatTableTickEmitsReconnectSet(t *testing.T) {
	cfg := testConfig()
	cfg.NewPeerGrace = 0
	table := newHeartbeatTable()
	now := time.Now()

	a := peer("a", 1, 2)
	table.applyUpdate(cfg, map[PeerId]struct{}{a: {}}, nil, now)

	var reconnecting map[PeerId]struct{}
	for i := 0; i < cfg.HeartbeatLivenessMax; i++ {
		now = now.Add(cfg.HeartbeatIntervalMax)
		reconnecting = table.tick(cfg, now)
	}

	assert.Contains(t, reconnecting, a)

	health, ok := table.health(a)
	assert.True(t, ok)
	assert.True(t, health.Inactive)
}

func TestHeartbeatTableOnTrafficIgnoresUnknownPeer(t *testing.T) {
	cfg := testConfig()
	table := newHeartbeatTable()

	assert.NotPanics(t, func() {
		table.onTraffic(cfg, peer("ghost", 1, 2))
	})
}
