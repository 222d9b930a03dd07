package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.HeartbeatIntervalMin = 100 * time.Millisecond
	cfg.HeartbeatIntervalMax = 800 * time.Millisecond
	cfg.HeartbeatLivenessMax = 3
	cfg.NewPeerGrace = 0
	return cfg
}

func TestHeartbeatMonotonicity(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	hb := newHeartbeatState(cfg, now)

	t.Run("ticks down to reconnecting in exactly liveness-max ticks", func(t *testing.T) {
		state := hb
		for i := 0; i < cfg.HeartbeatLivenessMax-1; i++ {
			now = now.Add(state.Interval)
			reconnecting := state.tick(cfg, now)
			assert.False(t, reconnecting, "tick %d should not yet reconnect", i)
			assert.False(t, state.Inactive)
		}

		now = now.Add(state.Interval)
		reconnecting := state.tick(cfg, now)
		assert.True(t, reconnecting)
		assert.True(t, state.Inactive)
	})

	t.Run("traffic resets liveness and interval at any point", func(t *testing.T) {
		state := hb
		state.Interval = cfg.HeartbeatIntervalMax
		state.Liveness = 1
		state.onTraffic(cfg)

		assert.Equal(t, cfg.HeartbeatLivenessMax, state.Liveness)
		assert.Equal(t, cfg.HeartbeatIntervalMin, state.Interval)
	})

	t.Run("a tick before next_poll is a no-op", func(t *testing.T) {
		state := newHeartbeatState(cfg, now)
		reconnecting := state.tick(cfg, now)
		assert.False(t, reconnecting)
		assert.Equal(t, cfg.HeartbeatLivenessMax, state.Liveness)
	})
}

func TestHeartbeatBackoffSaturation(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	state := newHeartbeatState(cfg, now)

	for i := 0; i < 10; i++ {
		state.onReconnect(cfg, now)
	}

	assert.Equal(t, cfg.HeartbeatIntervalMax, state.Interval)
	assert.False(t, state.Inactive)
}

func TestHeartbeatOnReconnectClearsInactive(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	state := newHeartbeatState(cfg, now)
	state.Inactive = true
	state.Interval = cfg.HeartbeatIntervalMin

	state.onReconnect(cfg, now)

	assert.False(t, state.Inactive)
	assert.Equal(t, 2*cfg.HeartbeatIntervalMin, state.Interval)
	assert.True(t, state.NextPoll.After(now) || state.NextPoll.Equal(now.Add(state.Interval)))
}
