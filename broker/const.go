package broker

import "time"

// Heartbeat tuning. A silent peer is declared dead after
// HeartbeatLivenessMax ticks of HeartbeatIntervalMin, roughly ten seconds;
// a reconnecting peer backs its interval off exponentially up to
// HeartbeatIntervalMax to avoid reconnect storms.
const (
	HeartbeatIntervalMin = 2000 * time.Millisecond
	HeartbeatIntervalMax = 32000 * time.Millisecond
	HeartbeatLivenessMax = 5

	// TickerResolution is the minimum granularity of the heartbeat ticker.
	TickerResolution = 50 * time.Millisecond

	// NewPeerGrace is the initial poll delay given to a freshly added peer,
	// letting the socket connect before the ticker starts pressuring it.
	NewPeerGrace = 2000 * time.Millisecond

	// ReservedHeartbeatTopic is the subscription key carrying server
	// heartbeat publications. Subscribed by every connection but never
	// delivered to clients.
	ReservedHeartbeatTopic = "_hb"

	// MaxConnectionIDLen is the ZMQ identity-frame restriction.
	MaxConnectionIDLen = 254
	MinConnectionIDLen = 1

	// DefaultControlQueueBuffer sizes the buffered control-request channel.
	DefaultControlQueueBuffer = 256

	// DefaultSelectPollTimeout bounds how long the broker loop blocks on a
	// single poller.Wait before re-checking the control queue and BiQs.
	DefaultSelectPollTimeout = 100 * time.Millisecond
)
