package broker

import (
	"fmt"
)

// PeerId structurally identifies a remote server: the host it listens on
// and the two ports it exposes a ROUTER and a PUB socket on.
type PeerId struct {
	Host       string
	RouterPort uint16
	PubPort    uint16
}

// RouterEndpoint is the ZMQ TCP endpoint of the peer's ROUTER socket.
func (p PeerId) RouterEndpoint() string {
	return fmt.Sprintf("tcp://%s:%d", p.Host, p.RouterPort)
}

// PubEndpoint is the ZMQ TCP endpoint of the peer's PUB socket.
func (p PeerId) PubEndpoint() string {
	return fmt.Sprintf("tcp://%s:%d", p.Host, p.PubPort)
}

// ConnectionID is the exact byte string the remote ROUTER puts in the
// first frame of every message it sends us; derived deterministically
// from the peer's router endpoint, per spec.
func (p PeerId) ConnectionID() string {
	return p.RouterEndpoint()
}

// Less gives PeerId a total order so peer iteration is deterministic
// within a run, which in turn makes random peer selection reproducible
// when the broker's RNG is seeded.
func (p PeerId) Less(other PeerId) bool {
	if p.Host != other.Host {
		return p.Host < other.Host
	}
	if p.RouterPort != other.RouterPort {
		return p.RouterPort < other.RouterPort
	}
	return p.PubPort < other.PubPort
}

func (p PeerId) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Host, p.RouterPort, p.PubPort)
}

// validateConnectionID enforces the ZMQ identity-frame length restriction.
func validateConnectionID(p PeerId) error {
	n := len(p.ConnectionID())
	if n < MinConnectionIDLen || n > MaxConnectionIDLen {
		return NewConfigError(
			fmt.Sprintf("peer %s connection id length %d outside [%d,%d]", p, n, MinConnectionIDLen, MaxConnectionIDLen),
			ErrConfig,
		)
	}
	return nil
}

// findPeerByConnectionID performs a linear scan: peer sets are small, so
// this avoids a second index that could desynchronize from the
// authoritative peer set.
func findPeerByConnectionID(peers []PeerId, connID string) (PeerId, bool) {
	for _, p := range peers {
		if p.ConnectionID() == connID {
			return p, true
		}
	}
	return PeerId{}, false
}

// detectConnectionIDCollisions returns the first pair of distinct peers
// that would produce the same wire identity, if any: a configuration
// error, since host:router_port collisions with differing pub_port are
// otherwise silently ambiguous.
func detectConnectionIDCollisions(peers []PeerId) (PeerId, PeerId, bool) {
	seen := make(map[string]PeerId, len(peers))
	for _, p := range peers {
		if other, ok := seen[p.ConnectionID()]; ok && other != p {
			return other, p, true
		}
		seen[p.ConnectionID()] = p
	}
	return PeerId{}, PeerId{}, false
}
