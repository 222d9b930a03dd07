package broker

// UpdatePeersReq describes a peer-set change: peers to add and peers to
// remove. Add/Del are normalized by applyUpdate before being applied to
// the routing tables.
type UpdatePeersReq struct {
	Add map[PeerId]struct{}
	Del map[PeerId]struct{}
}

// registerReq is the internal control request behind RegisterClient; the
// BiQ is allocated by the facade, which waits on result until the broker
// has applied or rejected the registration before handing the BiQ back.
type registerReq struct {
	clientID []byte
	msgTypes [][]byte
	subs     [][]byte
	biq      *BiQ
	result   chan error
}

// updatePeersCtl wraps UpdatePeersReq for the control queue.
type updatePeersCtl struct {
	req UpdatePeersReq
}

// reconnectCtl is emitted by the ticker (or, degenerately, by a caller)
// asking the broker to force a fresh handshake with the named peers.
type reconnectCtl struct {
	peers map[PeerId]struct{}
}

// unregisterCtl asks the broker to drop a client's routing entries. Like
// UpdatePeers, this is fire-and-forget: in-flight messages still queued
// on the client's BiQ are simply discarded once the entry disappears.
type unregisterCtl struct {
	clientID []byte
}

// controlRequest is the sum type carried on the single MPSC control
// queue. Exactly one of the embedded pointers is non-nil.
type controlRequest struct {
	register    *registerReq
	updatePeers *updatePeersCtl
	reconnect   *reconnectCtl
	unregister  *unregisterCtl
}

// applyUpdate computes the normalized (add', del') pair to apply to
// peers: both := add ∩ del is a no-op; add' is add minus both and minus
// anything already a peer; del' is del minus both and intersected with
// the current peer set.
func applyUpdate(peers map[PeerId]struct{}, add, del map[PeerId]struct{}) (addP, delP map[PeerId]struct{}) {
	both := make(map[PeerId]struct{})
	for p := range add {
		if _, ok := del[p]; ok {
			both[p] = struct{}{}
		}
	}

	addP = make(map[PeerId]struct{})
	for p := range add {
		if _, ok := both[p]; ok {
			continue
		}
		if _, ok := peers[p]; ok {
			continue
		}
		addP[p] = struct{}{}
	}

	delP = make(map[PeerId]struct{})
	for p := range del {
		if _, ok := both[p]; ok {
			continue
		}
		if _, ok := peers[p]; ok {
			delP[p] = struct{}{}
		}
	}

	return addP, delP
}
