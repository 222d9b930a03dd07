package broker

// routingTables is the broker's private, single-threaded bookkeeping:
// every map here is touched only from the broker goroutine, so none of
// it needs locking. The peer set and HB table are not here; they are
// shared with the ticker goroutine and live in heartbeatTable instead
// (see heartbeattable.go).
type routingTables struct {
	clients  map[string]*clientEntry
	msgOwner map[string]string              // msg type key -> client id key
	subs     map[string]map[string]struct{} // subscription key -> set of client id keys
}

type clientEntry struct {
	clientID []byte
	biq      *BiQ
	msgTypes [][]byte
	subs     [][]byte
}

func newRoutingTables() *routingTables {
	return &routingTables{
		clients:  make(map[string]*clientEntry),
		msgOwner: make(map[string]string),
		subs:     make(map[string]map[string]struct{}),
	}
}

func key(b []byte) string { return string(b) }

// registerClient applies an atomic validate-then-insert: a client may
// not claim a message type another client already owns. On rejection
// the routing tables are left untouched. newSubs collects subscription
// keys that went from empty/absent to non-empty, which the caller must
// pass to the SUB socket's subscribe call.
func (rt *routingTables) registerClient(clientID []byte, msgTypes, subs [][]byte, biq *BiQ) (newSubs [][]byte, err error) {
	cid := key(clientID)
	if _, exists := rt.clients[cid]; exists {
		return nil, NewRegistrationRejectedError("client id already registered")
	}
	for _, mt := range msgTypes {
		if owner, ok := rt.msgOwner[key(mt)]; ok && owner != cid {
			return nil, NewRegistrationRejectedError("message type already owned by another client")
		}
	}

	entry := &clientEntry{clientID: clientID, biq: biq, msgTypes: msgTypes, subs: subs}
	rt.clients[cid] = entry
	for _, mt := range msgTypes {
		rt.msgOwner[key(mt)] = cid
	}
	for _, s := range subs {
		sk := key(s)
		set, ok := rt.subs[sk]
		wasEmpty := !ok || len(set) == 0
		if !ok {
			set = make(map[string]struct{})
			rt.subs[sk] = set
		}
		set[cid] = struct{}{}
		if wasEmpty {
			newSubs = append(newSubs, s)
		}
	}
	return newSubs, nil
}

// removeClient drops a client's entry and every index pointing at it.
func (rt *routingTables) removeClient(clientID []byte) {
	cid := key(clientID)
	entry, ok := rt.clients[cid]
	if !ok {
		return
	}
	for _, mt := range entry.msgTypes {
		if rt.msgOwner[key(mt)] == cid {
			delete(rt.msgOwner, key(mt))
		}
	}
	for _, s := range entry.subs {
		sk := key(s)
		if set, ok := rt.subs[sk]; ok {
			delete(set, cid)
			if len(set) == 0 {
				delete(rt.subs, sk)
			}
		}
	}
	delete(rt.clients, cid)
}

// ownerOf returns the BiQ of the client that owns msgType, if any.
func (rt *routingTables) ownerOf(msgType []byte) (*BiQ, bool) {
	cid, ok := rt.msgOwner[key(msgType)]
	if !ok {
		return nil, false
	}
	entry, ok := rt.clients[cid]
	if !ok {
		return nil, false
	}
	return entry.biq, true
}

// subscribers returns the BiQs of every client subscribed to topic. An
// empty non-nil result for a key present in subs is an invariant
// violation the caller must treat as fatal: bookkeeping guarantees a key
// is removed from subs the moment its subscriber set empties.
func (rt *routingTables) subscribers(topic []byte) ([]*BiQ, bool) {
	set, ok := rt.subs[key(topic)]
	if !ok {
		return nil, false
	}
	out := make([]*BiQ, 0, len(set))
	for cid := range set {
		if entry, ok := rt.clients[cid]; ok {
			out = append(out, entry.biq)
		}
	}
	return out, true
}

// allClients iterates every registered client's BiQ, used by the broker
// loop to scan for pending outbound work.
func (rt *routingTables) allClients() []*clientEntry {
	out := make([]*clientEntry, 0, len(rt.clients))
	for _, e := range rt.clients {
		out = append(out, e)
	}
	return out
}
